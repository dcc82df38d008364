// Package main implements the staffctl CLI for manual operations against the
// stafflined HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the stafflined HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "staffctl",
	Short: "CLI for stafflined HTTP server operations",
	Long: `staffctl is a command-line interface for the stafflined HTTP server.
It generates staffing plans from RFP documents and revises them conversationally.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "stafflined server URL")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(healthCmd)
}

var (
	genApproach string
	genTotalFTE float64
)

// generateCmd generates a plan from an RFP text file
var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate a staffing plan from an RFP text file",
	Long: `Generate a staffing plan from an RFP text file, or stdin.

Examples:
  # Bottom-up estimation from a file
  staffctl generate rfp.txt

  # Top-down estimation with a known FTE allocation
  staffctl generate --approach top_down --total-fte 4.5 rfp.txt

  # Read the RFP from stdin
  cat rfp.txt | staffctl generate -`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

// chatCmd sends a revision message for a stored plan
var chatCmd = &cobra.Command{
	Use:   "chat [plan-id] [message]",
	Short: "Send a revision message for a stored plan",
	Args:  cobra.ExactArgs(2),
	RunE:  runChat,
}

// showCmd fetches a stored plan
var showCmd = &cobra.Command{
	Use:   "show [plan-id]",
	Short: "Show a stored staffing plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check stafflined server health",
	RunE:  runHealth,
}

func init() {
	generateCmd.Flags().StringVar(&genApproach, "approach", "bottom_up", "estimation approach: top_down or bottom_up")
	generateCmd.Flags().Float64Var(&genTotalFTE, "total-fte", 0, "total FTE allocation (required for top_down)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var rfpText []byte
	var err error
	if args[0] == "-" {
		rfpText, err = io.ReadAll(os.Stdin)
	} else {
		rfpText, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading RFP: %w", err)
	}

	body := map[string]any{
		"rfpText":  string(rfpText),
		"approach": genApproach,
	}
	if genTotalFTE > 0 {
		body["totalFTE"] = genTotalFTE
	}

	return postJSON("/generate-plan", body, 10*time.Minute)
}

func runChat(cmd *cobra.Command, args []string) error {
	return postJSON("/chat", map[string]any{
		"planId":  args[0],
		"message": args[1],
	}, 5*time.Minute)
}

func runShow(cmd *cobra.Command, args []string) error {
	return getJSON("/plans/" + args[0])
}

func runHealth(cmd *cobra.Command, args []string) error {
	return getJSON("/health")
}

// postJSON sends a JSON request and pretty-prints the JSON response.
func postJSON(path string, body any, timeout time.Duration) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func getJSON(path string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		pretty.Write(body)
	}
	fmt.Println(pretty.String())

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
