// Package jsonfix recovers structured JSON from model output.
//
// Model responses are not schema-guaranteed: they arrive wrapped in markdown
// fences, stray parentheses, or with outright syntax errors. Sanitize handles
// the formatting noise; Fixer drives a bounded loop that asks the model to
// repair its own invalid JSON rather than regex-patching it locally.
package jsonfix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stafflinehq/staffline/internal/llm"
	"go.uber.org/zap"
)

// DefaultRepairAttempts bounds the repair loop when the caller does not
// override it.
const DefaultRepairAttempts = 2

// ExhaustedError reports that the repair budget ran out without the model
// producing valid JSON. It carries the last raw text and parse error for
// diagnostics; callers must treat it as fatal, never as a partial result.
type ExhaustedError struct {
	Attempts int
	LastRaw  string
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("json recovery exhausted after %d repair attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Sanitize strips formatting noise around a JSON payload: markdown code
// fences (with optional language tag), wrapping parentheses, and surrounding
// whitespace. It is a pure string transform and performs no validation.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag like "json" on the fence line.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[\"") {
			s = s[nl+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) >= 2 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	return s
}

// Fixer runs the sanitize/parse/repair loop against a model client.
type Fixer struct {
	client llm.Client
	logger *zap.Logger
}

// NewFixer creates a Fixer. A nil logger is replaced with a no-op.
func NewFixer(client llm.Client, logger *zap.Logger) *Fixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fixer{client: client, logger: logger}
}

// Recover returns the parsed JSON value contained in raw. convo is the
// conversation that produced raw; it is replayed on repair calls so the model
// sees what it was asked for. On parse failure the model is asked to fix its
// own output, at most maxAttempts times. Already-valid JSON never triggers a
// model call.
func (f *Fixer) Recover(ctx context.Context, convo []llm.Message, raw string, maxAttempts int) (json.RawMessage, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRepairAttempts
	}

	text := raw
	var lastErr error
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		cleaned := Sanitize(text)

		var value json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &value); err == nil {
			return value, nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		f.logger.Warn("model output failed to parse, requesting repair",
			zap.Int("attempt", attempt+1),
			zap.Int("raw_len", len(text)),
			zap.Error(lastErr),
		)

		repaired, err := f.requestRepair(ctx, convo, cleaned, lastErr)
		if err != nil {
			return nil, fmt.Errorf("repair call failed: %w", err)
		}
		text = repaired
	}

	return nil, &ExhaustedError{Attempts: maxAttempts, LastRaw: Sanitize(text), LastErr: lastErr}
}

// requestRepair asks the model to correct its invalid JSON output.
func (f *Fixer) requestRepair(ctx context.Context, convo []llm.Message, invalid string, parseErr error) (string, error) {
	system := fmt.Sprintf(
		"Your previous response was expected to be valid JSON but failed to parse.\n"+
			"Parse error: %v\n"+
			"Return the corrected JSON only. No commentary, no code fences.",
		parseErr,
	)

	messages := make([]llm.Message, 0, len(convo)+2)
	messages = append(messages, convo...)
	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: invalid},
		llm.Message{Role: llm.RoleUser, Content: "That was not valid JSON. Respond again with only the corrected JSON."},
	)

	return f.client.Complete(ctx, llm.CompletionRequest{
		System:   system,
		Messages: messages,
	})
}
