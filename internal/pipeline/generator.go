// Package pipeline turns RFP text into a staffing plan through three
// sequential model stages: task decomposition, labor category assignment, and
// hours estimation. Each stage is a reasoning call followed by a structured
// extraction call whose output goes through the JSON recovery engine. A stage
// never starts until the previous stage's JSON has been recovered, because its
// prompt embeds that JSON verbatim.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stafflinehq/staffline/internal/jsonfix"
	"github.com/stafflinehq/staffline/internal/llm"
	"github.com/stafflinehq/staffline/internal/plan"
	"go.uber.org/zap"
)

// Approach selects the hours estimation strategy.
type Approach string

const (
	// TopDown divides a known FTE allocation across the staffing lines.
	TopDown Approach = "top_down"
	// BottomUp derives hours from workload evidence in the RFP.
	BottomUp Approach = "bottom_up"
)

// DefaultHoursPerFTE is the annual hours conversion used unless configured
// otherwise.
const DefaultHoursPerFTE = 1880

// ParseApproach validates a request-supplied approach string.
func ParseApproach(s string) (Approach, error) {
	switch Approach(s) {
	case TopDown, BottomUp:
		return Approach(s), nil
	default:
		return "", fmt.Errorf("unknown approach: %q", s)
	}
}

// Result is the output of a full pipeline run.
type Result struct {
	Step1 []plan.Task
	Step2 []plan.Task
	Final plan.FinalPlan
}

// Config holds pipeline tuning knobs.
type Config struct {
	RepairAttempts int
	HoursPerFTE    float64
}

// Generator runs the plan generation pipeline. It is a pure function of its
// inputs; persisting the result is the caller's responsibility. Concurrent
// Generate calls for different plans share no mutable state.
type Generator struct {
	client         llm.Client
	fixer          *jsonfix.Fixer
	logger         *zap.Logger
	repairAttempts int
	hoursPerFTE    float64
}

// NewGenerator creates a Generator. A nil logger is replaced with a no-op.
func NewGenerator(client llm.Client, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	repairAttempts := cfg.RepairAttempts
	if repairAttempts <= 0 {
		repairAttempts = jsonfix.DefaultRepairAttempts
	}
	hoursPerFTE := cfg.HoursPerFTE
	if hoursPerFTE <= 0 {
		hoursPerFTE = DefaultHoursPerFTE
	}
	return &Generator{
		client:         client,
		fixer:          jsonfix.NewFixer(client, logger),
		logger:         logger,
		repairAttempts: repairAttempts,
		hoursPerFTE:    hoursPerFTE,
	}
}

// Generate produces a staffing plan from RFP text. For the top_down approach
// totalFTE must be positive. Any unrecoverable JSON failure aborts the whole
// run; no partial result is returned.
func (g *Generator) Generate(ctx context.Context, rfpText string, approach Approach, totalFTE float64) (*Result, error) {
	if rfpText == "" {
		return nil, fmt.Errorf("rfp text is empty")
	}
	if approach == TopDown && totalFTE <= 0 {
		return nil, fmt.Errorf("top_down approach requires a positive totalFTE")
	}

	step1, err := g.decompose(ctx, rfpText)
	if err != nil {
		observeGeneration(string(approach), false)
		return nil, fmt.Errorf("decomposition stage: %w", err)
	}
	g.logger.Info("decomposition stage complete", zap.Int("tasks", len(step1)))

	step2, err := g.assignLCATs(ctx, step1)
	if err != nil {
		observeGeneration(string(approach), false)
		return nil, fmt.Errorf("labor category stage: %w", err)
	}
	g.logger.Info("labor category stage complete", zap.Int("tasks", len(step2)))

	final, err := g.estimateHours(ctx, step2, approach, totalFTE)
	if err != nil {
		observeGeneration(string(approach), false)
		return nil, fmt.Errorf("hours estimation stage: %w", err)
	}
	g.logger.Info("hours estimation stage complete",
		zap.Int("lines", len(final.Tasks)),
		zap.Float64("total_hours", final.TotalHours()),
	)

	observeGeneration(string(approach), true)
	return &Result{Step1: step1, Step2: step2, Final: final}, nil
}

func (g *Generator) decompose(ctx context.Context, rfpText string) ([]plan.Task, error) {
	raw, err := g.reasonThenExtract(ctx,
		fmt.Sprintf(decompositionReasonPrompt, rfpText),
		decompositionExtractPrompt,
	)
	if err != nil {
		return nil, err
	}
	return plan.ParseTasks(raw)
}

func (g *Generator) assignLCATs(ctx context.Context, step1 []plan.Task) ([]plan.Task, error) {
	step1JSON, err := json.Marshal(struct {
		Tasks []plan.Task `json:"tasks"`
	}{Tasks: step1})
	if err != nil {
		return nil, fmt.Errorf("serializing step1 tasks: %w", err)
	}

	raw, err := g.reasonThenExtract(ctx,
		fmt.Sprintf(lcatReasonPrompt, step1JSON),
		lcatExtractPrompt,
	)
	if err != nil {
		return nil, err
	}
	return plan.ParseTasks(raw)
}

func (g *Generator) estimateHours(ctx context.Context, step2 []plan.Task, approach Approach, totalFTE float64) (plan.FinalPlan, error) {
	step2JSON, err := json.Marshal(struct {
		Tasks []plan.Task `json:"tasks"`
	}{Tasks: step2})
	if err != nil {
		return plan.FinalPlan{}, fmt.Errorf("serializing step2 tasks: %w", err)
	}

	var reason string
	if approach == TopDown {
		reason = fmt.Sprintf(hoursTopDownReasonPrompt, totalFTE, g.hoursPerFTE, g.hoursPerFTE, step2JSON)
	} else {
		reason = fmt.Sprintf(hoursBottomUpReasonPrompt, g.hoursPerFTE, g.hoursPerFTE, step2JSON)
	}

	raw, err := g.reasonThenExtract(ctx, reason, hoursExtractPrompt)
	if err != nil {
		return plan.FinalPlan{}, err
	}
	return plan.ParseFinalPlan(raw)
}

// reasonThenExtract performs one stage: a free-form reasoning call, then a
// schema-constrained extraction call over the reasoning output, with the
// extraction conversation handed to the recovery engine for repair context.
func (g *Generator) reasonThenExtract(ctx context.Context, reasonPrompt, extractPrompt string) (json.RawMessage, error) {
	reasoning, err := g.client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: reasonPrompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("reasoning call: %w", err)
	}

	convo := []llm.Message{{Role: llm.RoleUser, Content: reasoning}}
	extracted, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      extractPrompt,
		Messages:    convo,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	return g.fixer.Recover(ctx, convo, extracted, g.repairAttempts)
}
