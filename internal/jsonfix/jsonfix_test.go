package jsonfix

import (
	"context"
	"errors"
	"testing"

	"github.com/stafflinehq/staffline/internal/llm"
)

// TestSanitize tests formatting-noise removal around JSON payloads.
func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain JSON untouched",
			raw:  `{"tasks":[]}`,
			want: `{"tasks":[]}`,
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"tasks\":[]}\n```",
			want: `{"tasks":[]}`,
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"tasks\":[]}\n```",
			want: `{"tasks":[]}`,
		},
		{
			name: "fence directly against payload",
			raw:  "```{\"a\":1}```",
			want: `{"a":1}`,
		},
		{
			name: "wrapping parentheses",
			raw:  `({"a":1})`,
			want: `{"a":1}`,
		},
		{
			name: "nested wrapping parentheses",
			raw:  `(({"a":1}))`,
			want: `{"a":1}`,
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\n  {\"a\":1}  \n",
			want: `{"a":1}`,
		},
		{
			name: "fence plus parens plus whitespace",
			raw:  "```json\n ({\"a\":1}) \n```",
			want: `{"a":1}`,
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// TestSanitizeIdempotent verifies sanitizing twice equals sanitizing once.
func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		`({"a":1})`,
		`  {"a":1}  `,
		`{"a":1}`,
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

// TestRecoverValidJSONNoModelCall verifies already-valid JSON never triggers a
// repair call, even when fenced.
func TestRecoverValidJSONNoModelCall(t *testing.T) {
	fake := llm.NewFake()
	fixer := NewFixer(fake, nil)

	got, err := fixer.Recover(context.Background(), nil, "```json\n{\"tasks\":[{\"taskId\":\"1\"}]}\n```", 2)
	if err != nil {
		t.Fatalf("Recover() error = %v, want nil", err)
	}
	if string(got) != `{"tasks":[{"taskId":"1"}]}` {
		t.Errorf("Recover() = %s, want sanitized payload", got)
	}
	if fake.CallCount() != 0 {
		t.Errorf("Recover() made %d model calls, want 0", fake.CallCount())
	}
}

// TestRecoverRepairsOnce verifies a single repair round fixes broken JSON.
func TestRecoverRepairsOnce(t *testing.T) {
	fake := llm.NewFake(`{"tasks":[]}`)
	fixer := NewFixer(fake, nil)

	convo := []llm.Message{{Role: llm.RoleUser, Content: "extract the tasks"}}
	got, err := fixer.Recover(context.Background(), convo, `{"tasks":[`, 2)
	if err != nil {
		t.Fatalf("Recover() error = %v, want nil", err)
	}
	if string(got) != `{"tasks":[]}` {
		t.Errorf("Recover() = %s, want repaired payload", got)
	}
	if fake.CallCount() != 1 {
		t.Fatalf("Recover() made %d model calls, want 1", fake.CallCount())
	}

	// The repair request replays the originating conversation and appends the
	// invalid output as an assistant turn.
	req := fake.Calls[0]
	if len(req.Messages) != 3 {
		t.Fatalf("repair call had %d messages, want 3", len(req.Messages))
	}
	if req.Messages[0].Content != "extract the tasks" {
		t.Errorf("repair call dropped the originating conversation")
	}
	if req.Messages[1].Role != llm.RoleAssistant || req.Messages[1].Content != `{"tasks":[` {
		t.Errorf("repair call missing invalid output as assistant turn: %+v", req.Messages[1])
	}
}

// TestRecoverExhaustsBudget verifies the loop stops after maxAttempts repairs
// and reports ExhaustedError.
func TestRecoverExhaustsBudget(t *testing.T) {
	// Every repair attempt returns more broken JSON.
	fake := llm.NewFake(`{"still":`, `{"broken":`)
	fixer := NewFixer(fake, nil)

	_, err := fixer.Recover(context.Background(), nil, `{"tasks":[`, 2)
	if err == nil {
		t.Fatal("Recover() error = nil, want ExhaustedError")
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Recover() error = %v, want ExhaustedError", err)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("ExhaustedError.Attempts = %d, want 2", exhausted.Attempts)
	}
	if exhausted.LastRaw != `{"broken":` {
		t.Errorf("ExhaustedError.LastRaw = %q, want last repair output", exhausted.LastRaw)
	}
	if fake.CallCount() != 2 {
		t.Errorf("Recover() made %d model calls, want 2", fake.CallCount())
	}
}

// TestRecoverTransportFailure verifies a failed repair call surfaces as a
// transport error, not an exhaustion.
func TestRecoverTransportFailure(t *testing.T) {
	boom := &llm.Error{Kind: llm.KindNetwork, Provider: "anthropic", Message: "connection refused"}
	fake := llm.NewFake()
	fake.QueueError(boom)
	fixer := NewFixer(fake, nil)

	_, err := fixer.Recover(context.Background(), nil, "not json at all", 2)
	if err == nil {
		t.Fatal("Recover() error = nil, want transport error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Recover() error = %v, want wrapped transport error", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Errorf("transport failure misreported as exhaustion")
	}
}

// TestRecoverDefaultBudget verifies a non-positive budget falls back to the
// default.
func TestRecoverDefaultBudget(t *testing.T) {
	fake := llm.NewFake(`bad`, `worse`)
	fixer := NewFixer(fake, nil)

	_, err := fixer.Recover(context.Background(), nil, `bad`, 0)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Recover() error = %v, want ExhaustedError", err)
	}
	if exhausted.Attempts != DefaultRepairAttempts {
		t.Errorf("ExhaustedError.Attempts = %d, want %d", exhausted.Attempts, DefaultRepairAttempts)
	}
}
