package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stafflinehq/staffline/internal/plan"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	return s
}

func samplePlan(id string) *plan.StaffingPlan {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return &plan.StaffingPlan{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		RFPText:   "Provide help desk support.",
		Step1Tasks: []plan.Task{
			{TaskID: "1", Title: "Help Desk", Description: "Tier 1 support"},
		},
		Final: plan.FinalPlan{
			Tasks: []plan.StaffingLine{
				{TaskID: "1", LCAT: "Help Desk Technician", Hours: 1880, MathRationale: "1.0 FTE x 1880"},
			},
		},
	}
}

// TestPlanRoundTrip tests upsert then read-back of a plan record.
func TestPlanRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := samplePlan("plan-1")
	if err := s.UpsertPlan(ctx, want); err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}

	got, err := s.GetPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got.ID != want.ID || got.RFPText != want.RFPText {
		t.Errorf("GetPlan() = %+v, want %+v", got, want)
	}
	if len(got.Final.Tasks) != 1 || got.Final.Tasks[0].Hours != 1880 {
		t.Errorf("GetPlan() final plan = %+v", got.Final)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("GetPlan() CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

// TestUpsertOverwrites tests that upserting an existing id replaces it.
func TestUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePlan("plan-1")
	if err := s.UpsertPlan(ctx, p); err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}

	p.Final.Tasks[0].Hours = 940
	p.UpdatedAt = p.UpdatedAt.Add(time.Hour)
	if err := s.UpsertPlan(ctx, p); err != nil {
		t.Fatalf("UpsertPlan() second error = %v", err)
	}

	got, err := s.GetPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got.Final.Tasks[0].Hours != 940 {
		t.Errorf("GetPlan() hours = %v, want 940 after overwrite", got.Final.Tasks[0].Hours)
	}
}

// TestGetPlanNotFound tests the sentinel for missing plans.
func TestGetPlanNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPlan(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlan() error = %v, want ErrNotFound", err)
	}
}

// TestDeletePlanCascades tests that deleting a plan removes its message log.
func TestDeletePlanCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertPlan(ctx, samplePlan("plan-1")); err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}
	msg := plan.ChatMessage{ID: "m1", PlanID: "plan-1", Role: plan.RoleUser, Content: "hi"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	if err := s.DeletePlan(ctx, "plan-1"); err != nil {
		t.Fatalf("DeletePlan() error = %v", err)
	}

	if _, err := s.GetPlan(ctx, "plan-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlan() after delete error = %v, want ErrNotFound", err)
	}
	msgs, err := s.ListMessages(ctx, "plan-1")
	if err != nil {
		t.Fatalf("ListMessages() after delete error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("ListMessages() after delete = %d messages, want 0", len(msgs))
	}
}

// TestDeletePlanNotFound tests deleting a missing plan.
func TestDeletePlanNotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeletePlan(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePlan() error = %v, want ErrNotFound", err)
	}
}

// TestMessagesAppendOrder tests that messages come back in append order.
func TestMessagesAppendOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		msg := plan.ChatMessage{
			ID:      fmt.Sprintf("m%d", i),
			PlanID:  "plan-1",
			Role:    plan.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}
		if err := s.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage(%d) error = %v", i, err)
		}
	}

	msgs, err := s.ListMessages(ctx, "plan-1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("ListMessages() = %d messages, want 5", len(msgs))
	}
	for i, m := range msgs {
		if m.ID != fmt.Sprintf("m%d", i) {
			t.Errorf("message %d has id %q, want m%d", i, m.ID, i)
		}
	}
}

// TestListMessagesEmpty tests a plan with no history.
func TestListMessagesEmpty(t *testing.T) {
	s := newTestStore(t)
	msgs, err := s.ListMessages(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if msgs != nil {
		t.Errorf("ListMessages() = %v, want nil", msgs)
	}
}

// TestListMessagesCorruptLine tests that a corrupt log line fails the read.
func TestListMessagesCorruptLine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := plan.ChatMessage{ID: "m1", PlanID: "plan-1", Role: plan.RoleUser, Content: "hi"}
	if err := s.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	logPath := filepath.Join(s.dir, "messages", "plan-1.jsonl")
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("writing corrupt line: %v", err)
	}
	f.Close()

	if _, err := s.ListMessages(ctx, "plan-1"); err == nil {
		t.Error("ListMessages() error = nil, want corrupt-line failure")
	}
}

// TestValidateID tests path traversal rejection.
func TestValidateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bad := []string{"", "..", "a/b", `a\b`, "../../etc/passwd", "."}
	for _, id := range bad {
		if _, err := s.GetPlan(ctx, id); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("GetPlan(%q) error = %v, want invalid-id error", id, err)
		}
		if err := s.UpsertPlan(ctx, &plan.StaffingPlan{ID: id}); err == nil {
			t.Errorf("UpsertPlan(%q) error = nil, want invalid-id error", id)
		}
	}
}
