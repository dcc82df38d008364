// Package store persists staffing plans and their chat messages.
//
// Plans and messages are independent, idempotent-by-id records with no
// cross-record transactions; last-writer-wins is acceptable since concurrent
// edits to the same plan are not expected.
package store

import (
	"context"
	"errors"

	"github.com/stafflinehq/staffline/internal/plan"
)

// ErrNotFound is returned when a plan id has no record.
var ErrNotFound = errors.New("plan not found")

// Store is the persistence collaborator for plans and chat history.
type Store interface {
	// UpsertPlan writes the full plan record, replacing any existing one.
	UpsertPlan(ctx context.Context, p *plan.StaffingPlan) error
	// GetPlan reads a plan by id.
	GetPlan(ctx context.Context, id string) (*plan.StaffingPlan, error)
	// DeletePlan removes a plan and, transitively, its chat messages.
	DeletePlan(ctx context.Context, id string) error
	// AppendMessage adds one chat message to a plan's history.
	AppendMessage(ctx context.Context, msg plan.ChatMessage) error
	// ListMessages returns a plan's messages ordered by creation time.
	ListMessages(ctx context.Context, planID string) ([]plan.ChatMessage, error)
}
