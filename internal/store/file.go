package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stafflinehq/staffline/internal/plan"
)

// FileStore keeps one JSON document per plan and a JSONL append file per
// plan's chat history under a data directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// OpenFileStore creates the data directory layout if needed.
func OpenFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	for _, sub := range []string{"plans", "messages"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// UpsertPlan writes the plan record atomically via temp file and rename.
func (s *FileStore) UpsertPlan(ctx context.Context, p *plan.StaffingPlan) error {
	if err := validateID(p.ID); err != nil {
		return err
	}

	content, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWrite(s.planPath(p.ID), content)
}

// GetPlan reads a plan by id.
func (s *FileStore) GetPlan(ctx context.Context, id string) (*plan.StaffingPlan, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(s.planPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	var p plan.StaffingPlan
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("decoding plan %s: %w", id, err)
	}
	return &p, nil
}

// DeletePlan removes the plan record and cascades to its messages.
func (s *FileStore) DeletePlan(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.planPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting plan: %w", err)
	}
	if err := os.Remove(s.messagesPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting plan messages: %w", err)
	}
	return nil
}

// AppendMessage appends one JSON line to the plan's message log.
func (s *FileStore) AppendMessage(ctx context.Context, msg plan.ChatMessage) error {
	if err := validateID(msg.PlanID); err != nil {
		return err
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.messagesPath(msg.PlanID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening message log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// ListMessages reads the plan's message log in append order. Blank lines are
// skipped; a corrupt line fails the read rather than silently dropping
// history.
func (s *FileStore) ListMessages(ctx context.Context, planID string) ([]plan.ChatMessage, error) {
	if err := validateID(planID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.messagesPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening message log: %w", err)
	}
	defer f.Close()

	var messages []plan.ChatMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg plan.ChatMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("decoding message log line %d: %w", lineNum, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning message log: %w", err)
	}
	return messages, nil
}

func (s *FileStore) planPath(id string) string {
	return filepath.Join(s.dir, "plans", id+".json")
}

func (s *FileStore) messagesPath(planID string) string {
	return filepath.Join(s.dir, "messages", planID+".jsonl")
}

// validateID rejects ids that could escape the data directory.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("record id is required")
	}
	if id != filepath.Base(id) || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("invalid record id: %q", id)
	}
	return nil
}

// atomicWrite writes content to a temp file in the target directory and
// renames it into place.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".staffline-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
