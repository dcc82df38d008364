package llm

import (
	"context"
	"fmt"
	"sync"
)

// Fake is a scripted Client for tests. Each Complete call consumes the next
// scripted step in order.
type Fake struct {
	mu    sync.Mutex
	steps []fakeStep
	next  int

	// Calls records every request received, in order.
	Calls []CompletionRequest
}

type fakeStep struct {
	response string
	err      error
}

// NewFake creates a fake client that replies with the given responses in
// order.
func NewFake(responses ...string) *Fake {
	f := &Fake{}
	for _, r := range responses {
		f.steps = append(f.steps, fakeStep{response: r})
	}
	return f
}

// QueueResponse appends a scripted success reply.
func (f *Fake) QueueResponse(response string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, fakeStep{response: response})
	return f
}

// QueueError appends a scripted failure.
func (f *Fake) QueueError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, fakeStep{err: err})
	return f
}

// Complete returns the next scripted step.
func (f *Fake) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, req)
	if f.next >= len(f.steps) {
		return "", fmt.Errorf("fake client: no scripted response for call %d", f.next+1)
	}

	step := f.steps[f.next]
	f.next++
	if step.err != nil {
		return "", step.err
	}
	return step.response, nil
}

// Available always reports true.
func (f *Fake) Available() bool {
	return true
}

// CallCount returns the number of Complete calls received.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

var _ Client = (*Fake)(nil)
