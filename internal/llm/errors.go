package llm

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a transport failure so callers can pattern-match instead of
// comparing provider error strings.
type Kind string

const (
	// KindAPI is a provider error with no more specific classification.
	KindAPI Kind = "api"
	// KindAuth is an invalid or missing credential.
	KindAuth Kind = "auth"
	// KindRateLimited is a 429 from the provider.
	KindRateLimited Kind = "rate_limited"
	// KindTimeout is a deadline expiring before the provider answered.
	KindTimeout Kind = "timeout"
	// KindNetwork is a connection-level failure.
	KindNetwork Kind = "network"
	// KindContextLength means the prompt exceeded the model's context window.
	KindContextLength Kind = "context_length"
)

// Error is a classified transport failure.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (%d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindAPI if err is not a
// transport error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindAPI
}

// IsContextLength reports whether err is a context-window overflow.
func IsContextLength(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindContextLength
}

// retryable reports whether a failed call is worth retrying at the transport
// level. Auth failures and context overflows never are.
func retryable(err error) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	switch te.Kind {
	case KindRateLimited, KindNetwork, KindTimeout:
		return true
	case KindAPI:
		return te.Status >= 500
	default:
		return false
	}
}
