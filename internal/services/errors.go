package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport   = errors.New("transport error")
	ErrAuth        = errors.New("authorization rejected")
	ErrNoMatch     = errors.New("no match")
	ErrMalformed   = errors.New("malformed data")
	ErrPersistence = errors.New("persistence error")
	ErrCancelled   = errors.New("cancelled")
	ErrDisabled    = errors.New("service disabled")
)

// Outcome is the user-visible result of one playback run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeDisabled  Outcome = "disabled"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// OutcomeFor maps a pipeline error to the outcome the orchestrator reports.
// A nil error is a success. Context cancellation is treated the same as an
// explicit ErrCancelled so superseded runs stay silent.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, ErrDisabled):
		return OutcomeDisabled
	case errors.Is(err, ErrNoMatch):
		return OutcomeNoMatch
	default:
		return OutcomeFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
