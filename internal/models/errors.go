package models

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrNotFound = status.Errorf(codes.NotFound, "not found")

// FetchError wraps a network or backend failure on a read path.
type FetchError struct {
	Op     string
	ChatID string
	Err    error
}

func (e *FetchError) Error() string {
	if e.ChatID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ChatID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports malformed caller input. The prior state is always
// left unchanged when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// PartialFailure reports a fan-out operation where some sub-operations failed
// while the rest succeeded. It accompanies a usable result and is never fatal.
type PartialFailure struct {
	Total     int
	FailedIDs []string
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d of %d sub-operations failed", len(e.FailedIDs), e.Total)
}
