package batch

import (
	"fmt"

	"fdsbatch/internal/core"
)

// PairState is the runtime state of one (group, time point) pair.
type PairState string

const (
	PairPending   PairState = "PENDING"
	PairRunning   PairState = "RUNNING"
	PairSkipped   PairState = "SKIPPED"
	PairCommitted PairState = "COMMITTED"
	PairFailed    PairState = "FAILED"
)

// IsTerminal reports whether the state is final for a pair.
func IsTerminal(s PairState) bool {
	switch s {
	case PairSkipped, PairCommitted, PairFailed:
		return true
	default:
		return false
	}
}

// PairKey identifies one (group, time point) pair.
type PairKey struct {
	Group int
	T     int
}

func (k PairKey) String() string {
	return fmt.Sprintf("group %d t=%d", k.Group, k.T)
}

// BatchState holds per-pair state for one batch attempt. The underlying
// Request is immutable, so the same batch can be re-attempted with a
// fresh BatchState.
type BatchState map[PairKey]PairState

// NewBatchState seeds every pair of the request as PENDING.
func NewBatchState(req *core.Request) BatchState {
	st := make(BatchState, req.TotalRuns())
	for _, g := range req.Groups {
		for t := req.StartT; t <= req.EndT; t++ {
			st[PairKey{Group: g, T: t}] = PairPending
		}
	}
	return st
}

// Transition performs a validated transition for a single pair. The
// caller supplies the expected prior state so any sequencing bug is
// observable instead of silently absorbed.
func (st BatchState) Transition(key PairKey, from, to PairState) error {
	cur, ok := st[key]
	if !ok {
		return fmt.Errorf("unknown pair in state: %s", key)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %s: expected %s, got %s", key, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %s: %s -> %s", key, from, to)
	}
	st[key] = to
	return nil
}

func isAllowedTransition(from, to PairState) bool {
	switch from {
	case PairPending:
		return to == PairRunning || to == PairSkipped
	case PairRunning:
		return to == PairCommitted || to == PairFailed
	default:
		return false
	}
}
