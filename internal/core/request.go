package core

import (
	"errors"
	"fmt"
)

// Request is the fully resolved description of one extraction batch.
//
// All fields are already validated and typed by the caller (the cli
// package); nothing in core performs interactive I/O or re-prompts.
// A Request is immutable for the lifetime of a batch.
type Request struct {
	// CHID is the simulation job identifier fds2ascii uses to locate
	// its input files. Opaque to this system.
	CHID string

	// StartT and EndT bound the inclusive integer time range. One CSV
	// is produced per time point per group.
	StartT int
	EndT   int

	// VarCount is the number of consecutively indexed variables each
	// group extracts.
	VarCount int

	// Groups lists the 1-based group numbers to extract, sorted
	// ascending. The set need not be contiguous.
	Groups []int

	// ToolPath is the fds2ascii executable.
	ToolPath string

	// InputDir is the simulation results directory (where the .sf/.smv
	// files live). fds2ascii runs with this as its working directory.
	InputDir string

	// OutputRoot is where group_<g>/<t>.csv artifacts are committed.
	OutputRoot string
}

// Validate checks the structural invariants a Request must satisfy
// before any invocation is attempted. Filesystem existence of ToolPath
// and InputDir is the cli layer's concern.
func (r *Request) Validate() error {
	if r == nil {
		return errors.New("nil request")
	}
	if r.CHID == "" {
		return errors.New("CHID is required")
	}
	if r.EndT < r.StartT {
		return fmt.Errorf("time range end must be >= start, got %d..%d", r.StartT, r.EndT)
	}
	if r.VarCount < 1 {
		return fmt.Errorf("variable count must be >= 1, got %d", r.VarCount)
	}
	if len(r.Groups) == 0 {
		return errors.New("at least one group is required")
	}
	for _, g := range r.Groups {
		if g < 1 {
			return fmt.Errorf("group number must be >= 1, got %d", g)
		}
	}
	if r.ToolPath == "" {
		return errors.New("tool path is required")
	}
	if r.InputDir == "" {
		return errors.New("input directory is required")
	}
	if r.OutputRoot == "" {
		return errors.New("output root is required")
	}
	return nil
}

// TimePoints returns every integer time point in [StartT, EndT].
func (r *Request) TimePoints() []int {
	pts := make([]int, 0, r.EndT-r.StartT+1)
	for t := r.StartT; t <= r.EndT; t++ {
		pts = append(pts, t)
	}
	return pts
}

// TotalRuns is the number of (group, time point) pairs in the batch.
func (r *Request) TotalRuns() int {
	return len(r.Groups) * (r.EndT - r.StartT + 1)
}

// GroupWindow is the contiguous 1-based variable-index range one group
// extracts. Windows for distinct groups never overlap and are strictly
// increasing with group number.
type GroupWindow struct {
	Group int
	First int
	Last  int
}

// WindowFor derives the variable-index window for a group: group g with
// count c covers indices (g-1)*c+1 .. (g-1)*c+c.
func WindowFor(group, varCount int) GroupWindow {
	first := (group-1)*varCount + 1
	return GroupWindow{
		Group: group,
		First: first,
		Last:  first + varCount - 1,
	}
}

// Indices expands the window into the ordered index list fed to the
// script builder.
func (w GroupWindow) Indices() []int {
	out := make([]int, 0, w.Last-w.First+1)
	for i := w.First; i <= w.Last; i++ {
		out = append(out, i)
	}
	return out
}

// AveragingWindow is the inclusive time interval fds2ascii averages into
// one output sample.
type AveragingWindow struct {
	TMin int
	TMax int
}

// AverageWindow derives the averaging window for time point t: [t-1, t+1]
// clamped to [startT, endT]. The window is never wider than three samples
// and degenerates toward a single point at the range boundaries.
func AverageWindow(t, startT, endT int) AveragingWindow {
	w := AveragingWindow{TMin: t - 1, TMax: t + 1}
	if w.TMin < startT {
		w.TMin = startT
	}
	if w.TMax > endT {
		w.TMax = endT
	}
	return w
}
