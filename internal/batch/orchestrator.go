package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"fdsbatch/internal/core"
	"fdsbatch/internal/journal"
)

// ToolInvoker is the minimal process interface the orchestrator drives.
// It exists so orchestration policy (skip, purge, verify, commit) can be
// tested with a fake tool that never spawns a process.
type ToolInvoker interface {
	Invoke(ctx context.Context, script string) (*core.ExecResult, error)
}

// Summary is what a fully successful batch reports.
type Summary struct {
	Generated int
	Skipped   int
	Total     int
}

// Orchestrator enumerates all (group, time point) pairs of a request and
// drives one fds2ascii invocation per pair that is not already committed
// on disk.
type Orchestrator struct {
	Request *core.Request
	Invoker ToolInvoker

	// Journal is optional; a nil journal records nothing.
	Journal *journal.Journal

	// Logger defaults to a nop logger.
	Logger *zap.Logger

	// Out receives operator-facing progress lines; defaults to stdout.
	Out io.Writer
}

// NewOrchestrator wires an orchestrator with default logging and output.
func NewOrchestrator(req *core.Request, invoker ToolInvoker) *Orchestrator {
	return &Orchestrator{
		Request: req,
		Invoker: invoker,
		Logger:  zap.NewNop(),
		Out:     os.Stdout,
	}
}

// Run executes the whole batch sequentially, group-major then
// time-minor, aborting on the first failed pair. On full success it
// returns the generated/skipped counts.
//
// Pair flow:
//  1. Skip if group_<g>/<t>.csv already exists (resume mechanism).
//  2. Derive the averaging window for t.
//  3. Purge any stale temp file for (CHID, t), build the script, and
//     run fds2ascii with the temp name as its output answer.
//  4. Non-zero exit, or zero exit without the temp file, fails the
//     batch with the tool's recent output attached.
//  5. Rename the temp file to the final path. The rename is the commit
//     point; only after it does the artifact exist at its stable path.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if err := o.Request.Validate(); err != nil {
		return nil, err
	}
	if o.Invoker == nil {
		return nil, fmt.Errorf("nil invoker")
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := o.Out
	if out == nil {
		out = os.Stdout
	}

	req := o.Request
	state := NewBatchState(req)
	total := req.TotalRuns()
	o.printPlan(out)

	summary := &Summary{Total: total}
	counter := 0
	for _, g := range req.Groups {
		win := core.WindowFor(g, req.VarCount)
		groupDir := filepath.Join(req.OutputRoot, fmt.Sprintf("group_%d", g))
		if err := os.MkdirAll(groupDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", groupDir, err)
		}

		fmt.Fprintf(out, "\n== Group %d  (var indices %d..%d) ==\n", g, win.First, win.Last)
		logger.Debug("group start",
			zap.Int("group", g),
			zap.Int("first_index", win.First),
			zap.Int("last_index", win.Last))

		for t := req.StartT; t <= req.EndT; t++ {
			counter++
			fmt.Fprintf(out, "  [%d/%d] ", counter, total)

			key := PairKey{Group: g, T: t}
			started := time.Now()
			final, err := o.runPair(ctx, state, key, win, groupDir, out)
			o.recordPair(logger, key, final, time.Since(started), err)

			switch final {
			case PairSkipped:
				summary.Skipped++
			case PairCommitted:
				summary.Generated++
			}
			if err != nil {
				// First failure aborts the whole batch; a protocol
				// mismatch would fail every later pair identically.
				logger.Error("batch aborted",
					zap.Int("group", g),
					zap.Int("t", t),
					zap.Error(err))
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	fmt.Fprintf(out, "\n=== DONE — %d generated, %d skipped (%d total) ===\n",
		summary.Generated, summary.Skipped, summary.Total)
	return summary, nil
}

// runPair drives one pair to a terminal state and returns it.
func (o *Orchestrator) runPair(ctx context.Context, state BatchState, key PairKey, win core.GroupWindow, groupDir string, out io.Writer) (PairState, error) {
	req := o.Request
	finalPath := filepath.Join(groupDir, fmt.Sprintf("%d.csv", key.T))

	// Resume/idempotence: an existing final file is complete and
	// immutable, never overwritten.
	if _, err := os.Stat(finalPath); err == nil {
		if terr := state.Transition(key, PairPending, PairSkipped); terr != nil {
			return PairFailed, terr
		}
		fmt.Fprintf(out, "[SKIP] %s already exists\n", filepath.Base(finalPath))
		return PairSkipped, nil
	} else if !os.IsNotExist(err) {
		return PairFailed, fmt.Errorf("checking %s: %w", finalPath, err)
	}

	avg := core.AverageWindow(key.T, req.StartT, req.EndT)
	tempName := core.TempOutputName(req.CHID, key.T)
	tempPath := filepath.Join(req.InputDir, tempName)

	// A previous failed run may have left a temp file behind.
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return PairFailed, fmt.Errorf("removing stale temp %s: %w", tempPath, err)
	}

	script := core.BuildScript(core.ScriptParams{
		CHID:       req.CHID,
		Window:     avg,
		VarIndices: win.Indices(),
		OutputName: tempName,
	})

	if err := state.Transition(key, PairPending, PairRunning); err != nil {
		return PairFailed, err
	}
	fmt.Fprintf(out, "t=%d  avg=[%d, %d]  -> %s\n", key.T, avg.TMin, avg.TMax, filepath.Base(finalPath))

	res, err := o.Invoker.Invoke(ctx, script)
	if err != nil {
		_ = state.Transition(key, PairRunning, PairFailed)
		return PairFailed, err
	}
	if res.ExitCode != 0 {
		_ = state.Transition(key, PairRunning, PairFailed)
		return PairFailed, core.NewToolError(key.T, res)
	}
	if _, err := os.Stat(tempPath); err != nil {
		_ = state.Transition(key, PairRunning, PairFailed)
		if os.IsNotExist(err) {
			return PairFailed, core.NewOutputMissingError(key.T, tempPath, res)
		}
		return PairFailed, fmt.Errorf("checking temp output %s: %w", tempPath, err)
	}

	if err := moveFile(tempPath, finalPath); err != nil {
		_ = state.Transition(key, PairRunning, PairFailed)
		return PairFailed, fmt.Errorf("committing %s: %w", finalPath, err)
	}
	if err := state.Transition(key, PairRunning, PairCommitted); err != nil {
		return PairFailed, err
	}
	return PairCommitted, nil
}

// recordPair journals one terminal pair outcome. Journal problems are
// logged and dropped; bookkeeping must never fail the batch.
func (o *Orchestrator) recordPair(logger *zap.Logger, key PairKey, final PairState, d time.Duration, pairErr error) {
	rec := journal.PairRecord{
		Group:      key.Group,
		T:          key.T,
		State:      string(final),
		DurationMS: d.Milliseconds(),
	}
	if pairErr != nil {
		rec.Error = pairErr.Error()
	}
	if err := o.Journal.RecordPair(rec); err != nil {
		logger.Warn("journal write failed", zap.Error(err))
	}
}

// printPlan mirrors the operator summary the batch prints before any
// invocation: range, groups, per-group index windows, total runs.
func (o *Orchestrator) printPlan(out io.Writer) {
	req := o.Request
	points := req.EndT - req.StartT + 1
	rule := strings.Repeat("-", 50)
	fmt.Fprintf(out, "%s\n", rule)
	fmt.Fprintf(out, "  Time points : %d .. %d  (%d points)\n", req.StartT, req.EndT, points)
	fmt.Fprintf(out, "  Groups      : %v  (%d groups)\n", req.Groups, len(req.Groups))
	fmt.Fprintf(out, "  Vars / group: %d\n", req.VarCount)
	fmt.Fprintf(out, "  Total runs  : %d\n", req.TotalRuns())
	for _, g := range req.Groups {
		win := core.WindowFor(g, req.VarCount)
		fmt.Fprintf(out, "    group %d -> var indices %d..%d\n", g, win.First, win.Last)
	}
	fmt.Fprintf(out, "%s\n", rule)
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// two live on different filesystems (the results and output directories
// commonly do).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
