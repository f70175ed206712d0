package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"fdsbatch/internal/batch"
	"fdsbatch/internal/core"
	"fdsbatch/internal/journal"
)

// Result is the outcome of one batch execution.
type Result struct {
	ExitCode int
	Summary  *batch.Summary
}

// Execute runs a validated invocation end to end: it builds the core
// request, opens the run journal, drives the orchestrator, and
// finalizes the journal with the terminal status.
//
// The journal is best effort throughout; a journal that cannot be
// opened or closed is logged and ignored.
func Execute(ctx context.Context, inv Invocation, logger *zap.Logger, out io.Writer) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	if err := inv.Validate(); err != nil {
		return Result{ExitCode: ExitCodeFor(err)}, err
	}

	req := &core.Request{
		CHID:       inv.CHID,
		StartT:     inv.StartT,
		EndT:       inv.EndT,
		VarCount:   inv.VarCount,
		Groups:     inv.Groups,
		ToolPath:   inv.ToolPath,
		InputDir:   inv.InputDir,
		OutputRoot: inv.OutputRoot,
	}
	if err := req.Validate(); err != nil {
		err = &InvocationError{ExitCode: ExitInvalidInvocation, Message: err.Error()}
		return Result{ExitCode: ExitInvalidInvocation}, err
	}

	jnl, err := journal.Open(inv.OutputRoot, journal.RunMeta{
		CHID:     req.CHID,
		StartT:   req.StartT,
		EndT:     req.EndT,
		VarCount: req.VarCount,
		Groups:   req.Groups,
	})
	if err != nil {
		logger.Warn("journal unavailable", zap.Error(err))
		jnl = nil
	} else {
		logger.Info("run journal opened", zap.String("run_id", jnl.RunID()))
	}

	orch := batch.NewOrchestrator(req, core.NewInvoker(req.ToolPath, req.InputDir))
	orch.Journal = jnl
	orch.Logger = logger
	orch.Out = out

	summary, runErr := orch.Run(ctx)
	status := "succeeded"
	generated, skipped := 0, 0
	if summary != nil {
		generated, skipped = summary.Generated, summary.Skipped
	}
	if runErr != nil {
		status = "failed"
	}
	if err := jnl.Close(status, generated, skipped); err != nil {
		logger.Warn("journal close failed", zap.Error(err))
	}

	if runErr != nil {
		return Result{ExitCode: ExitCodeFor(runErr)}, fmt.Errorf("batch failed: %w", runErr)
	}
	return Result{ExitCode: ExitSuccess, Summary: summary}, nil
}
