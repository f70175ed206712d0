package core

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Stream-tail limits for diagnostics. A failed fds2ascii run dumps its
// whole prompt transcript, so only the recent portion is useful.
const (
	failTailLines    = 80
	missingTailLines = 120
)

// ExecResult captures one completed fds2ascii process.
type ExecResult struct {
	// Stdout is the full captured standard output (prompt echo plus
	// any progress lines).
	Stdout []byte

	// Stderr is the full captured standard error.
	Stderr []byte

	// ExitCode is the process exit code; 0 is success.
	ExitCode int
}

// Invoker runs fds2ascii once per extraction. It holds no state across
// invocations beyond the two paths.
type Invoker struct {
	// ToolPath is the fds2ascii executable.
	ToolPath string

	// InputDir becomes the process working directory. fds2ascii
	// resolves both its inputs and its output filename relative to
	// this directory.
	InputDir string
}

// NewInvoker creates an Invoker for the given executable and results
// directory.
func NewInvoker(toolPath, inputDir string) *Invoker {
	return &Invoker{ToolPath: toolPath, InputDir: inputDir}
}

// Invoke launches the tool with no arguments, writes the full script as
// its entire input stream, and waits for exit. There is no interactive
// back-and-forth and no timeout: the tool is awaited to completion.
//
// A non-zero exit is not an error from Invoke's perspective; it is
// reported through ExecResult.ExitCode so the caller can attach pair
// context. Invoke returns an error only when the process could not be
// started or awaited at all.
func (iv *Invoker) Invoke(ctx context.Context, script string) (*ExecResult, error) {
	if iv == nil {
		return nil, fmt.Errorf("nil invoker")
	}
	cmd := exec.CommandContext(ctx, iv.ToolPath)
	cmd.Dir = iv.InputDir
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("running %s: %w", iv.ToolPath, err)
		}
		exitCode = exitErr.ExitCode()
	}

	return &ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// ToolError reports an fds2ascii process that exited non-zero. This is
// fatal for the whole batch: a protocol mismatch would fail every
// subsequent invocation identically.
type ToolError struct {
	T          int
	ExitCode   int
	StdoutTail string
	Stderr     string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("fds2ascii failed at t=%d (exit code %d)\n=== stdout (tail) ===\n%s\n=== stderr ===\n%s",
		e.T, e.ExitCode, e.StdoutTail, e.Stderr)
}

// OutputMissingError reports an fds2ascii process that exited zero but
// did not create the expected output file. Distinct from ToolError
// because the tool gives no other signal that it silently produced
// nothing (for example when the requested time window holds no frames).
type OutputMissingError struct {
	T          int
	Path       string
	StdoutTail string
	Stderr     string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("fds2ascii reported success at t=%d but did not create %s\n=== stdout (tail) ===\n%s\n=== stderr ===\n%s",
		e.T, e.Path, e.StdoutTail, e.Stderr)
}

// NewToolError builds a ToolError from a completed process, keeping only
// the recent stdout.
func NewToolError(t int, res *ExecResult) *ToolError {
	return &ToolError{
		T:          t,
		ExitCode:   res.ExitCode,
		StdoutTail: tailLines(res.Stdout, failTailLines),
		Stderr:     string(res.Stderr),
	}
}

// NewOutputMissingError builds an OutputMissingError for the temp file
// the tool should have produced.
func NewOutputMissingError(t int, path string, res *ExecResult) *OutputMissingError {
	return &OutputMissingError{
		T:          t,
		Path:       path,
		StdoutTail: tailLines(res.Stdout, missingTailLines),
		Stderr:     string(res.Stderr),
	}
}

// tailLines returns the last n lines of b as a string.
func tailLines(b []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
