// Package cli canonicalizes raw command-line and config-file values
// into a validated Invocation and maps batch outcomes to semantic
// process exit codes. It performs no interactive I/O itself; prompting
// for missing values belongs to cmd/fdsbatch.
package cli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitBatchFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Invocation is the fully resolved, typed description of one batch.
// Everything downstream of the cli package consumes these values as
// already validated.
type Invocation struct {
	ToolPath   string
	InputDir   string
	OutputRoot string
	CHID       string
	StartT     int
	EndT       int
	VarCount   int
	Groups     []int
	Verbose    bool
}

// InvocationError carries a semantic exit code alongside the message.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// rangeSeparators splits "0-200", "0 200", "0,200" and "0~200" alike.
var rangeSeparators = regexp.MustCompile(`[\s,\-~]+`)

// ParseIntRange parses a two-endpoint inclusive integer range.
// Fractional endpoints are accepted and truncated toward zero.
func ParseIntRange(s string) (start, end int, err error) {
	tokens := make([]string, 0, 2)
	for _, t := range rangeSeparators.Split(strings.TrimSpace(s), -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) != 2 {
		return 0, 0, invalidInvocationf("cannot parse range %q (example: 0-200)", s)
	}
	a, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, 0, invalidInvocationf("cannot parse range %q: bad start %q", s, tokens[0])
	}
	b, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return 0, 0, invalidInvocationf("cannot parse range %q: bad end %q", s, tokens[1])
	}
	start, end = int(a), int(b)
	if end < start {
		return 0, 0, invalidInvocationf("range end must be >= start, got %d..%d", start, end)
	}
	return start, end, nil
}

// ParseGroups parses a group specification like "1", "1-5" or
// "1-3,7,10-12" into a sorted, deduplicated list of 1-based group
// numbers. No upper bound is enforced.
func ParseGroups(s string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(strings.TrimSpace(s), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return nil, invalidInvocationf("cannot parse group range %q", part)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(b))
			if err != nil {
				return nil, invalidInvocationf("cannot parse group range %q", part)
			}
			for g := lo; g <= hi; g++ {
				seen[g] = struct{}{}
			}
		} else {
			g, err := strconv.Atoi(part)
			if err != nil {
				return nil, invalidInvocationf("cannot parse group %q", part)
			}
			seen[g] = struct{}{}
		}
	}
	groups := make([]int, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	if len(groups) == 0 {
		return nil, invalidInvocationf("no groups in %q", s)
	}
	for _, g := range groups {
		if g < 1 {
			return nil, invalidInvocationf("group number must be >= 1, got %d", g)
		}
	}
	return groups, nil
}

// Validate rejects a malformed invocation before any external process
// is spawned. Filesystem checks live here, on the boundary, so the core
// never has to re-ask.
func (inv *Invocation) Validate() error {
	if inv == nil {
		return errors.New("nil invocation")
	}
	if strings.TrimSpace(inv.CHID) == "" {
		return invalidInvocationf("CHID is required")
	}
	if inv.EndT < inv.StartT {
		return invalidInvocationf("time range end must be >= start, got %d..%d", inv.StartT, inv.EndT)
	}
	if inv.VarCount < 1 {
		return invalidInvocationf("variable count must be >= 1, got %d", inv.VarCount)
	}
	if len(inv.Groups) == 0 {
		return invalidInvocationf("at least one group is required")
	}
	for _, g := range inv.Groups {
		if g < 1 {
			return invalidInvocationf("group number must be >= 1, got %d", g)
		}
	}

	info, err := os.Stat(inv.ToolPath)
	if err != nil || info.IsDir() {
		return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf("fds2ascii not found: %s", inv.ToolPath)}
	}
	info, err = os.Stat(inv.InputDir)
	if err != nil || !info.IsDir() {
		return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf("results folder not found: %s", inv.InputDir)}
	}
	if strings.TrimSpace(inv.OutputRoot) == "" {
		return invalidInvocationf("output root is required")
	}
	return nil
}

// ExitCodeFor extracts a semantic exit code from an error returned by
// Run or Execute.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	return ExitBatchFailure
}
