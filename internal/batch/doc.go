// Package batch drives the (group × time point) extraction loop.
//
// Execution is strictly sequential, group-major then time-minor: one
// fds2ascii process is in flight at any time, and the next pair does
// not start until the previous one committed, was skipped, or the
// batch aborted. Each pair moves through a small validated state
// machine with no retries and no backward transitions:
//
//	PENDING -> SKIPPED                 final artifact already exists
//	PENDING -> RUNNING -> COMMITTED    temp file renamed into place
//	PENDING -> RUNNING -> FAILED       aborts the whole batch
//
// The final artifact's existence is the only resume state: re-running a
// batch after a partial failure re-does exactly the pairs that never
// committed. A single orchestrator instance must own the output root;
// nothing here defends against a concurrent writer.
package batch
