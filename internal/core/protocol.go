package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed answers for the fds2ascii prompts that never vary across a
// batch. Changing one of these changes which category of data is
// extracted, so they are constants of the protocol, not configuration.
const (
	// fileTypeSLCF selects slice files when fds2ascii asks for the
	// file type (1=PLOT3D, 2=SLCF, 3=BNDF).
	fileTypeSLCF = "2"

	// samplingAll selects "use all data" at the sampling-factor prompt.
	samplingAll = "1"

	// domainUnlimited declines the optional spatial domain restriction.
	domainUnlimited = "n"
)

// ScriptParams are the per-invocation inputs to BuildScript. No
// validation happens here; callers pass already validated values.
type ScriptParams struct {
	// CHID is the job identifier, answered at the first prompt.
	CHID string

	// Window is the time-averaging interval, rendered as two decimals.
	Window AveragingWindow

	// VarIndices are the 1-based variable indices, answered one per
	// line in the given order. The count prompt is answered with
	// len(VarIndices).
	VarIndices []int

	// OutputName is the filename fds2ascii writes, relative to its
	// working directory.
	OutputName string
}

// BuildScript renders the complete stdin text for one fds2ascii
// invocation. The prompt order, confirmed against the fds2ascii source,
// is:
//
//	1. CHID
//	2. file type        -> 2 (SLCF)
//	3. sampling factor  -> 1 (all data)
//	4. domain limit     -> n
//	5. time window      -> "tmin tmax", one decimal digit each
//	6. variable count
//	7. variable indices, one per line
//	8. output filename
//
// Every answer is newline-terminated, including the last; fds2ascii
// reads all answers sequentially regardless of how many it echoes back.
// This function is the single source of truth for that interaction
// order: a change in the tool's prompt sequence is a change here and
// nowhere else. The output is byte-for-byte deterministic in its inputs.
func BuildScript(p ScriptParams) string {
	var b strings.Builder
	b.WriteString(p.CHID)
	b.WriteByte('\n')
	b.WriteString(fileTypeSLCF)
	b.WriteByte('\n')
	b.WriteString(samplingAll)
	b.WriteByte('\n')
	b.WriteString(domainUnlimited)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%.1f %.1f\n", float64(p.Window.TMin), float64(p.Window.TMax))
	b.WriteString(strconv.Itoa(len(p.VarIndices)))
	b.WriteByte('\n')
	for _, idx := range p.VarIndices {
		b.WriteString(strconv.Itoa(idx))
		b.WriteByte('\n')
	}
	b.WriteString(p.OutputName)
	b.WriteByte('\n')
	return b.String()
}

// TempOutputName derives the temporary filename for one (CHID, t) pair.
// The temp file lives in the results directory, which keeps the path
// fds2ascii sees short (the tool's Fortran I/O truncates long paths) and
// makes the name collision-free under the single-writer assumption.
func TempOutputName(chid string, t int) string {
	return fmt.Sprintf("__tmp_%s_t%d.csv", chid, t)
}
