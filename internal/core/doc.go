// Package core defines the domain model for batch SLCF extraction.
//
// The package has two halves:
//
//   - Pure derivations: variable-index windows per group, time-averaging
//     windows per time point, and the stdin script fds2ascii consumes for
//     one extraction. These are deterministic value computations with no
//     side effects, so they carry the whole correctness burden of the
//     batch and are tested exhaustively.
//
//   - The Invoker: a thin wrapper over one external fds2ascii process,
//     launched with its working directory set to the simulation results
//     directory and fed the full script as its input stream in one shot.
//
// Skip/commit policy (which pairs run, where temp files go, when a temp
// file becomes a final artifact) lives in internal/batch, not here.
package core
