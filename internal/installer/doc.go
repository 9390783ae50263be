// Package installer implements the first run dialogue which collects the
// wrapper configuration from the operator.
//
// The dialogue is a small state machine driven by model.PhaseCell:
//
//	idle -> awaiting-endpoint -> awaiting-selection -> idle
//
// Every state other than idle tells the input bridge (internal/service) to
// discard what the operator types, so answers never reach a server. The
// installer reads from the same *bufio.Reader the input bridge uses later.
// A second reader over os.Stdin could buffer lines the other never sees.
//
// End of input while a question is pending aborts the whole program with
// ErrAborted. An empty candidate list aborts with ErrNoCandidates.
package installer
