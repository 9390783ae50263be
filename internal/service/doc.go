package service

// Package service implements supervision of a single server process.
//
// Overview
// The Supervisor owns the restart loop. Each iteration asks a Launcher for a
// new child, publishes the returned Handle in a ChildSlot, waits for the
// child to exit and decides whether to launch again.
//
// ProcessLauncher is a thin, opinionated wrapper around os/exec:
//   - builds the java command line with the injected agent
//   - merges stdout and stderr into a single io.Pipe
//   - starts the OutputBridge for the new child before returning
//   - exposes a mutex guarded stdin writer on the Handle
//
// Data flow:
//
//   operator stdin --> InputBridge --> ChildSlot.Current() --> Handle.WriteLine --> child stdin
//
//   Supervisor              ProcessLauncher          child
//       |  Launch() ------------->| exec.Start ------->|
//       |                         | OutputBridge <-----| stdout+stderr
//       |<-------- *Handle -------|   |--> console "[SERVER] line"
//       |  slot.Set(h)                |--> log file (append, per line)
//       |  h.Wait() ... exit code
//       |  slot.Clear(h)
//       |  0 -> stop / non-zero -> backoff, loop
//
// Invariants:
//   - At most one child at a time, the slot holds it while it runs.
//   - Exit code 0 is the only clean shutdown, nothing is relaunched after it.
//   - Non-zero exits and launch failures are retried without a limit, each
//     after the backoff delay, until the StateCell is stopped.
//   - The OutputBridge of a child never outlives Handle.Wait.
//   - Bridge I/O faults never reach the Supervisor.
//   - The InputBridge drops input while the installer phase is not idle.
//
// internal/service/supervisor_test.go is the best source about how to
// properly use the Supervisor struct.
