// Package worker isolates one expensive model resource inside its own
// execution unit and talks to it only through a message Channel.
//
// A Worker is started lazily by its owner, materializes the resource on the
// first step of its dispatch loop, executes Commands strictly one at a time,
// and returns tagged Outcomes. Computation failures come back as
// *ComputationError and leave the worker running; a closed channel or a
// failed materialization surfaces as *ChannelError and leaves the worker
// not alive so the owner can start it again.
//
// Backends supply the opaque compute: the whisper CLI for speech to text and
// a long-lived translation host process speaking newline-delimited JSON.
// Factory maps configured model names onto those backends.
package worker
