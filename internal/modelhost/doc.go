// Package modelhost owns the controller side of every model worker.
//
// A Manager starts its Worker lazily on the first Invoke, forwards requests
// synchronously, and re-arms an idle timer after each call so the loaded
// model is released after a continuous quiet period. The eviction check and
// the start path share the manager mutex and an in-flight counter, so a
// worker is never stopped while a request is queued or running.
//
// Registry builds one Manager per resource kind on first use behind a
// double-checked guard and is passed explicitly to the daemon and CLI.
package modelhost
