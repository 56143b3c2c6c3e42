// Package daemon runs the long-lived scribe server.
//
// It wires configuration, the model registry, the upload store and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances on the same data directory. Stopping the daemon shuts the HTTP
// server down first and then stops every loaded model.
package daemon
