// Package preflight provides readiness checks for the directories, external
// executables and running server scribe depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure as a warning;
//     models load lazily, so a missing binary only surfaces on first use.
//   - The CLI "scribe status" command renders the same results next to the
//     model state reported by the server.
package preflight
