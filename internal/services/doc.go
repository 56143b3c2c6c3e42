// Package services defines shared utilities consumed by the use-case layer,
// the model workers, and the HTTP API.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, operation names, and model kinds
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper, and Classify to turn a
//     marked error into a stable class the API maps onto status codes.
//
// Use these helpers when wiring new use cases so error handling and
// observability stay uniform across the service.
package services
