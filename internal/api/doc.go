// Package api exposes the transcription use cases over HTTP.
//
// Routes live under /api and are served by a chi router. Every route except
// /api/health requires a bearer token when one is configured, either in
// plain text (paths.api_token) or as a bcrypt hash (paths.api_token_hash).
//
// Errors are written as {"error": ..., "details": ...} with the HTTP status
// chosen from the error's class:
//
//	validation      400
//	not_found       404
//	configuration   500
//	external_tool   502
//	transient       503
//	timeout         504
package api
