// Command scribe runs the transcription server and offers local access to the
// same use cases.
//
// "scribe serve" starts the HTTP API in the foreground. "transcribe",
// "translate" and "subtitles translate" load the models in-process, which is
// convenient for scripting but pays the model load on every invocation.
// "status" inspects a running server.
package main
