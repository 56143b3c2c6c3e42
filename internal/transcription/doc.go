// Package transcription implements the use cases exposed by the API and the
// CLI: transcribing an audio file to text, cues or SRT, optionally
// translated, and translating free text or an existing SRT document.
//
// Model access goes through the modelhost managers, so every call shares the
// lazy loading and idle eviction of the underlying workers.
package transcription
