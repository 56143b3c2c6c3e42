// Package subtitles converts transcripts into SubRip (SRT) documents and back.
//
// A Segment keeps the recognizer's counter and time range so translated text
// can be written back onto the original timing without reordering cues.
package subtitles
