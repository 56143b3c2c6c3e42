// Package language normalizes user-supplied language identifiers and maps
// them to the codes each model expects: ISO 639-1 for whisper, mBART-50
// locale codes (en_XX, fr_XX) and SeamlessM4T ISO 639-3 codes (cmn, arb).
//
// The table lives in mappings.yaml and is embedded at build time.
package language
