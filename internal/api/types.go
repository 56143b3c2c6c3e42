package api

import "scribe/internal/modelhost"

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ModelsResponse is returned by GET /api/models.
type ModelsResponse struct {
	Models []modelhost.Status `json:"models"`
}

// TranscribeResponse is returned by POST /api/transcribe.
type TranscribeResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Text           string         `json:"text"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// TranslateResponse is returned by POST /api/translate.
type TranslateResponse struct {
	Translation string `json:"translation"`
}

// SubtitleTranslateRequest is the body of POST /api/subtitles/translate.
type SubtitleTranslateRequest struct {
	SRT            string         `json:"srt"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
