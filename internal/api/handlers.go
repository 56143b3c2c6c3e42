package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"scribe/internal/services"
	"scribe/internal/transcription"
)

const (
	maxJSONBody     = 10 << 20
	multipartMemory = 32 << 20
	// multipartSlack covers form fields and part headers around the file.
	multipartSlack = 1 << 20
)

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, ModelsResponse{Models: s.models.Statuses()})
}

func (s *server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	req, filename, err := s.receiveUpload(w, r)
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	content, err := s.svc.TranscribeText(r.Context(), req)
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, TranscribeResponse{Filename: filename, Content: content})
}

func (s *server) handleTranscribeSRT(w http.ResponseWriter, r *http.Request) {
	req, _, err := s.receiveUpload(w, r)
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	srt, err := s.svc.TranscribeSRT(r.Context(), req)
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	writeText(w, srt)
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var body TranslateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	translation, err := s.svc.TranslateText(r.Context(), transcription.TranslateRequest{
		Text:           body.Text,
		SourceLanguage: body.SourceLanguage,
		TargetLanguage: body.TargetLanguage,
		Parameters:     body.Parameters,
	})
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, TranslateResponse{Translation: translation})
}

func (s *server) handleTranslateSubtitles(w http.ResponseWriter, r *http.Request) {
	var body SubtitleTranslateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	srt, err := s.svc.TranslateSRT(r.Context(), transcription.SubtitleRequest{
		SRT:            body.SRT,
		SourceLanguage: body.SourceLanguage,
		TargetLanguage: body.TargetLanguage,
		Parameters:     body.Parameters,
	})
	if err != nil {
		writeError(s.logger, r, w, err)
		return
	}
	writeText(w, srt)
}

// receiveUpload validates the multipart form and stores the file. Form
// fields are checked before anything is written to disk.
func (s *server) receiveUpload(w http.ResponseWriter, r *http.Request) (transcription.TranscribeRequest, string, error) {
	if limit := s.uploads.MaxBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return transcription.TranscribeRequest{}, "", err
		}
		return transcription.TranscribeRequest{}, "", badRequest("read form", "expected multipart/form-data with a file field", err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	source := strings.TrimSpace(r.FormValue("source_language"))
	if source == "" {
		return transcription.TranscribeRequest{}, "", badRequest("read form", "source_language is required", nil)
	}
	transcriptionParams, err := parseParameters("transcription_parameters", r.FormValue("transcription_parameters"))
	if err != nil {
		return transcription.TranscribeRequest{}, "", err
	}
	translationParams, err := parseParameters("translation_parameters", r.FormValue("translation_parameters"))
	if err != nil {
		return transcription.TranscribeRequest{}, "", err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return transcription.TranscribeRequest{}, "", badRequest("read form", "file is required", err)
	}
	defer file.Close()

	path, err := s.uploads.Save(header.Filename, file)
	if err != nil {
		return transcription.TranscribeRequest{}, "", err
	}
	return transcription.TranscribeRequest{
		Path:                    path,
		SourceLanguage:          source,
		TargetLanguage:          strings.TrimSpace(r.FormValue("target_language")),
		TranscriptionParameters: transcriptionParams,
		TranslationParameters:   translationParams,
	}, header.Filename, nil
}

func parseParameters(field, raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, badRequest("read form", field+" must be a JSON object", err)
	}
	return params, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return badRequest("decode body", "request body must be valid JSON", err)
	}
	return nil
}

func badRequest(operation, message string, err error) error {
	return services.Wrap(services.ErrValidation, "api", operation, message, err)
}
