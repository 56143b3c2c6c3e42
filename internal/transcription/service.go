package transcription

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/sentence"
	"scribe/internal/services"
	"scribe/internal/subtitles"
	"scribe/internal/transcript"
	"scribe/internal/uploads"
	"scribe/internal/worker"
)

// Models hands out the per-kind managers.
type Models interface {
	SpeechToText() (*modelhost.Manager, error)
	Translation() (*modelhost.Manager, error)
}

// TranscribeRequest describes an audio file to transcribe.
type TranscribeRequest struct {
	Path string
	// SourceLanguage may be empty or "auto" to let the model detect it.
	SourceLanguage string
	// TargetLanguage, when set, translates the result.
	TargetLanguage          string
	TranscriptionParameters map[string]any
	TranslationParameters   map[string]any
}

// TranslateRequest describes free text to translate.
type TranslateRequest struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	Parameters     map[string]any
}

// SubtitleRequest describes an SRT document to translate.
type SubtitleRequest struct {
	SRT            string
	SourceLanguage string
	TargetLanguage string
	Parameters     map[string]any
}

// Service runs transcription and translation use cases.
type Service struct {
	cfg     *config.Config
	models  Models
	uploads *uploads.Store
	logger  *slog.Logger
}

// New returns a Service. store may be nil when no uploads are managed.
func New(cfg *config.Config, models Models, store *uploads.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		models:  models,
		uploads: store,
		logger:  logging.NewComponentLogger(logger, "transcription"),
	}
}

// Transcribe runs speech recognition on req.Path and returns the raw result.
// Translation options are ignored.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (transcript.Result, error) {
	ctx = services.WithOperation(ctx, "transcribe")
	return s.transcribe(ctx, req)
}

// TranscribeText returns the transcript text, translated sentence by
// sentence when a target language is set.
func (s *Service) TranscribeText(ctx context.Context, req TranscribeRequest) (string, error) {
	ctx = services.WithOperation(ctx, "transcribe_text")
	result, err := s.transcribe(ctx, req)
	if err != nil {
		return "", err
	}
	if !s.wantsTranslation(req.SourceLanguage, result.Language, req.TargetLanguage) {
		return result.Text, nil
	}
	segments := subtitles.FromTranscript(result)
	sentences, err := s.translateSentences(ctx, sentence.Build(segments), sourceFor(req.SourceLanguage, result.Language), req.TargetLanguage, req.TranslationParameters)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if text := strings.TrimSpace(sent.Translation); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// TranscribeSegments returns one cue per recognized segment, with the text
// redistributed from the translated sentences when a target language is set.
func (s *Service) TranscribeSegments(ctx context.Context, req TranscribeRequest) ([]subtitles.Segment, error) {
	ctx = services.WithOperation(ctx, "transcribe_segments")
	return s.transcribeSegments(ctx, req)
}

// TranscribeSRT renders TranscribeSegments as an SRT document.
func (s *Service) TranscribeSRT(ctx context.Context, req TranscribeRequest) (string, error) {
	ctx = services.WithOperation(ctx, "transcribe_srt")
	segments, err := s.transcribeSegments(ctx, req)
	if err != nil {
		return "", err
	}
	return subtitles.FormatSRT(segments), nil
}

// TranslateText translates req.Text as a single unit.
func (s *Service) TranslateText(ctx context.Context, req TranslateRequest) (string, error) {
	ctx = services.WithOperation(ctx, "translate_text")
	if strings.TrimSpace(req.Text) == "" {
		return "", invalid("translate", "text is required")
	}
	if strings.TrimSpace(req.SourceLanguage) == "" || strings.TrimSpace(req.TargetLanguage) == "" {
		return "", invalid("translate", "source and target language are required")
	}
	src, tgt, err := s.translationCodes(req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return "", err
	}
	mgr, err := s.models.Translation()
	if err != nil {
		return "", err
	}
	ctx = services.WithModelKind(ctx, worker.KindTranslation)
	started := time.Now()
	text, err := worker.Translate(ctx, mgr, worker.TranslateArgs{
		Text:           req.Text,
		SourceLanguage: src,
		TargetLanguage: tgt,
		Parameters:     req.Parameters,
	})
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, s.logger).Info("text translated",
		logging.String("source_language", src),
		logging.String("target_language", tgt),
		logging.Int("characters", len(req.Text)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return text, nil
}

// TranslateSRT parses req.SRT, translates it sentence by sentence and
// returns the document with the original numbering and timing.
func (s *Service) TranslateSRT(ctx context.Context, req SubtitleRequest) (string, error) {
	ctx = services.WithOperation(ctx, "translate_srt")
	if strings.TrimSpace(req.SourceLanguage) == "" || strings.TrimSpace(req.TargetLanguage) == "" {
		return "", invalid("translate srt", "source and target language are required")
	}
	segments, err := subtitles.ParseSRT(req.SRT)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", invalid("translate srt", "subtitle document has no cues")
	}
	if err := s.translateSegments(ctx, segments, req.SourceLanguage, req.TargetLanguage, req.Parameters); err != nil {
		return "", err
	}
	return subtitles.FormatSRT(segments), nil
}

func (s *Service) transcribeSegments(ctx context.Context, req TranscribeRequest) ([]subtitles.Segment, error) {
	result, err := s.transcribe(ctx, req)
	if err != nil {
		return nil, err
	}
	segments := subtitles.FromTranscript(result)
	if !s.wantsTranslation(req.SourceLanguage, result.Language, req.TargetLanguage) {
		return segments, nil
	}
	if err := s.translateSegments(ctx, segments, sourceFor(req.SourceLanguage, result.Language), req.TargetLanguage, req.TranslationParameters); err != nil {
		return nil, err
	}
	return segments, nil
}

func (s *Service) transcribe(ctx context.Context, req TranscribeRequest) (transcript.Result, error) {
	defer s.cleanup(ctx, req.Path)

	if strings.TrimSpace(req.Path) == "" {
		return transcript.Result{}, invalid("transcribe", "audio file is required")
	}
	code, err := s.speechCode(req.SourceLanguage)
	if err != nil {
		return transcript.Result{}, err
	}
	if strings.TrimSpace(req.TargetLanguage) != "" {
		if _, err := language.ForModel(req.TargetLanguage, s.cfg.Translation.ModelName); err != nil {
			return transcript.Result{}, err
		}
	}
	mgr, err := s.models.SpeechToText()
	if err != nil {
		return transcript.Result{}, err
	}

	ctx = services.WithModelKind(ctx, worker.KindSpeechToText)
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("transcription started", logging.String("path", req.Path), logging.String("language", code))
	started := time.Now()
	result, err := worker.Transcribe(ctx, mgr, worker.TranscribeArgs{
		Path:       req.Path,
		Language:   code,
		Parameters: req.TranscriptionParameters,
	})
	if err != nil {
		return transcript.Result{}, err
	}
	logger.Info("transcription completed",
		logging.String("language", result.Language),
		logging.Int("segments", len(result.Segments)),
		logging.Float64("audio_seconds", result.Duration()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *Service) translateSegments(ctx context.Context, segments []subtitles.Segment, source, target string, params map[string]any) error {
	sentences, err := s.translateSentences(ctx, sentence.Build(segments), source, target, params)
	if err != nil {
		return err
	}
	sentence.Reassemble(segments, sentences)
	return nil
}

func (s *Service) translateSentences(ctx context.Context, sentences []sentence.Sentence, source, target string, params map[string]any) ([]sentence.Sentence, error) {
	src, tgt, err := s.translationCodes(source, target)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return sentences, nil
	}
	mgr, err := s.models.Translation()
	if err != nil {
		return nil, err
	}
	ctx = services.WithModelKind(ctx, worker.KindTranslation)
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("translating sentences",
		logging.Int("sentences", len(sentences)),
		logging.String("source_language", src),
		logging.String("target_language", tgt),
	)
	started := time.Now()
	for i := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTimeout, "transcription", "translate", "request cancelled", err)
		}
		text, err := worker.Translate(ctx, mgr, worker.TranslateArgs{
			Text:           sentences[i].Text,
			SourceLanguage: src,
			TargetLanguage: tgt,
			Parameters:     params,
		})
		if err != nil {
			return nil, err
		}
		sentences[i].Translation = text
	}
	logger.Info("sentences translated",
		logging.Int("sentences", len(sentences)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return sentences, nil
}

func (s *Service) speechCode(input string) (string, error) {
	if isAuto(input) {
		return "", nil
	}
	return language.ForModel(input, s.cfg.SpeechToText.ModelName)
}

func (s *Service) translationCodes(source, target string) (string, string, error) {
	model := s.cfg.Translation.ModelName
	src, err := language.ForModel(source, model)
	if err != nil {
		return "", "", err
	}
	tgt, err := language.ForModel(target, model)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// wantsTranslation reports whether a target is set and differs from the
// spoken language.
func (s *Service) wantsTranslation(requested, detected, target string) bool {
	if strings.TrimSpace(target) == "" {
		return false
	}
	tgt, err := language.Normalize(target)
	if err != nil {
		return true
	}
	src, err := language.Normalize(sourceFor(requested, detected))
	if err != nil {
		return true
	}
	return src.Code != tgt.Code
}

func (s *Service) cleanup(ctx context.Context, path string) {
	if s.uploads == nil || !s.cfg.Uploads.DeleteAfterTranscription || !s.uploads.Contains(path) {
		return
	}
	if err := s.uploads.Remove(path); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to delete upload", "upload_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the upload directory"),
		)
	}
}

func sourceFor(requested, detected string) string {
	if isAuto(requested) {
		return detected
	}
	return requested
}

func isAuto(input string) bool {
	input = strings.TrimSpace(input)
	return input == "" || strings.EqualFold(input, "auto")
}

func invalid(operation, message string) error {
	return services.Wrap(services.ErrValidation, "transcription", operation, message, nil)
}
