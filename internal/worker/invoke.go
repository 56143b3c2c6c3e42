package worker

import (
	"context"
	"fmt"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Invoker executes a Command. Both *Worker and the model manager satisfy it.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (any, error)
}

// Transcribe runs CommandTranscribe through inv.
func Transcribe(ctx context.Context, inv Invoker, args TranscribeArgs) (transcript.Result, error) {
	value, err := inv.Invoke(ctx, Command{Name: CommandTranscribe, Args: args})
	if err != nil {
		return transcript.Result{}, err
	}
	result, ok := value.(transcript.Result)
	if !ok {
		return transcript.Result{}, unexpectedResult(KindSpeechToText, CommandTranscribe, value)
	}
	return result, nil
}

// Translate runs CommandTranslate through inv.
func Translate(ctx context.Context, inv Invoker, args TranslateArgs) (string, error) {
	value, err := inv.Invoke(ctx, Command{Name: CommandTranslate, Args: args})
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", unexpectedResult(KindTranslation, CommandTranslate, value)
	}
	return text, nil
}

func unexpectedResult(kind, command string, value any) error {
	return services.Wrap(services.ErrExternalTool, kind, command, fmt.Sprintf("unexpected result type %T", value), nil)
}
