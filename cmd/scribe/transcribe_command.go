package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		language string
		target   string
		format   string
		output   string
		params   []string
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input: %w", err)
			}
			if info, err := os.Stat(path); err != nil {
				return fmt.Errorf("input file: %w", err)
			} else if info.IsDir() {
				return fmt.Errorf("input %s is a directory", path)
			}
			parameters, err := parseParameterFlags(params)
			if err != nil {
				return err
			}

			svc, closeModels, err := ctx.localService()
			if err != nil {
				return err
			}
			defer closeModels()

			req := transcription.TranscribeRequest{
				Path:                    path,
				SourceLanguage:          language,
				TargetLanguage:          target,
				TranscriptionParameters: parameters,
			}

			var content string
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "text":
				content, err = svc.TranscribeText(cmd.Context(), req)
				content += "\n"
			case "srt":
				content, err = svc.TranscribeSRT(cmd.Context(), req)
			case "json":
				segments, segErr := svc.TranscribeSegments(cmd.Context(), req)
				if segErr != nil {
					return segErr
				}
				content, err = encodeJSON(segments)
			default:
				return fmt.Errorf("unsupported format %q (expected text, srt or json)", format)
			}
			if err != nil {
				return err
			}
			return writeText(cmd, output, content)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "auto", "Spoken language, or auto to detect it")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Translate the result into this language")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, srt or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Model parameter as key=value (repeatable)")
	return cmd
}
