package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/transcription"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		from   string
		to     string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "translate <text|->",
		Short: "Translate text; use - to read it from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[0]
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
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

			translation, err := svc.TranslateText(cmd.Context(), transcription.TranslateRequest{
				Text:           strings.TrimSpace(text),
				SourceLanguage: from,
				TargetLanguage: to,
				Parameters:     parameters,
			})
			if err != nil {
				return err
			}
			return writeText(cmd, "", translation+"\n")
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source language")
	cmd.Flags().StringVar(&to, "to", "", "Target language")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Model parameter as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	subtitlesCmd := &cobra.Command{
		Use:   "subtitles",
		Short: "Subtitle utilities",
	}
	subtitlesCmd.AddCommand(newSubtitlesTranslateCommand(ctx))
	return subtitlesCmd
}

func newSubtitlesTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		from   string
		to     string
		output string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "translate <file.srt>",
		Short: "Translate an SRT file, keeping its timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read subtitles: %w", err)
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

			srt, err := svc.TranslateSRT(cmd.Context(), transcription.SubtitleRequest{
				SRT:            string(data),
				SourceLanguage: from,
				TargetLanguage: to,
				Parameters:     parameters,
			})
			if err != nil {
				return err
			}
			return writeText(cmd, output, srt)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source language")
	cmd.Flags().StringVar(&to, "to", "", "Target language")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to a file instead of stdout")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Model parameter as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
