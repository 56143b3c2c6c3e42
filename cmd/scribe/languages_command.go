package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/language"
	"scribe/internal/worker"
)

var modelAliases = map[string]string{
	"whisper":  worker.ModelWhisper,
	"mbart":    worker.ModelMBART,
	"seamless": worker.ModelSeamless,
}

func newLanguagesCommand() *cobra.Command {
	var (
		model  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:         "languages",
		Short:       "List supported languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := language.All()
			if model = strings.TrimSpace(model); model != "" {
				supported, err := language.Supported(resolveModelAlias(model))
				if err != nil {
					return err
				}
				langs = supported
			}
			if asJSON {
				return writeJSON(cmd, langs)
			}

			rows := make([][]string, 0, len(langs))
			for _, lang := range langs {
				rows = append(rows, []string{
					lang.Code,
					lang.Name,
					lang.NativeName(),
					dash(lang.Whisper),
					dash(lang.MBART),
					dash(lang.Seamless),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Code", "Name", "Native", "Whisper", "mBART", "Seamless"},
				rows,
				nil,
			))
			fmt.Fprintf(out, "%d languages\n", len(langs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Only list languages this model supports (whisper, mbart, seamless or a full model name)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func resolveModelAlias(model string) string {
	if full, ok := modelAliases[strings.ToLower(model)]; ok {
		return full
	}
	return model
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
