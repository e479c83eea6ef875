package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/keypool"
	"clipforge/internal/store"
	"clipforge/internal/translation"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List voices available to the registered speech keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				entry, err := ctx.pool(st, keypool.ProviderSpeech).Acquire(cmd.Context(), 0)
				if err != nil {
					return err
				}
				voices, err := ctx.pipelineProviders().Speech.Voices(cmd.Context(), entry.Secret)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, voice := range voices {
					fmt.Fprintln(out, voice)
				}
				return nil
			})
		},
	}
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List languages supported by the translation provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			var languageKind translation.LanguageKind
			switch strings.ToLower(strings.TrimSpace(kind)) {
			case "", string(translation.KindTarget):
				languageKind = translation.KindTarget
			case string(translation.KindSource):
				languageKind = translation.KindSource
			default:
				return fmt.Errorf("--kind must be %q or %q", translation.KindSource, translation.KindTarget)
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				entry, err := ctx.pool(st, keypool.ProviderTranslation).Acquire(cmd.Context(), 0)
				if err != nil {
					return err
				}
				languages, err := ctx.pipelineProviders().Translation.Languages(cmd.Context(), entry.Secret, languageKind)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(languages))
				for _, lang := range languages {
					rows = append(rows, []string{lang.Code, lang.Name})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Code", "Name"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "target", "Language list to show: source or target")
	return cmd
}
