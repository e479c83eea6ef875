package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/keypool"
	"clipforge/internal/preflight"
	"clipforge/internal/store"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, credentials, and provider reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failures := 0

			depRows := [][]string{}
			for _, status := range preflight.CheckSystemDeps(cfg) {
				if !status.Available && !status.Optional {
					failures++
				}
				detail := status.Detail
				if status.Available {
					detail = status.Command
				}
				depRows = append(depRows, []string{status.Name, statusLabel(out, status.Available, "ok", "missing"), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Status", "Detail"}, depRows, nil))

			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				results := preflight.RunAll(cfg)
				speechPool := ctx.pool(st, keypool.ProviderSpeech)
				translationPool := ctx.pool(st, keypool.ProviderTranslation)
				results = append(results,
					preflight.CheckCredentials(cmd.Context(), speechPool),
					preflight.CheckCredentials(cmd.Context(), translationPool),
				)
				if !offline {
					providers := ctx.pipelineProviders()
					results = append(results,
						preflight.CheckSpeech(cmd.Context(), providers.Speech, speechPool),
						preflight.CheckTranslation(cmd.Context(), providers.Translation, translationPool),
					)
				}

				rows := make([][]string, 0, len(results))
				for _, result := range results {
					if !result.Passed {
						failures++
					}
					rows = append(rows, []string{result.Name, statusLabel(out, result.Passed, "ok", "fail"), result.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
				if failures > 0 {
					return fmt.Errorf("%d checks failed", failures)
				}
				fmt.Fprintln(out, "All checks passed")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip provider reachability checks")
	return cmd
}
