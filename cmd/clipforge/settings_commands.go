package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/artifactcache"
	"clipforge/internal/config"
	"clipforge/internal/store"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change persisted pipeline settings",
	}
	settingsCmd.AddCommand(newSettingsListCommand(ctx))
	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	settingsCmd.AddCommand(newSettingsUnsetCommand(ctx))
	return settingsCmd
}

func newSettingsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show effective settings and where each value comes from",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				persisted, err := st.Settings(cmd.Context())
				if err != nil {
					return err
				}
				effective, err := ctx.pipelineConfig(cmd.Context(), st, cmd, nil)
				if err != nil {
					return err
				}
				values := effective.Settings()
				rows := make([][]string, 0, len(config.SettingKeys))
				for _, key := range config.SettingKeys {
					source := "config"
					if strings.TrimSpace(persisted[key]) != "" {
						source = "settings"
					}
					value := values[key]
					if value == "" {
						value = "-"
					}
					rows = append(rows, []string{key, value, source})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value", "Source"}, rows, nil))
				return nil
			})
		},
	}
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if err := checkSettingKey(key); err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				effective, err := ctx.pipelineConfig(cmd.Context(), st, cmd, nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), effective.Settings()[key])
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting used by later runs",
		Long: `Persist a setting used by later runs.

audio_padding and fade_duration are not part of the merged-clip and final-video
cache keys. Existing artifacts keep their old padding and fades until you delete
clips/ (audio_padding) or done/ (fade_duration) under the output directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			value := strings.TrimSpace(args[1])
			if err := config.ValidateSetting(key, value); err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.SetSetting(cmd.Context(), key, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
				if kind, ok := staleCacheKind(key); ok {
					cfg, err := ctx.ensureConfig()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Existing artifacts are reused; delete %s to regenerate them with the new value\n",
						filepath.Join(cfg.Paths.OutputDir, string(kind)))
				}
				return nil
			})
		},
	}
}

func newSettingsUnsetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a persisted setting so the config file default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if err := checkSettingKey(key); err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.DeleteSetting(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s unset\n", key)
				return nil
			})
		},
	}
}

func checkSettingKey(key string) error {
	for _, candidate := range config.SettingKeys {
		if candidate == key {
			return nil
		}
	}
	return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(config.SettingKeys, ", "))
}

// staleCacheKind names the cache whose keys ignore the given setting.
func staleCacheKind(key string) (artifactcache.Kind, bool) {
	switch key {
	case config.SettingAudioPadding:
		return artifactcache.KindClip, true
	case config.SettingFadeDuration:
		return artifactcache.KindFinal, true
	}
	return "", false
}
