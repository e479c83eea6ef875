package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"clipforge/internal/keypool"
	"clipforge/internal/services"
	"clipforge/internal/store"
)

func newKeysCommand(ctx *commandContext) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys and their quota",
	}
	keysCmd.AddCommand(newKeysAddCommand(ctx))
	keysCmd.AddCommand(newKeysListCommand(ctx))
	keysCmd.AddCommand(newKeysRemoveCommand(ctx))
	keysCmd.AddCommand(newKeysRefreshCommand(ctx))
	keysCmd.AddCommand(newKeysWatchCommand(ctx))
	return keysCmd
}

func resolveProvider(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case keypool.ProviderSpeech, "speech", "tts":
		return keypool.ProviderSpeech, nil
	case keypool.ProviderTranslation, "translation":
		return keypool.ProviderTranslation, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want %s or %s)", name, keypool.ProviderSpeech, keypool.ProviderTranslation)
	}
}

func newKeysAddCommand(ctx *commandContext) *cobra.Command {
	var quota int64

	cmd := &cobra.Command{
		Use:   "add <provider> <secret>",
		Short: "Register an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := resolveProvider(args[0])
			if err != nil {
				return err
			}
			total := quota
			if total <= 0 {
				total = ctx.config.Speech.DefaultQuota
				if provider == keypool.ProviderTranslation {
					total = ctx.config.Translation.DefaultQuota
				}
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := ctx.pool(st, provider).Register(cmd.Context(), args[1], total); err != nil {
					return err
				}
				entry := store.CredentialEntry{Secret: strings.TrimSpace(args[1])}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s key %s with quota %d\n", provider, entry.Masked(), total)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&quota, "quota", 0, "Character quota of the key (defaults per provider)")
	return cmd
}

func newKeysListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list [provider]",
		Short: "List registered keys with their quota snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := ""
			if len(args) == 1 {
				resolved, err := resolveProvider(args[0])
				if err != nil {
					return err
				}
				provider = resolved
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				entries, err := st.ListCredentials(cmd.Context(), provider)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, credentialViews(entries))
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No keys registered")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Provider,
						entry.Masked(),
						strconv.FormatInt(entry.QuotaUsed, 10),
						strconv.FormatInt(entry.QuotaTotal, 10),
						strconv.FormatInt(entry.Remaining(), 10),
						string(entry.State()),
						formatReset(entry.ResetTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Provider", "Key", "Used", "Total", "Remaining", "State", "Resets"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type credentialView struct {
	Provider   string `json:"provider"`
	Key        string `json:"key"`
	QuotaUsed  int64  `json:"quota_used"`
	QuotaTotal int64  `json:"quota_total"`
	Remaining  int64  `json:"remaining"`
	State      string `json:"state"`
	ResetTime  int64  `json:"reset_time,omitempty"`
}

func credentialViews(entries []store.CredentialEntry) []credentialView {
	views := make([]credentialView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, credentialView{
			Provider:   entry.Provider,
			Key:        entry.Masked(),
			QuotaUsed:  entry.QuotaUsed,
			QuotaTotal: entry.QuotaTotal,
			Remaining:  entry.Remaining(),
			State:      string(entry.State()),
			ResetTime:  entry.ResetTime,
		})
	}
	return views
}

func formatReset(epoch int64) string {
	if epoch <= 0 {
		return "-"
	}
	return time.Unix(epoch, 0).Local().Format("2006-01-02 15:04")
}

func newKeysRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <provider> <secret>",
		Short: "Remove an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := resolveProvider(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				secret := strings.TrimSpace(args[1])
				if err := st.DeleteCredential(cmd.Context(), provider, secret); err != nil {
					return err
				}
				entry := store.CredentialEntry{Secret: secret}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s key %s\n", provider, entry.Masked())
				return nil
			})
		},
	}
}

func (c *commandContext) refreshers(st *store.Store) []*keypool.Refresher {
	providers := c.pipelineProviders()
	logger := c.loggerFor()
	speechReader := func(ctx context.Context, secret string) (keypool.Snapshot, error) {
		usage, err := providers.Speech.Usage(ctx, secret)
		if err != nil {
			return keypool.Snapshot{}, err
		}
		return keypool.Snapshot{Used: usage.Used, Total: usage.Total, ResetTime: usage.ResetTime}, nil
	}
	translationReader := func(ctx context.Context, secret string) (keypool.Snapshot, error) {
		usage, err := providers.Translation.Usage(ctx, secret)
		if err != nil {
			return keypool.Snapshot{}, err
		}
		return keypool.Snapshot{Used: usage.Used, Total: usage.Total}, nil
	}
	return []*keypool.Refresher{
		keypool.NewRefresher(c.pool(st, keypool.ProviderSpeech), speechReader, logger),
		keypool.NewRefresher(c.pool(st, keypool.ProviderTranslation), translationReader, logger),
	}
}

func newKeysRefreshCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Pull provider quota for keys whose reset time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				out := cmd.OutOrStdout()
				var failed []string
				for _, refresher := range ctx.refreshers(st) {
					result, err := refresher.Refresh(cmd.Context(), force)
					if errors.Is(err, services.ErrNoCredentials) {
						fmt.Fprintf(out, "%s: no keys registered\n", result.Provider)
						continue
					}
					if err != nil {
						failed = append(failed, fmt.Sprintf("%s: %v", result.Provider, err))
					}
					fmt.Fprintf(out, "%s: checked %d, refreshed %d, failed %d\n",
						result.Provider, result.Checked, result.Refreshed, result.Failed)
				}
				if len(failed) > 0 {
					return fmt.Errorf("quota refresh failed: %s", strings.Join(failed, "; "))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Refresh every key regardless of its reset time")
	return cmd
}

func newKeysWatchCommand(ctx *commandContext) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh quota on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := strings.TrimSpace(schedule)
			if spec == "" {
				spec = ctx.config.Workflow.QuotaRefreshCron
			}
			next, err := keypool.NextRun(spec, time.Now())
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Watching quota on %q (next run %s); press Ctrl+C to stop\n",
					spec, next.Local().Format(time.RFC3339))
				group, groupCtx := errgroup.WithContext(cmd.Context())
				for _, refresher := range ctx.refreshers(st) {
					group.Go(func() error {
						return refresher.Watch(groupCtx, spec)
					})
				}
				return group.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression (defaults to workflow.quota_refresh_cron)")
	return cmd
}
