package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent per-language runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, historyViews(runs))
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						shortID(run.BatchID),
						run.Language,
						string(run.Status),
						formatDuration(run.Duration()),
						runOutcome(run),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Batch", "Language", "Status", "Time", "Output"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type historyView struct {
	ID           string    `json:"id"`
	BatchID      string    `json:"batch_id"`
	Language     string    `json:"language"`
	Units        int       `json:"units"`
	Status       string    `json:"status"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	FailureKind  string    `json:"failure_kind,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

func historyViews(runs []store.RunRecord) []historyView {
	views := make([]historyView, 0, len(runs))
	for _, run := range runs {
		views = append(views, historyView{
			ID:           run.ID,
			BatchID:      run.BatchID,
			Language:     run.Language,
			Units:        run.Units,
			Status:       string(run.Status),
			ArtifactPath: run.ArtifactPath,
			Error:        run.ErrorMessage,
			FailureKind:  run.FailureKind,
			StartedAt:    run.StartedAt,
			FinishedAt:   run.FinishedAt,
		})
	}
	return views
}

func runOutcome(run store.RunRecord) string {
	switch run.Status {
	case store.RunCompleted:
		return run.ArtifactPath
	case store.RunFailed:
		msg := strings.TrimSpace(run.ErrorMessage)
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		if run.FailureKind != "" {
			return run.FailureKind + ": " + msg
		}
		return msg
	default:
		return "-"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
