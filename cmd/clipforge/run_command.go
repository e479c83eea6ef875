package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/pipeline"
	"clipforge/internal/preflight"
	"clipforge/internal/services"
	"clipforge/internal/store"
)

// pipelineFlags are the per-run overrides of persisted settings.
type pipelineFlags struct {
	voice    string
	fps      int
	scale    float64
	duration int
	fade     float64
	padding  float64
	source   string
	targets  []string
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.voice, "voice", "", "Voice name or id")
	flags.IntVar(&f.fps, "fps", 0, "Frames per second")
	flags.Float64Var(&f.scale, "scale", 0, "Peak zoom scale (>= 1.0)")
	flags.IntVar(&f.duration, "duration", 0, "Clip duration in seconds")
	flags.Float64Var(&f.fade, "fade", 0, "Fade in/out duration in seconds")
	flags.Float64Var(&f.padding, "padding", 0, "Silence around narration in seconds")
	flags.StringVar(&f.source, "source", "", "Source language code or \"auto\"")
	flags.StringSliceVar(&f.targets, "target", nil, "Target language codes (repeatable or comma separated)")
}

// apply overlays the flags set on cmd. Values go through the same parsing as
// persisted settings so both paths normalize identically.
func (f *pipelineFlags) apply(cmd *cobra.Command, base config.PipelineConfig) (config.PipelineConfig, error) {
	overrides := map[string]string{}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("voice") {
		overrides[config.SettingVoice] = f.voice
	}
	if changed("fps") {
		overrides[config.SettingFPS] = strconv.Itoa(f.fps)
	}
	if changed("scale") {
		overrides[config.SettingScale] = strconv.FormatFloat(f.scale, 'f', -1, 64)
	}
	if changed("duration") {
		overrides[config.SettingVideoLength] = strconv.Itoa(f.duration)
	}
	if changed("fade") {
		overrides[config.SettingFadeDuration] = strconv.FormatFloat(f.fade, 'f', -1, 64)
	}
	if changed("padding") {
		overrides[config.SettingAudioPadding] = strconv.FormatFloat(f.padding, 'f', -1, 64)
	}
	if changed("source") {
		overrides[config.SettingSourceLanguage] = f.source
	}
	out, err := base.WithSettings(overrides)
	if err != nil {
		return config.PipelineConfig{}, err
	}
	if changed("target") {
		// An explicit empty --target clears persisted targets.
		if out, err = out.WithTargets(f.targets); err != nil {
			return config.PipelineConfig{}, fmt.Errorf("--target: %w", err)
		}
	}
	return out, nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var textFile string
	var imagesDir string
	flags := &pipelineFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce a final video per language from a text file and image directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := checkRunReadiness(cfg); err != nil {
				return err
			}
			batch, err := pipeline.LoadBatch(textFile, imagesDir)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			return ctx.withStore(runCtx, func(st *store.Store) error {
				pcfg, err := ctx.pipelineConfig(runCtx, st, cmd, flags)
				if err != nil {
					return err
				}
				if err := pcfg.Validate(); err != nil {
					return services.Wrap(services.ErrValidation, "run", "settings", "", err)
				}
				orch, _, err := pipeline.Build(cfg, st, ctx.pipelineProviders(), ctx.loggerFor())
				if err != nil {
					return err
				}
				report := orch.Run(runCtx, batch, pcfg)
				printReport(cmd.OutOrStdout(), report)
				if report.Failed() {
					if err := runCtx.Err(); err != nil {
						return err
					}
					return fmt.Errorf("%d of %d languages failed", report.FailedCount(), len(report.Languages))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&textFile, "text", "", "Text file with one narration line per clip")
	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory holding <line>.png|jpg|jpeg|webp")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("images")
	flags.register(cmd)
	return cmd
}

func checkRunReadiness(cfg *config.Config) error {
	var problems []string
	for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
		problems = append(problems, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	for _, status := range deps.Missing(preflight.CheckSystemDeps(cfg)) {
		problems = append(problems, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "run", "preflight", strings.Join(problems, "; "), nil)
}

func printReport(out io.Writer, report pipeline.Report) {
	rows := make([][]string, 0, len(report.Languages))
	for _, lang := range report.Languages {
		status := statusLabel(out, !lang.Failed(), "ok", "failed ("+string(lang.Kind)+")")
		output := lang.Final.Path
		if lang.Failed() {
			output = "-"
		}
		rows = append(rows, []string{
			lang.Language,
			status,
			strconv.Itoa(len(lang.Clips)),
			formatDuration(lang.Duration),
			output,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Language", "Status", "Clips", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	for _, lang := range report.Languages {
		if !lang.Failed() {
			continue
		}
		fmt.Fprintf(out, "%s: %v\n", lang.Language, lang.Err)
		var mismatch *services.DurationMismatchError
		if errors.As(lang.Err, &mismatch) {
			fmt.Fprintf(out, "  video is %.2fs short\n", mismatch.Deficit())
		}
		if remedy := services.Remedy(lang.Kind); remedy != "" {
			fmt.Fprintf(out, "  remedy: %s\n", remedy)
		}
	}
	if report.Failed() {
		return
	}
	if len(report.Languages) > 0 {
		fmt.Fprintf(out, "All %d languages completed in %s (outputs under %s)\n",
			len(report.Languages), formatDuration(report.Duration), filepath.Dir(report.Languages[0].Final.Path))
	}
}
