package pipeline

import (
	"log/slog"
	"time"

	"clipforge/internal/artifactcache"
	"clipforge/internal/config"
	"clipforge/internal/keypool"
	"clipforge/internal/media"
	"clipforge/internal/notifications"
	"clipforge/internal/speech"
	"clipforge/internal/stage"
	"clipforge/internal/store"
	"clipforge/internal/translation"
)

// Providers are the external collaborators a run talks to.
type Providers struct {
	Speech      speech.Synthesizer
	Translation translation.Translator
	Encoder     media.Encoder
	Notifier    notifications.Service
}

// Build wires caches, credential pools and stage executors from cfg.
func Build(cfg *config.Config, st *store.Store, providers Providers, logger *slog.Logger) (*Orchestrator, *artifactcache.Layout, error) {
	layout, err := artifactcache.NewLayout(cfg.Paths.OutputDir, logger)
	if err != nil {
		return nil, nil, err
	}
	callTimeout := cfg.CallTimeout()
	encodeTimeout := cfg.EncodeTimeout()

	speechPool := keypool.New(st, keypool.ProviderSpeech, logger)
	opts := Options{
		Audio:       stage.NewAudio(layout.Audio, speechPool, providers.Speech, logger, callTimeout),
		Video:       stage.NewVideo(layout.Video, providers.Encoder, stage.NewPanSequencer(uint64(time.Now().UnixNano())), logger, encodeTimeout),
		Merge:       stage.NewMerge(layout.Clips, providers.Encoder, logger, encodeTimeout),
		Concat:      stage.NewConcat(layout.Final, providers.Encoder, logger, encodeTimeout),
		Runs:        st,
		Notifier:    providers.Notifier,
		Logger:      logger,
		Concurrency: cfg.Workflow.PairConcurrency,
	}
	if providers.Translation != nil {
		translationPool := keypool.New(st, keypool.ProviderTranslation, logger)
		opts.Translator = translation.NewBatch(providers.Translation, translationPool, logger, callTimeout)
	}
	return New(opts), layout, nil
}
