package config

const (
	defaultOutputDir            = "~/.local/share/clipforge/output"
	defaultStateDir             = "~/.local/share/clipforge"
	defaultLogDir               = "~/.local/share/clipforge/logs"
	defaultFramesPerSecond      = 30
	defaultPeakScale            = 1.5
	defaultClipDurationSeconds  = 15
	defaultFadeDurationSeconds  = 0.25
	defaultAudioPaddingSeconds  = 0.75
	defaultFrameWidth           = 1920
	defaultFrameHeight          = 1080
	defaultSpeechBaseURL        = "https://api.elevenlabs.io"
	defaultSpeechModel          = "eleven_multilingual_v2"
	defaultSpeechTimeoutSeconds = 60
	defaultSpeechQuota          = 20000
	defaultTranslationBaseURL   = "https://api-free.deepl.com"
	defaultTranslationTimeout   = 60
	defaultTranslationQuota     = 500000
	defaultPairConcurrency      = 2
	defaultCallTimeoutSeconds   = 120
	defaultEncodeTimeoutSeconds = 600
	defaultQuotaRefreshCron     = "@hourly"
	defaultMinFreeSpaceMiB      = 512
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	maxPairConcurrency          = 16
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Pipeline: Pipeline{
			FramesPerSecond:     defaultFramesPerSecond,
			PeakScale:           defaultPeakScale,
			ClipDurationSeconds: defaultClipDurationSeconds,
			FadeDurationSeconds: defaultFadeDurationSeconds,
			AudioPaddingSeconds: defaultAudioPaddingSeconds,
			FrameWidth:          defaultFrameWidth,
			FrameHeight:         defaultFrameHeight,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			Model:          defaultSpeechModel,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
			DefaultQuota:   defaultSpeechQuota,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			TimeoutSeconds: defaultTranslationTimeout,
			DefaultQuota:   defaultTranslationQuota,
		},
		Workflow: Workflow{
			PairConcurrency:      defaultPairConcurrency,
			CallTimeoutSeconds:   defaultCallTimeoutSeconds,
			EncodeTimeoutSeconds: defaultEncodeTimeoutSeconds,
			QuotaRefreshCron:     defaultQuotaRefreshCron,
			MinFreeSpaceMiB:      defaultMinFreeSpaceMiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
