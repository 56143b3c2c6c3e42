package config

const (
	defaultConfigPath             = "~/.config/scribe/config.toml"
	defaultDataDir                = "~/.local/share/scribe"
	defaultUploadDir              = "~/.local/share/scribe/uploads"
	defaultLogDir                 = "~/.local/share/scribe/logs"
	defaultAPIBind                = "127.0.0.1:8000"
	defaultDevice                 = "cpu"
	defaultSpeechToTextModelName  = "openai/whisper"
	defaultSpeechToTextModelType  = "turbo"
	defaultSpeechToTextBinary     = "whisper"
	defaultTranslationModelName   = "facebook/mbart-large-50-many-to-many-mmt"
	defaultTranslationHostCommand = "scribe-translate-host"
	defaultIdleTimeoutSeconds     = 60
	defaultStopGraceSeconds       = 5
	defaultInvokeTimeoutSeconds   = 0
	defaultMaxUploadMB            = 512
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		SpeechToText: SpeechToText{
			ModelName:    defaultSpeechToTextModelName,
			ModelType:    defaultSpeechToTextModelType,
			DownloadPath: defaultModelCacheDir("whisper"),
			Binary:       defaultSpeechToTextBinary,
		},
		Translation: Translation{
			ModelName:    defaultTranslationModelName,
			DownloadPath: defaultModelCacheDir("translation"),
			HostCommand:  []string{defaultTranslationHostCommand},
		},
		Models: Models{
			IdleTimeoutSeconds:   defaultIdleTimeoutSeconds,
			StopGraceSeconds:     defaultStopGraceSeconds,
			InvokeTimeoutSeconds: defaultInvokeTimeoutSeconds,
		},
		Uploads: Uploads{
			DeleteAfterTranscription: true,
			MaxUploadMB:              defaultMaxUploadMB,
		},
		API: API{
			AllowedOrigins: []string{"*"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
