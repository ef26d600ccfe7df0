package config

const (
	defaultDataDir              = "~/.local/share/redink"
	defaultUploadsDir           = "~/.local/share/redink/uploads"
	defaultAnnotatedDir         = "~/.local/share/redink/annotated"
	defaultExportDir            = "~/.local/share/redink/exports"
	defaultLogDir               = "~/.local/share/redink/logs"
	defaultLogRetentionDays     = 60
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7519"
	defaultOCRBaseURL           = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultOCRModel             = "qwen-vl-max"
	defaultOCRTimeoutSeconds    = 120
	defaultOCRMaxAttempts       = 3
	defaultOCRRetryDelaySeconds = 2
	defaultBBoxPadRatio         = 0.2
	defaultJPEGQuality          = 92
	defaultExportRetentionMin   = 60
	defaultNotifyRequestTimeout = 10
	defaultNotifyDedupSeconds   = 600
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			UploadsDir:   defaultUploadsDir,
			AnnotatedDir: defaultAnnotatedDir,
			ExportDir:    defaultExportDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		OCR: OCR{
			BaseURL:           defaultOCRBaseURL,
			Model:             defaultOCRModel,
			TimeoutSeconds:    defaultOCRTimeoutSeconds,
			MaxAttempts:       defaultOCRMaxAttempts,
			RetryDelaySeconds: defaultOCRRetryDelaySeconds,
		},
		Preprocess: Preprocess{
			Deskew:          true,
			EnhanceContrast: true,
			RefineBBoxes:    true,
			BBoxPadRatio:    defaultBBoxPadRatio,
		},
		Annotate: Annotate{
			JPEGQuality: defaultJPEGQuality,
		},
		Export: Export{
			RetentionMinutes: defaultExportRetentionMin,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			TaskComplete:       true,
			Review:             true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
