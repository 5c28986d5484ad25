package config

const (
	defaultStateDir               = "~/.local/share/reelflow/state"
	defaultLogDir                 = "~/.local/share/reelflow/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultRequestTimeout         = 30
	defaultErrorRetryInterval     = 5
	defaultHeartbeatInterval      = 15
	defaultHeartbeatTimeout       = 120
	defaultTaskPollInterval       = 2
	defaultTaskPollMaxRetries     = 5
	defaultPendingStuckSeconds    = 30
	defaultProcessingStuckSeconds = 600
	defaultUploadConcurrency      = 3
	defaultNotifyRequestTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Workflow: Workflow{
			ErrorRetryInterval:     defaultErrorRetryInterval,
			HeartbeatInterval:      defaultHeartbeatInterval,
			HeartbeatTimeout:       defaultHeartbeatTimeout,
			TaskPollInterval:       defaultTaskPollInterval,
			TaskPollMaxRetries:     defaultTaskPollMaxRetries,
			PendingStuckSeconds:    defaultPendingStuckSeconds,
			ProcessingStuckSeconds: defaultProcessingStuckSeconds,
			UploadConcurrency:      defaultUploadConcurrency,
			WaitForGeneration:      true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Workflow:       true,
			Upload:         true,
			Processing:     true,
			Credits:        true,
			Advisories:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
