package config

const (
	defaultDataDir                  = "~/.local/share/bioviz"
	defaultLogDir                   = "~/.local/share/bioviz/logs"
	defaultEngineBinary             = "bio-engine"
	defaultPython                   = "python3"
	defaultStartupTimeoutSeconds    = 30
	defaultStopTimeoutSeconds       = 5
	defaultHeartbeatIntervalSeconds = 30
	defaultMinProtocolVersion       = "1.0.0"
	defaultCommandTimeoutSeconds    = 60
	defaultAnalyzeTimeoutSeconds    = 300
	defaultDownloadTimeoutSeconds   = 300
	defaultChatTimeoutSeconds       = 180
	defaultHistoryMaxEntries        = 500
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

func defaultCommandTimeouts() map[string]int {
	return map[string]int{
		"ANALYZE":          defaultAnalyzeTimeoutSeconds,
		"DOWNLOAD_PATHWAY": defaultDownloadTimeoutSeconds,
		"CHAT":             defaultChatTimeoutSeconds,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultPathwayCacheDir(),
		},
		Engine: Engine{
			Binary:             defaultEngineBinary,
			Python:             defaultPython,
			StartupTimeout:     defaultStartupTimeoutSeconds,
			StopTimeout:        defaultStopTimeoutSeconds,
			HeartbeatInterval:  defaultHeartbeatIntervalSeconds,
			MinProtocolVersion: defaultMinProtocolVersion,
		},
		Timeouts: Timeouts{
			DefaultSeconds: defaultCommandTimeoutSeconds,
			Commands:       defaultCommandTimeouts(),
		},
		History: History{
			Enabled:    true,
			MaxEntries: defaultHistoryMaxEntries,
		},
		Logging: Logging{
			Format:           defaultLogFormat,
			Level:            defaultLogLevel,
			EchoWorkerStderr: true,
		},
	}
}
