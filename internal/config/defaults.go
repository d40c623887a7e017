package config

const (
	defaultConfigPath    = "~/.config/audiocloud/config.toml"
	projectConfigName    = "audiocloud.toml"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultWireFormat    = "json"
	defaultAtomicBatches = true
	defaultRejectCycles  = true

	envCatalogPath = "AUDIOCLOUD_CATALOG"
	envLogLevel    = "AUDIOCLOUD_LOG_LEVEL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			AtomicBatches: defaultAtomicBatches,
			RejectCycles:  defaultRejectCycles,
			WireFormat:    defaultWireFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
