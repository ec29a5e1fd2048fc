package config

// Default values for configuration options. These are "layer 0" of the
// override chain and reproduce the zero-configuration behavior.
const (
	defaultDestination      = "."
	defaultDirPermissions   = "0755"
	defaultFilePermissions  = "0644"
	defaultTransferMode     = string(TransferAuto)
	defaultChunkSize        = "15MiB"
	defaultMaxWholeTransfer = "15MiB"
	defaultLargeFileWarning = "0"
	defaultUSBTimeout       = "0"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultWatchSettle      = "3s"
)

// DefaultConfig returns a Config populated with all default values. It is the
// starting point for TOML decoding so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputConfig:   defaultOutputConfig(),
		TransferConfig: defaultTransferConfig(),
		HistoryConfig:  defaultHistoryConfig(),
		LoggingConfig:  defaultLoggingConfig(),
		WatchConfig:    WatchConfig{WatchSettle: defaultWatchSettle},
	}
}

func defaultOutputConfig() OutputConfig {
	return OutputConfig{
		Destination:     defaultDestination,
		ZeroPadDates:    false,
		DirPermissions:  defaultDirPermissions,
		FilePermissions: defaultFilePermissions,
	}
}

func defaultTransferConfig() TransferConfig {
	return TransferConfig{
		TransferMode:     defaultTransferMode,
		ChunkSize:        defaultChunkSize,
		MaxWholeTransfer: defaultMaxWholeTransfer,
		LargeFileWarning: defaultLargeFileWarning,
		USBTimeout:       defaultUSBTimeout,
	}
}

// defaultHistoryConfig leaves HistoryDB empty; it is filled from the
// platform data directory at resolve time.
func defaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		History: true,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}
