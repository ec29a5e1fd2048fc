package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "PTP_INGEST_CONFIG"
	EnvDestination = "PTP_INGEST_DESTINATION"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // PTP_INGEST_CONFIG: override config file path
	Destination string // PTP_INGEST_DESTINATION: destination root override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		Destination: os.Getenv(EnvDestination),
	}
}
