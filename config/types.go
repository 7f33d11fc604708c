package config

// Store selects the database backend.
type Store struct {
	// Backend is "leveldb" or "memory".
	Backend string `toml:"Backend"`
	Path    string `toml:"Path,omitempty"`
}

// Log configures the structured logger and its rotating file sink.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
	MaxAgeDays int    `toml:"MaxAgeDays,omitempty"`
	Compress   bool   `toml:"Compress,omitempty"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint,omitempty"`
	Insecure    bool    `toml:"Insecure,omitempty"`
	Headers     string  `toml:"Headers,omitempty"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio,omitempty"`
}

// Protocol carries runtime knobs that are not part of protocol state.
type Protocol struct {
	// SwapFee is the fee taken by the built-in swap venue, as a decimal.
	SwapFee string `toml:"SwapFee"`
}
