package models

// MConfig Structure
type MConfig struct {
	Name          string          `yaml:"name"`
	Host          string          `yaml:"host"`
	Port          int             `yaml:"port"`
	LogLevel      string          `yaml:"log_level"`
	DeveloperMode bool            `yaml:"developer_mode"`
	Engine        MEngineConfig   `yaml:"engine"`
	Snapshot      MSnapshotConfig `yaml:"snapshot"`
	Stream        MStreamConfig   `yaml:"stream"`
	Storage       MStorageConfig  `yaml:"storage"`
}

type MEngineConfig struct {
	MaxConcurrency    int `yaml:"max_concurrency"`
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"`
}

type MSnapshotConfig struct {
	BaseURL               string `yaml:"base_url"`
	APIKey                string `yaml:"api_key"` // Optional
	TTLSeconds            int    `yaml:"ttl_seconds"`
	NewsCount             int    `yaml:"news_count"`
	UpdateIntervalSeconds int    `yaml:"update_interval_seconds"`
}

type MStreamConfig struct {
	Provider  string           `yaml:"provider"` // "live" or "simulated"
	FeedURL   string           `yaml:"feed_url"`
	APIKey    string           `yaml:"api_key"`
	Symbols   []string         `yaml:"symbols"`
	Simulator MSimulatorConfig `yaml:"simulator"`
}

type MSimulatorConfig struct {
	MinIntervalMs    int     `yaml:"min_interval_ms"`
	MaxIntervalMs    int     `yaml:"max_interval_ms"`
	VolatilityPct    float64 `yaml:"volatility_pct"`
	StartPrice       float64 `yaml:"start_price"`
	OffHoursStretch  int     `yaml:"off_hours_stretch"` // interval multiplier when market closed
	CandleHistoryLen int     `yaml:"candle_history_len"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}
