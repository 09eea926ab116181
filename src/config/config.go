package config

import (
	"fmt"
	"os"

	"market-sync/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional settings the YAML may omit.
func (c *Config) applyDefaults() {
	if c.Engine.MaxConcurrency == 0 {
		c.Engine.MaxConcurrency = 4
	}
	if c.Snapshot.TTLSeconds == 0 {
		c.Snapshot.TTLSeconds = 300
	}
	if c.Snapshot.NewsCount == 0 {
		c.Snapshot.NewsCount = 20
	}
	if c.Snapshot.UpdateIntervalSeconds == 0 {
		c.Snapshot.UpdateIntervalSeconds = 300
	}
	if c.Stream.Simulator.MinIntervalMs == 0 {
		c.Stream.Simulator.MinIntervalMs = 50
	}
	if c.Stream.Simulator.MaxIntervalMs == 0 {
		c.Stream.Simulator.MaxIntervalMs = 200
	}
	if c.Stream.Simulator.VolatilityPct == 0 {
		c.Stream.Simulator.VolatilityPct = 0.2
	}
	if c.Stream.Simulator.StartPrice == 0 {
		c.Stream.Simulator.StartPrice = 100
	}
	if c.Stream.Simulator.OffHoursStretch == 0 {
		c.Stream.Simulator.OffHoursStretch = 10
	}
	if c.Stream.Simulator.CandleHistoryLen == 0 {
		c.Stream.Simulator.CandleHistoryLen = 500
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	if c.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("engine max concurrency must be greater than 0")
	}

	if c.Snapshot.BaseURL == "" {
		return fmt.Errorf("snapshot base_url cannot be empty")
	}
	if c.Snapshot.TTLSeconds <= 0 {
		return fmt.Errorf("snapshot ttl must be greater than 0")
	}

	switch c.Stream.Provider {
	case "live", "simulated":
	case "":
		return fmt.Errorf("stream provider cannot be empty")
	default:
		return fmt.Errorf("unknown stream provider: %s", c.Stream.Provider)
	}
	if c.Stream.Provider == "live" && c.Stream.FeedURL == "" {
		return fmt.Errorf("feed_url cannot be empty for the live provider")
	}
	if c.Stream.Simulator.MinIntervalMs > c.Stream.Simulator.MaxIntervalMs {
		return fmt.Errorf("simulator min interval cannot exceed max interval")
	}

	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
