package config

import (
	"fmt"
	"time"
)

// HistoryRetentionConfig controls pruning of the labeling history database
type HistoryRetentionConfig struct {
	// RetentionDays is how long labeling records are kept (in days).
	// Records older than this are deleted after each run.
	// Default: 180, Range: 1-3650
	RetentionDays int

	// MaxRecords caps the number of records kept; the oldest go first.
	// Set to 0 for unlimited
	// Default: 10000, Range: 0 or 100-1000000
	MaxRecords int

	// Enabled controls whether pruning runs at all
	// Default: true
	Enabled bool
}

// DefaultHistoryRetentionConfig returns the default history retention configuration
func DefaultHistoryRetentionConfig() HistoryRetentionConfig {
	return HistoryRetentionConfig{
		RetentionDays: 180,
		MaxRecords:    10000,
		Enabled:       true,
	}
}

// Validate checks if the configuration has valid values
func (c HistoryRetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 3650 {
		return fmt.Errorf("retention_days must be between 1 and 3650 (got %d)", c.RetentionDays)
	}

	// 0 = unlimited
	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records cannot be negative (got %d)", c.MaxRecords)
	}
	if c.MaxRecords > 0 && c.MaxRecords < 100 {
		return fmt.Errorf("max_records must be 0 (unlimited) or >= 100 (got %d)", c.MaxRecords)
	}
	if c.MaxRecords > 1000000 {
		return fmt.Errorf("max_records too large (got %d, max 1000000)", c.MaxRecords)
	}
	return nil
}

// MaxAge returns the retention period as a duration
func (c HistoryRetentionConfig) MaxAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// String returns a human-readable representation of the config
func (c HistoryRetentionConfig) String() string {
	return fmt.Sprintf("HistoryRetentionConfig{RetentionDays: %d, MaxRecords: %d, Enabled: %t}",
		c.RetentionDays, c.MaxRecords, c.Enabled)
}

// HistoryRetentionConfigFromEnv creates a HistoryRetentionConfig from environment
// variables, falling back to defaults
//
// Environment variables:
//   - LABELER_HISTORY_RETENTION_DAYS: Days to keep labeling records (default: 180)
//   - LABELER_HISTORY_MAX_RECORDS: Maximum records kept, 0 for unlimited (default: 10000)
//   - LABELER_HISTORY_PRUNE_ENABLED: Prune after each run (default: true)
func HistoryRetentionConfigFromEnv() (HistoryRetentionConfig, error) {
	cfg := DefaultHistoryRetentionConfig()

	if err := parseEnvInt("LABELER_HISTORY_RETENTION_DAYS", &cfg.RetentionDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("LABELER_HISTORY_MAX_RECORDS", &cfg.MaxRecords); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("LABELER_HISTORY_PRUNE_ENABLED", &cfg.Enabled); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid history retention configuration from environment: %w", err)
	}
	return cfg, nil
}
