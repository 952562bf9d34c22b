package repository

import "fmt"

// Config names the tables backing each store. The stores may share one table since their
// partition keys use distinct prefixes.
type Config struct {
	ThemeTable     string // Theme counters
	NightmareTable string // Nightmare event log and summary
	CycleTable     string // Cycle definitions and occurrences
	SettingsTable  string // Per-user opt-ins

	// Query page size when reading a full ledger
	PageSize int32
}

// Validate checks if the configuration has all required fields and valid values.
func (c Config) Validate() error {
	if c.ThemeTable == "" {
		return fmt.Errorf("ThemeTable is required")
	}
	if c.NightmareTable == "" {
		return fmt.Errorf("NightmareTable is required")
	}
	if c.CycleTable == "" {
		return fmt.Errorf("CycleTable is required")
	}
	if c.SettingsTable == "" {
		return fmt.Errorf("SettingsTable is required")
	}
	if c.PageSize < 0 {
		return fmt.Errorf("PageSize cannot be negative")
	}
	return nil
}

// WithDefaults returns a new Config with default values applied for optional fields.
func (c Config) WithDefaults() Config {
	config := c
	if config.PageSize == 0 {
		config.PageSize = 100
	}
	return config
}

// NewConfig creates a configuration where every store uses tableName.
func NewConfig(tableName string) Config {
	return Config{
		ThemeTable:     tableName,
		NightmareTable: tableName,
		CycleTable:     tableName,
		SettingsTable:  tableName,
	}.WithDefaults()
}
