package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION LOADER
// ============================================================================

// Loader builds a Config from layered sources.
type Loader struct {
	// basePath is the directory holding the configuration files
	basePath string

	// environment selects the <environment>.yaml overlay
	environment Environment

	// sources tracks where configuration was loaded from
	sources []string

	// fileLoaders are tried in registration order for each file name
	fileLoaders []FileLoader
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	loader := &Loader{
		basePath:    basePath,
		environment: env,
	}
	loader.RegisterLoader(&YAMLLoader{ext: "yaml"})
	loader.RegisterLoader(&YAMLLoader{ext: "yml"})
	return loader
}

// RegisterLoader adds a file format.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders = append(l.fileLoaders, loader)
}

// Load loads configuration using a hierarchy of sources.
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. base.yaml
//  3. <environment>.yaml
//  4. local.yaml (development only)
//  5. Environment variables
func (l *Loader) Load() (*Config, error) {
	l.sources = []string{"defaults"}
	cfg := Default()
	cfg.Environment = l.environment
	cfg.ConfigDir = l.basePath

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	// A file may not move the configuration to another environment.
	cfg.Environment = l.environment

	if err := loadEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = l.sources

	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the first existing <name>.<ext> into cfg.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

// loadEnvironmentVariables overlays environment variables on the configuration.
func loadEnvironmentVariables(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			*dst = val
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if val := os.Getenv("SERVER_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("SERVER_PORT: %w", err))
		} else {
			cfg.Server.Port = port
		}
	}
	str("SERVER_HOST", &cfg.Server.Host)

	str("AWS_REGION", &cfg.AWS.Region)
	str("DYNAMODB_ENDPOINT", &cfg.AWS.DynamoDBEndpoint)

	// TABLE_NAME names one table shared by every store.
	str("TABLE_NAME", &cfg.Storage.ThemeTable)
	str("THEME_TABLE", &cfg.Storage.ThemeTable)
	str("NIGHTMARE_TABLE", &cfg.Storage.NightmareTable)
	str("CYCLE_TABLE", &cfg.Storage.CycleTable)
	str("SETTINGS_TABLE", &cfg.Storage.SettingsTable)
	str("STORAGE_BACKEND", &cfg.Storage.Backend)

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	str("OPENAI_BASE_URL", &cfg.LLM.BaseURL)
	str("CLASSIFIER_MODEL", &cfg.LLM.ClassifierModel)
	str("NARRATIVE_MODEL", &cfg.LLM.NarrativeModel)
	duration("CLASSIFY_TIMEOUT", &cfg.LLM.ClassifyTimeout)
	duration("NARRATIVE_TIMEOUT", &cfg.LLM.NarrativeTimeout)

	if val := os.Getenv("SIMILARITY_THRESHOLD"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD: %w", err))
		} else {
			cfg.Patterns.SimilarityThreshold = f
		}
	}

	str("EVENT_BUS_NAME", &cfg.Events.EventBusName)
	boolean("ENABLE_EVENTS", &cfg.Events.Enabled)

	boolean("ENABLE_METRICS", &cfg.Observability.EnableMetrics)
	boolean("ENABLE_TRACING", &cfg.Observability.EnableTracing)
	str("OTLP_ENDPOINT", &cfg.Observability.OTLPEndpoint)

	str("LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment variables: %w", errors.Join(errs...))
	}
	return nil
}

// ============================================================================
// FILE LOADERS
// ============================================================================

// YAMLLoader loads configuration from YAML files. Durations are written as "15s".
type YAMLLoader struct {
	ext string
}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (y *YAMLLoader) Extension() string {
	return y.ext
}

// ============================================================================
// ENTRY POINTS
// ============================================================================

// LoadConfig loads configuration for the environment named by ENVIRONMENT from the directory
// named by CONFIG_DIR.
func LoadConfig() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	return NewLoader(dir, getEnvironment()).Load()
}

// MustLoadConfig loads configuration and panics on error.
// Use this only in main() functions.
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
