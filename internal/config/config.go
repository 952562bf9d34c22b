package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Storage backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config is the complete application configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	ConfigDir   string      `yaml:"-"`

	Server        Server        `yaml:"server"`
	AWS           AWS           `yaml:"aws"`
	Storage       Storage       `yaml:"storage"`
	LLM           LLM           `yaml:"llm"`
	Patterns      Patterns      `yaml:"patterns"`
	Events        Events        `yaml:"events"`
	Observability Observability `yaml:"observability"`
	Logging       Logging       `yaml:"logging"`

	// Files that contributed to this configuration, in load order
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP listener of the API binary.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// AWS configures the SDK clients.
type AWS struct {
	Region           string `yaml:"region" validate:"required"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
}

// Storage selects the persistence backend and its tables.
type Storage struct {
	Backend        string `yaml:"backend" validate:"oneof=dynamodb memory"`
	ThemeTable     string `yaml:"theme_table"`
	NightmareTable string `yaml:"nightmare_table"`
	CycleTable     string `yaml:"cycle_table"`
	SettingsTable  string `yaml:"settings_table"`
	PageSize       int32  `yaml:"page_size" validate:"gte=0"`
}

// LLM configures the classification and narrative collaborators.
type LLM struct {
	Provider         string        `yaml:"provider" validate:"oneof=openai mock"`
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	ClassifierModel  string        `yaml:"classifier_model"`
	NarrativeModel   string        `yaml:"narrative_model"`
	ClassifyTimeout  time.Duration `yaml:"classify_timeout" validate:"gt=0"`
	NarrativeTimeout time.Duration `yaml:"narrative_timeout" validate:"gt=0"`
	Breaker          Breaker       `yaml:"breaker"`
}

// Breaker configures the circuit breaker in front of each collaborator.
type Breaker struct {
	FailureThreshold float64       `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests" validate:"gt=0"`
	OpenDuration     time.Duration `yaml:"open_duration" validate:"gt=0"`
}

// Patterns tunes the detection rules.
type Patterns struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	MinCycleOccurrences int     `yaml:"min_cycle_occurrences" validate:"gte=1"`
}

// Events configures domain event publication.
type Events struct {
	Enabled      bool   `yaml:"enabled"`
	EventBusName string `yaml:"event_bus_name"`
	Source       string `yaml:"source"`
}

// Observability configures metrics and tracing.
type Observability struct {
	EnableMetrics bool    `yaml:"enable_metrics"`
	EnableTracing bool    `yaml:"enable_tracing"`
	OTLPEndpoint  string  `yaml:"otlp_endpoint"`
	SampleRate    float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
	ServiceName   string  `yaml:"service_name"`
}

// Logging configures the zap logger.
type Logging struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used before any file or variable is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		ConfigDir:   "./config",
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		AWS: AWS{Region: "us-east-1"},
		Storage: Storage{
			Backend:  BackendDynamoDB,
			PageSize: 100,
		},
		LLM: LLM{
			Provider:         ProviderMock,
			ClassifyTimeout:  15 * time.Second,
			NarrativeTimeout: 10 * time.Second,
			Breaker: Breaker{
				FailureThreshold: 0.6,
				MinRequests:      5,
				OpenDuration:     30 * time.Second,
			},
		},
		Patterns: Patterns{
			SimilarityThreshold: 0.5,
			MinCycleOccurrences: 2,
		},
		Events: Events{
			EventBusName: "default",
			Source:       "dreamlog.patterns",
		},
		Observability: Observability{
			EnableMetrics: true,
			SampleRate:    0.1,
			ServiceName:   "dreamlog-patterns",
		},
	}
}

// applyEnvironmentDefaults fills values that depend on the environment and were left unset.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Development:
		if c.Storage.DynamoDBTablesUnset() {
			c.Storage.Backend = BackendMemory
		}
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	case Production:
		c.Events.Enabled = true
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	// A single table is shared when only the theme table is named.
	if c.Storage.ThemeTable != "" {
		if c.Storage.NightmareTable == "" {
			c.Storage.NightmareTable = c.Storage.ThemeTable
		}
		if c.Storage.CycleTable == "" {
			c.Storage.CycleTable = c.Storage.ThemeTable
		}
		if c.Storage.SettingsTable == "" {
			c.Storage.SettingsTable = c.Storage.ThemeTable
		}
	}
}

// DynamoDBTablesUnset reports whether no table name is configured.
func (s Storage) DynamoDBTablesUnset() bool {
	return s.ThemeTable == "" && s.NightmareTable == "" && s.CycleTable == "" && s.SettingsTable == ""
}

var validate = validator.New()

// Validate checks field ranges and the cross-field rules between environment, storage and
// providers.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if c.Storage.Backend == BackendDynamoDB {
		tables := []struct{ name, value string }{
			{"theme", c.Storage.ThemeTable},
			{"nightmare", c.Storage.NightmareTable},
			{"cycle", c.Storage.CycleTable},
			{"settings", c.Storage.SettingsTable},
		}
		for _, table := range tables {
			if table.value == "" {
				errs = append(errs, fmt.Errorf("storage: %s table is required for the dynamodb backend", table.name))
			}
		}
	}
	if c.Environment == Production {
		if c.Storage.Backend == BackendMemory {
			errs = append(errs, fmt.Errorf("storage: memory backend is not allowed in production"))
		}
		if c.LLM.Provider == ProviderMock {
			errs = append(errs, fmt.Errorf("llm: mock provider is not allowed in production"))
		}
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm: api key is required for the openai provider"))
	}
	if c.Observability.EnableTracing && c.Observability.OTLPEndpoint == "" {
		errs = append(errs, fmt.Errorf("observability: otlp endpoint is required when tracing is enabled"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the configuration targets local development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// getEnvironment reads ENVIRONMENT, defaulting to development.
func getEnvironment() Environment {
	switch env := Environment(strings.ToLower(os.Getenv("ENVIRONMENT"))); env {
	case Development, Staging, Production:
		return env
	default:
		return Development
	}
}
