package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"mortality-platform/internal/models"
)

// Source types
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourcePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Source   SourceConfig   `mapstructure:"source"`
	Columns  ColumnConfig   `mapstructure:"columns"`
	Cohort   CohortConfig   `mapstructure:"cohort"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig is only consulted when the source type is postgres
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// SourceConfig says where raw records come from
type SourceConfig struct {
	Type  string `mapstructure:"type" validate:"oneof=csv xlsx postgres"`
	Path  string `mapstructure:"path" validate:"required_unless=Type postgres"`
	Sheet string `mapstructure:"sheet"` // xlsx only; empty means first sheet
	Table string `mapstructure:"table" validate:"required_if=Type postgres"`
}

// ColumnConfig maps the pipeline's fields to source column names
type ColumnConfig struct {
	Jurisdiction string `mapstructure:"jurisdiction" validate:"required"`
	Group        string `mapstructure:"group" validate:"required"`
	Subgroup     string `mapstructure:"subgroup" validate:"required"`
	Year         string `mapstructure:"year" validate:"required"`
	Month        string `mapstructure:"month" validate:"required"`
	DeathCount   string `mapstructure:"death_count" validate:"required"`
}

// CohortConfig selects the population slice
type CohortConfig struct {
	TargetJurisdiction string `mapstructure:"target_jurisdiction" validate:"required"`
	TargetGroup        string `mapstructure:"target_group" validate:"required"`
}

// Target converts the cohort selection to its domain form
func (c CohortConfig) Target() models.Target {
	return models.Target{Jurisdiction: c.TargetJurisdiction, Group: c.TargetGroup}
}

// PipelineConfig tunes the batch run
type PipelineConfig struct {
	Workers int `mapstructure:"workers" validate:"min=1,max=256"`
}

// LoadConfig loads configuration from an optional YAML file and
// MORTALITY_* environment variables on top of defaults
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	setDefaults(v)

	v.SetEnvPrefix("MORTALITY")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "mortality")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("source.type", SourceCSV)
	v.SetDefault("source.path", "")
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.table", "")

	// Column names of the provisional COVID-19 monthly deaths extract
	v.SetDefault("columns.jurisdiction", "jurisdiction_residence")
	v.SetDefault("columns.group", "group")
	v.SetDefault("columns.subgroup", "subgroup1")
	v.SetDefault("columns.year", "year")
	v.SetDefault("columns.month", "month")
	v.SetDefault("columns.death_count", "COVID_deaths")

	v.SetDefault("cohort.target_jurisdiction", "United States")
	v.SetDefault("cohort.target_group", "Sex")

	v.SetDefault("pipeline.workers", 4)
}

var validate = validator.New()

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &models.ValidationError{
				Field:   fe.Namespace(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: fmt.Sprintf("invalid configuration: %s failed %q", fe.Namespace(), fe.Tag()),
			}
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
