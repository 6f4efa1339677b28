package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Sheetcheck holds all configuration for the sheetcheck tool.
type Sheetcheck struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Directory of game-system YAML files. Empty means only built-in systems.
	SystemsDir string `yaml:"systems_dir" env:"SYSTEMS_DIR"`

	// Max system files processed at once
	Workers int `yaml:"workers" env:"WORKERS"`

	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`
}

// Storage selects where built characters are persisted.
type Storage struct {
	Driver string `yaml:"driver" env:"DRIVER"`

	// DSN overrides Database for postgres and is the file path for sqlite.
	DSN string `yaml:"dsn" env:"DSN"`

	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ConnString returns the connection string for the configured driver.
func (s Storage) ConnString() string {
	if s.DSN != "" || s.Driver != DriverPostgres {
		return s.DSN
	}
	return s.Database.DSN()
}

// Validate checks values that have no usable default.
func (c Sheetcheck) Validate() error {
	switch c.Storage.Driver {
	case DriverNone, "":
	case DriverPostgres:
	case DriverSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for %s", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// DefaultSheetcheck returns Sheetcheck config with sensible defaults.
func DefaultSheetcheck() Sheetcheck {
	return Sheetcheck{
		LogLevel: "info",
		Workers:  4,
		Storage: Storage{
			Driver: DriverNone,
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "charsheet",
				Password: "charsheet",
				DBName:   "charsheet",
				SSLMode:  "disable",
			},
		},
	}
}

// LoadSheetcheck loads sheetcheck config from a YAML file, then applies
// CHARSHEET_* environment variables on top.
// If the file doesn't exist, the environment applies to the defaults.
func LoadSheetcheck(path string) (Sheetcheck, error) {
	cfg := DefaultSheetcheck()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CHARSHEET_"}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}
