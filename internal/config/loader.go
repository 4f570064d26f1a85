package config

import (
	"fmt"
	"time"

	"github.com/canopycrm/importer/internal/db"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	// AuthTokens maps bearer tokens to the user id they act as.
	AuthTokens map[string]string
}

// ImportConfig holds tunables for the import pipeline.
type ImportConfig struct {
	MaxPayloadBytes   int64
	FetchTimeout      time.Duration
	ProcessTimeout    time.Duration
	MaxResponseIssues int
	MigrationsPath    string
}

// Config is the full application configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Import   ImportConfig
}

// DefaultConfig returns the configuration used when no config file or
// environment overrides are present.
func DefaultConfig() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			AuthTokens:     map[string]string{},
		},
		Import: ImportConfig{
			MaxPayloadBytes:   10 << 20,
			FetchTimeout:      30 * time.Second,
			ProcessTimeout:    60 * time.Second,
			MaxResponseIssues: 100,
			MigrationsPath:    "migrations",
		},
	}
}

// Load reads config.yaml from configPath and applies environment overrides.
func Load(configPath string) (Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()         // allow environment overrides
	v.SetEnvPrefix("CANOPY") // map env vars like CANOPY_DATABASE_HOST

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.auth_tokens") {
		cfg.Server.AuthTokens = v.GetStringMapString("server.auth_tokens")
	}

	if v.IsSet("import.max_payload_bytes") {
		cfg.Import.MaxPayloadBytes = v.GetInt64("import.max_payload_bytes")
	}
	if v.IsSet("import.fetch_timeout") {
		cfg.Import.FetchTimeout = v.GetDuration("import.fetch_timeout")
	}
	if v.IsSet("import.process_timeout") {
		cfg.Import.ProcessTimeout = v.GetDuration("import.process_timeout")
	}
	if v.IsSet("import.max_response_issues") {
		cfg.Import.MaxResponseIssues = v.GetInt("import.max_response_issues")
	}
	if v.IsSet("import.migrations_path") {
		cfg.Import.MigrationsPath = v.GetString("import.migrations_path")
	}

	return cfg, nil
}
