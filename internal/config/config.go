package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	Import        ImportConfig     `json:"import"`
	Staging       StagingConfig    `json:"staging"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type ImportConfig struct {
	MaxUploadSize      int64  `json:"max_upload_size"`
	KeepFinished       int    `json:"keep_finished"`
	RetainDays         int    `json:"retain_days"`
	CleanupSpec        string `json:"cleanup_spec"`
	StartWindowSeconds int    `json:"start_window_seconds"`
}

// StagingConfig controls where raw export payloads are kept for audit after
// an import is started. An empty type disables staging.
type StagingConfig struct {
	Type string   `json:"type"`
	Dir  string   `json:"dir"`
	S3   S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	UseSSL    bool   `json:"use_ssl"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Import.MaxUploadSize == 0 {
		cfg.Import.MaxUploadSize = 64 << 20
	}
	if cfg.Import.KeepFinished == 0 {
		cfg.Import.KeepFinished = 128
	}
	if cfg.Import.RetainDays == 0 {
		cfg.Import.RetainDays = 30
	}
	if cfg.Import.CleanupSpec == "" {
		cfg.Import.CleanupSpec = "0 3 * * *"
	}
	if cfg.Import.StartWindowSeconds == 0 {
		cfg.Import.StartWindowSeconds = 10
	}
	switch cfg.Staging.Type {
	case "", "local", "s3":
	default:
		return nil, fmt.Errorf("staging.type must be empty, local or s3")
	}
	if cfg.Staging.Type == "local" && cfg.Staging.Dir == "" {
		return nil, fmt.Errorf("staging.dir is required for local staging")
	}
	if cfg.Staging.Type == "s3" {
		s3 := cfg.Staging.S3
		if s3.Endpoint == "" || s3.Bucket == "" || s3.SecretID == "" || s3.SecretKey == "" {
			return nil, fmt.Errorf("staging.s3 endpoint/bucket/secret_id/secret_key are required")
		}
		if cfg.Staging.S3.Region == "" {
			cfg.Staging.S3.Region = "cn"
		}
	}
	return &cfg, nil
}
