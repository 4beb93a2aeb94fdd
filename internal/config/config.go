package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Engine    EngineConfig    `yaml:"engine"`
	Index     IndexConfig     `yaml:"index"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// EngineConfig points at the external processing engine that performs
// detection, quality estimation and template extraction.
type EngineConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	Capturer        string        `yaml:"capturer"`
	TemplateVersion string        `yaml:"template_version"`
}

// IndexConfig points at the external identity-search index kept in sync
// with profile group membership.
type IndexConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LifecycleConfig struct {
	SamplePolicy      string        `yaml:"sample_policy"`
	QualityThreshold  float64       `yaml:"quality_threshold"`
	SampleTTLDays     int           `yaml:"sample_ttl_days"`
	ActivityTTLDays   int           `yaml:"activity_ttl_days"`
	RetentionInterval time.Duration `yaml:"retention_interval"`
	MaxCandidates     int           `yaml:"max_candidates"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = 30 * time.Second
	}
	if cfg.Engine.Capturer == "" {
		cfg.Engine.Capturer = "face-detector"
	}
	if cfg.Engine.TemplateVersion == "" {
		cfg.Engine.TemplateVersion = "template17v1"
	}
	if cfg.Index.Timeout == 0 {
		cfg.Index.Timeout = 10 * time.Second
	}
	if cfg.Lifecycle.SamplePolicy == "" {
		cfg.Lifecycle.SamplePolicy = "ALLOW_MULTIFACE"
	}
	if cfg.Lifecycle.QualityThreshold == 0 {
		cfg.Lifecycle.QualityThreshold = 0.5
	}
	if cfg.Lifecycle.SampleTTLDays == 0 {
		cfg.Lifecycle.SampleTTLDays = 365
	}
	if cfg.Lifecycle.ActivityTTLDays == 0 {
		cfg.Lifecycle.ActivityTTLDays = 30
	}
	if cfg.Lifecycle.RetentionInterval == 0 {
		cfg.Lifecycle.RetentionInterval = time.Hour
	}
	if cfg.Lifecycle.MaxCandidates == 0 {
		cfg.Lifecycle.MaxCandidates = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACEID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FACEID_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FACEID_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FACEID_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FACEID_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FACEID_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FACEID_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FACEID_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FACEID_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FACEID_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FACEID_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FACEID_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FACEID_ENGINE_URL"); v != "" {
		cfg.Engine.BaseURL = v
	}
	if v := os.Getenv("FACEID_INDEX_URL"); v != "" {
		cfg.Index.BaseURL = v
	}
	if v := os.Getenv("FACEID_SAMPLE_POLICY"); v != "" {
		cfg.Lifecycle.SamplePolicy = v
	}
	if v := os.Getenv("FACEID_QUALITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Lifecycle.QualityThreshold = f
		}
	}
}
