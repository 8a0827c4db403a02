package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Fixtures  FixturesConfig  `yaml:"fixtures"`
	Minio     MinioConfig     `yaml:"minio"`
	Upload    UploadConfig    `yaml:"upload"`
	Contracts ContractsConfig `yaml:"contracts"`
}

type ServerConfig struct {
	Port              int `yaml:"port"`
	RateLimit         int `yaml:"rate_limit"`
	RateWindowSeconds int `yaml:"rate_window_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	SharedSecret     string `yaml:"shared_secret"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
	EmailDomain      string `yaml:"email_domain"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Fixture sources
const (
	SourceFile  = "file"
	SourceHTTP  = "http"
	SourceMinio = "minio"
)

type FixturesConfig struct {
	Source         string `yaml:"source"`
	Dir            string `yaml:"dir"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// UploadConfig drives the simulated transfer. A zero SuccessRate means "use the default".
type UploadConfig struct {
	MinDelayMs        int      `yaml:"min_delay_ms"`
	MaxDelayMs        int      `yaml:"max_delay_ms"`
	SuccessRate       float64  `yaml:"success_rate"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type ContractsConfig struct {
	PageSize int `yaml:"page_size"`
}

// DefaultAllowedExtensions are the document types the upload dialog accepts.
var DefaultAllowedExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Server.RateWindowSeconds == 0 {
		c.Server.RateWindowSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Auth.SharedSecret == "" {
		c.Auth.SharedSecret = "test123"
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "contracts-dashboard-local"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Auth.EmailDomain == "" {
		c.Auth.EmailDomain = "example.com"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = ".dashboard"
	}
	if c.Fixtures.Source == "" {
		c.Fixtures.Source = SourceFile
	}
	if c.Fixtures.Dir == "" {
		c.Fixtures.Dir = "public"
	}
	if c.Fixtures.TimeoutSeconds == 0 {
		c.Fixtures.TimeoutSeconds = 10
	}
	if c.Minio.Bucket == "" {
		c.Minio.Bucket = "contract-fixtures"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.Upload.MinDelayMs == 0 && c.Upload.MaxDelayMs == 0 {
		c.Upload.MinDelayMs = 2000
		c.Upload.MaxDelayMs = 5000
	}
	if c.Upload.SuccessRate == 0 {
		c.Upload.SuccessRate = 0.9
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if c.Contracts.PageSize == 0 {
		c.Contracts.PageSize = 10
	}
}

// Validate reports settings that cannot be repaired by defaults.
func (c *Config) Validate() error {
	switch c.Fixtures.Source {
	case SourceFile, SourceHTTP, SourceMinio:
	default:
		return fmt.Errorf("fixtures.source must be one of file, http, minio: got %q", c.Fixtures.Source)
	}
	if c.Fixtures.Source == SourceHTTP && c.Fixtures.BaseURL == "" {
		return errors.New("fixtures.base_url is required for the http source")
	}
	if c.Fixtures.Source == SourceMinio && c.Minio.Endpoint == "" {
		return errors.New("minio.endpoint is required for the minio source")
	}
	if c.Upload.MinDelayMs < 0 || c.Upload.MaxDelayMs < c.Upload.MinDelayMs {
		return fmt.Errorf("upload delay bounds are invalid: min %d, max %d", c.Upload.MinDelayMs, c.Upload.MaxDelayMs)
	}
	if c.Upload.SuccessRate < 0 || c.Upload.SuccessRate > 1 {
		return fmt.Errorf("upload.success_rate must be within [0, 1]: got %v", c.Upload.SuccessRate)
	}
	return nil
}
