package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Detection providers.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// Config holds the photodex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Detection DetectionConfig `yaml:"detection"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the ingestion routes.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds search engine connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and object store settings.
type StorageConfig struct {
	KeyPrefix         string `yaml:"key_prefix"`
	SignedURLTTLSec   int    `yaml:"signed_url_ttl_sec"`
	PublicURLTemplate string `yaml:"public_url_template"`
	SignerEmail       string `yaml:"signer_email"`
	SignerPrivateKey  string `yaml:"signer_private_key"` // PEM
}

// DetectionConfig holds label detection settings.
type DetectionConfig struct {
	Provider      string       `yaml:"provider"` // openai, vertex (default: openai)
	MinConfidence float64      `yaml:"min_confidence"`
	MaxLabels     int          `yaml:"max_labels"`
	OpenAI        OpenAIConfig `yaml:"openai"`
	Vertex        VertexConfig `yaml:"vertex"`
}

// OpenAIConfig holds OpenAI-compatible vision API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// VertexConfig holds Vertex AI settings.
type VertexConfig struct {
	ProjectID string `yaml:"project_id"`
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	Workers      int `yaml:"workers"`
	MaxBatchSize int `yaml:"max_batch_size"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	PageSize int `yaml:"page_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "photodex:"
	}
	if c.Storage.SignedURLTTLSec <= 0 {
		c.Storage.SignedURLTTLSec = 3600
	}
	if c.Storage.PublicURLTemplate == "" {
		c.Storage.PublicURLTemplate = "https://storage.googleapis.com/{bucket}/{key}"
	}
	if c.Detection.Provider == "" {
		c.Detection.Provider = ProviderOpenAI
	}
	if c.Detection.MinConfidence <= 0 {
		c.Detection.MinConfidence = 70
	}
	if c.Detection.MaxLabels <= 0 {
		c.Detection.MaxLabels = 10
	}
	if c.Detection.OpenAI.Model == "" {
		c.Detection.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 100
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Detection.MinConfidence > 100 {
		return fmt.Errorf("detection.min_confidence must be at most 100, got %g", c.Detection.MinConfidence)
	}
	if (c.Storage.SignerEmail == "") != (c.Storage.SignerPrivateKey == "") {
		return fmt.Errorf("storage.signer_email and storage.signer_private_key must be set together")
	}

	switch c.Detection.Provider {
	case ProviderOpenAI:
		if c.Detection.OpenAI.APIKey == "" {
			return fmt.Errorf("detection.openai.api_key is required for provider %q", ProviderOpenAI)
		}
	case ProviderVertex:
		if c.Detection.Vertex.ProjectID == "" || c.Detection.Vertex.Region == "" {
			return fmt.Errorf("detection.vertex.project_id and detection.vertex.region are required for provider %q",
				ProviderVertex)
		}
	default:
		return fmt.Errorf("detection.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderVertex, c.Detection.Provider)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
