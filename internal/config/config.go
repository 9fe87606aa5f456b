package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	TransformerMock    = "mock"
	TransformerVertex  = "vertex"
	TransformerMistral = "mistral"
)

const (
	CacheNone      = "none"
	CacheMemory    = "memory"
	CacheRedis     = "redis"
	CacheFirestore = "firestore"
)

// In-flight transform policy when the session is reset meanwhile.
const (
	InFlightCommit  = "commit"
	InFlightDiscard = "discard"
)

type Config struct {
	Mode     Mode   `env:"TONAL_MODE,default=local"`
	Port     string `env:"TONAL_PORT,default=8080"`
	LogLevel string `env:"TONAL_LOG_LEVEL,default=info"`

	// Transformer is mock|vertex|mistral. Empty picks mock in local mode and
	// vertex in gcp mode.
	Transformer      string        `env:"TONAL_TRANSFORMER"`
	TransformTimeout time.Duration `env:"TONAL_TRANSFORM_TIMEOUT,default=30s"`
	InFlightPolicy   string        `env:"TONAL_INFLIGHT_POLICY,default=commit"`
	MaxHistory       int           `env:"TONAL_MAX_HISTORY,default=0"` // 0 = unlimited

	CacheBackend string        `env:"TONAL_CACHE_BACKEND,default=memory"` // none|memory|redis|firestore
	CacheTTL     time.Duration `env:"TONAL_CACHE_TTL,default=5m"`
	CacheTimeout time.Duration `env:"TONAL_CACHE_TIMEOUT,default=2s"`
	CacheSize    int           `env:"TONAL_CACHE_SIZE,default=1024"`

	RedisAddr      string `env:"TONAL_REDIS_ADDR,default=localhost:6379"`
	RedisKeyPrefix string `env:"TONAL_REDIS_KEY_PREFIX,default=tonal:cache:"`

	GCPProjectID string `env:"TONAL_GCP_PROJECT"`
	GCPLocation  string `env:"TONAL_GCP_LOCATION,default=us-central1"`
	ModelName    string `env:"TONAL_MODEL_NAME,default=gemini-2.5-flash-lite"`

	MistralAPIKey string `env:"MISTRAL_API_KEY"`
	MistralURL    string `env:"TONAL_MISTRAL_URL"`
	MistralModel  string `env:"TONAL_MISTRAL_MODEL,default=mistral-small"`

	ShutdownTimeout time.Duration `env:"TONAL_SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads all env vars and builds the config
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}

	if cfg.Transformer == "" {
		cfg.Transformer = TransformerMock
		if cfg.Mode == ModeGCP {
			cfg.Transformer = TransformerVertex
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		errs = append(errs, fmt.Errorf("TONAL_MODE must be local or gcp, got %q", c.Mode))
	}

	switch c.Transformer {
	case TransformerMock:
	case TransformerVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("TONAL_GCP_PROJECT must be set for the vertex transformer"))
		}
	case TransformerMistral:
		if c.MistralAPIKey == "" {
			errs = append(errs, errors.New("MISTRAL_API_KEY must be set for the mistral transformer"))
		}
	default:
		errs = append(errs, fmt.Errorf("TONAL_TRANSFORMER must be mock, vertex or mistral, got %q", c.Transformer))
	}

	switch c.CacheBackend {
	case CacheNone, CacheMemory, CacheRedis:
	case CacheFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("TONAL_GCP_PROJECT must be set for the firestore cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("TONAL_CACHE_BACKEND must be none, memory, redis or firestore, got %q", c.CacheBackend))
	}

	switch c.InFlightPolicy {
	case InFlightCommit, InFlightDiscard:
	default:
		errs = append(errs, fmt.Errorf("TONAL_INFLIGHT_POLICY must be commit or discard, got %q", c.InFlightPolicy))
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		errs = append(errs, errors.New("TONAL_GCP_PROJECT must be set in gcp mode"))
	}
	if c.TransformTimeout <= 0 {
		errs = append(errs, errors.New("TONAL_TRANSFORM_TIMEOUT must be positive"))
	}
	if c.MaxHistory < 0 {
		errs = append(errs, errors.New("TONAL_MAX_HISTORY must be >= 0"))
	}
	if c.CacheBackend == CacheMemory && c.CacheSize <= 0 {
		errs = append(errs, errors.New("TONAL_CACHE_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
