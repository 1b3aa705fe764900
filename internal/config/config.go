package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration values.
type Config struct {
	App      AppConfig
	Media    MediaConfig
	Metadata MetadataConfig
	Vision   VisionConfig
	Images   ImagesConfig
}

// AppConfig covers the HTTP server and process level settings.
type AppConfig struct {
	Port           string        `envconfig:"APP_PORT" default:"8080"`
	Env            string        `envconfig:"APP_ENV" default:"dev"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT"`
	StaticDir      string        `envconfig:"STATIC_DIR"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AdminTokenHash string        `envconfig:"ADMIN_TOKEN_HASH"`
	ReadTimeout    time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15m"`
	IdleTimeout    time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket          string `envconfig:"S3_BUCKET"`
	Region          string `envconfig:"S3_REGION" default:"auto"`
	Endpoint        string `envconfig:"S3_ENDPOINT"`
	PublicURL       string `envconfig:"S3_PUBLIC_URL" required:"true"`
	KeyPrefix       string `envconfig:"S3_KEY_PREFIX"`
	ForcePathStyle  bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
	AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	LocalDir        string `envconfig:"LOCAL_MEDIA_DIR" default:"media"`
}

// MetadataConfig selects the key-value backend for photo records.
type MetadataConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`
	Namespace   string `envconfig:"METADATA_NAMESPACE" default:"photo-metadata"`
}

// VisionConfig configures the vision inference provider.
type VisionConfig struct {
	Provider              string        `envconfig:"VISION_PROVIDER" default:"gemini"`
	Model                 string        `envconfig:"VISION_MODEL"`
	Timeout               time.Duration `envconfig:"VISION_TIMEOUT" default:"60s"`
	GeminiAPIKey          string        `envconfig:"GEMINI_API_KEY"`
	GoogleCredentialsJSON string        `envconfig:"GOOGLE_CREDENTIALS_JSON"`
	OpenAIAPIKey          string        `envconfig:"OPENAI_API_KEY"`
}

// ImagesConfig configures the image generation provider.
type ImagesConfig struct {
	Provider     string        `envconfig:"IMAGE_PROVIDER" default:"openai"`
	OpenAIAPIKey string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string        `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	OpenAISize   string        `envconfig:"OPENAI_IMAGE_SIZE" default:"1024x1024"`
	GeminiAPIKey string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string        `envconfig:"GEMINI_IMAGE_MODEL"`
	Timeout      time.Duration `envconfig:"IMAGE_TIMEOUT" default:"120s"`
	Vertex       VertexConfig
}

// VertexConfig describes how to reach Vertex AI Imagen.
type VertexConfig struct {
	ProjectID          string `envconfig:"VERTEX_PROJECT_ID"`
	Location           string `envconfig:"VERTEX_LOCATION" default:"us-central1"`
	Model              string `envconfig:"VERTEX_IMAGEN_MODEL" default:"imagen-3.0-capability-001"`
	GenerateModel      string `envconfig:"VERTEX_IMAGEN_GENERATE_MODEL" default:"imagen-3.0-generate-002"`
	APIKey             string `envconfig:"VERTEX_API_KEY"`
	ServiceAccount     string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	ServiceAccountJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`
}

// Load reads configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Media.PublicURL = strings.TrimSuffix(strings.TrimSpace(c.Media.PublicURL), "/")
	c.Media.KeyPrefix = strings.Trim(c.Media.KeyPrefix, "/")
	c.Vision.Provider = strings.ToLower(strings.TrimSpace(c.Vision.Provider))
	c.Images.Provider = strings.ToLower(strings.TrimSpace(c.Images.Provider))
	c.App.LogFormat = strings.ToLower(strings.TrimSpace(c.App.LogFormat))
	if c.App.LogFormat == "" {
		c.App.LogFormat = "json"
		if c.App.IsDev() {
			c.App.LogFormat = "console"
		}
	}
}

func (c *Config) validate() error {
	if c.App.Port == "" {
		return fmt.Errorf("APP_PORT cannot be empty")
	}
	if c.Media.PublicURL == "" {
		return fmt.Errorf("S3_PUBLIC_URL cannot be empty")
	}
	switch c.Vision.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported VISION_PROVIDER %q", c.Vision.Provider)
	}
	switch c.Images.Provider {
	case "openai", "gemini", "imagen":
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.Images.Provider)
	}
	return nil
}

// IsDev reports whether the process runs in a local development environment.
func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}
