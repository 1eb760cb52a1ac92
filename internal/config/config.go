package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for scenegen.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Vision   VisionConfig
	Catalog  CatalogConfig
	Publish  PublishConfig
	Batch    BatchConfig
	LogLevel slog.Level
}

type ServerConfig struct {
	Port int
	Env  string
	// APITokenHash is a bcrypt hash of the bearer token; empty disables auth.
	APITokenHash       string
	RateLimitPerMinute int
}

// DatabaseConfig configures the optional run ledger. An empty URL disables it.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional cache. An empty URL disables it.
type RedisConfig struct {
	URL string
}

type AIConfig struct {
	Provider          string
	TextModel         string
	ImageModel        string
	InferenceTimeout  time.Duration
	RequestsPerMinute int
	Google            GoogleConfig
}

type GoogleConfig struct {
	ProjectID       string
	Location        string
	CredentialsPath string
	APIKey          string
}

type VisionConfig struct {
	Enabled   bool
	MaxLabels int
	CacheTTL  time.Duration
}

type CatalogConfig struct {
	InputPath  string
	OutputPath string
	Sheet      string
}

type PublishConfig struct {
	Backend string
	SFTP    SFTPConfig
	MinIO   MinIOConfig
	Local   LocalConfig
}

type SFTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	RemotePath string
	BaseURL    string
	HostKey    string
	Timeout    time.Duration
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	BaseURL       string
	PresignExpiry time.Duration
}

type LocalConfig struct {
	Dir     string
	BaseURL string
}

type BatchConfig struct {
	Mode              string
	OutputDir         string
	RowDelay          time.Duration
	FetchTimeout      time.Duration
	Workers           int
	PromptStrategy    string
	RefineWithComment bool
	TargetWidth       int
	TargetHeight      int
	RoomSeed          int64
}

var validProviders = map[string]bool{
	"vertex": true,
	"gemini": true,
}

var validBackends = map[string]bool{
	"sftp":  true,
	"minio": true,
	"local": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("SCENEGEN_PORT", 8080),
			Env:  envString("SCENEGEN_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			Provider:          envString("AI_PROVIDER", "vertex"),
			TextModel:         envString("TEXT_MODEL", "gemini-2.5-flash"),
			ImageModel:        envString("IMAGE_MODEL", "gemini-2.5-flash-image"),
			InferenceTimeout:  envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 120*time.Second),
			RequestsPerMinute: envInt("MODEL_REQUESTS_PER_MINUTE", 0),
			Google: GoogleConfig{
				ProjectID:       os.Getenv("GOOGLE_PROJECT_ID"),
				Location:        envString("GOOGLE_LOCATION", "us-central1"),
				CredentialsPath: os.Getenv("GOOGLE_CREDENTIALS_PATH"),
				APIKey:          os.Getenv("GEMINI_API_KEY"),
			},
		},
		Vision: VisionConfig{
			Enabled:   envBool("VISION_ENABLED", false),
			MaxLabels: envInt("VISION_MAX_LABELS", 15),
			CacheTTL:  envDuration("VISION_CACHE_TTL", 24*time.Hour),
		},
		Catalog: CatalogConfig{
			InputPath:  envString("EXCEL_INPUT_PATH", "furniture_products.xlsx"),
			OutputPath: envString("EXCEL_OUTPUT_PATH", "furniture_products_updated.xlsx"),
			Sheet:      os.Getenv("CATALOG_SHEET"),
		},
		Publish: PublishConfig{
			Backend: envString("PUBLISH_BACKEND", "sftp"),
			SFTP: SFTPConfig{
				Host:       os.Getenv("SFTP_HOST"),
				Port:       envInt("SFTP_PORT", 22),
				Username:   os.Getenv("SFTP_USERNAME"),
				Password:   os.Getenv("SFTP_PASSWORD"),
				RemotePath: envString("SFTP_REMOTE_PATH", "/"),
				BaseURL:    os.Getenv("SFTP_BASE_URL"),
				HostKey:    os.Getenv("SFTP_HOST_KEY"),
				Timeout:    envDurationSecs("SFTP_TIMEOUT_SECS", 30*time.Second),
			},
			MinIO: MinIOConfig{
				Endpoint:      os.Getenv("MINIO_ENDPOINT"),
				AccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey:     os.Getenv("MINIO_SECRET_KEY"),
				Bucket:        envString("MINIO_BUCKET", "lifestyle-images"),
				UseSSL:        envBool("MINIO_USE_SSL", false),
				BaseURL:       os.Getenv("MINIO_BASE_URL"),
				PresignExpiry: envDuration("MINIO_PRESIGN_EXPIRY", 72*time.Hour),
			},
			Local: LocalConfig{
				Dir:     envString("PUBLISH_LOCAL_DIR", "./published"),
				BaseURL: os.Getenv("PUBLISH_LOCAL_BASE_URL"),
			},
		},
		Batch: BatchConfig{
			Mode:              envString("BATCH_MODE", "generate"),
			OutputDir:         envString("OUTPUT_DIR", "./output"),
			RowDelay:          envDuration("ROW_DELAY", 2*time.Second),
			FetchTimeout:      envDurationSecs("FETCH_TIMEOUT_SECS", 30*time.Second),
			Workers:           envInt("BATCH_WORKERS", 1),
			PromptStrategy:    envString("PROMPT_STRATEGY", "place"),
			RefineWithComment: envBool("REFINE_WITH_COMMENT", false),
			TargetWidth:       envInt("TARGET_WIDTH", 0),
			TargetHeight:      envInt("TARGET_HEIGHT", 0),
			RoomSeed:          int64(envInt("ROOM_SEED", 0)),
		},
		LogLevel: envLogLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of vertex, gemini; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "vertex" && c.AI.Google.ProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID is required when AI_PROVIDER is vertex")
	}
	if c.AI.Provider == "gemini" && c.AI.Google.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
	}

	if c.Catalog.InputPath == "" {
		return fmt.Errorf("EXCEL_INPUT_PATH is required")
	}
	if c.Catalog.OutputPath == "" {
		return fmt.Errorf("EXCEL_OUTPUT_PATH is required")
	}

	if !validBackends[c.Publish.Backend] {
		return fmt.Errorf("PUBLISH_BACKEND must be one of sftp, minio, local; got %q", c.Publish.Backend)
	}
	switch c.Publish.Backend {
	case "sftp":
		if c.Publish.SFTP.Host == "" {
			return fmt.Errorf("SFTP_HOST is required when PUBLISH_BACKEND is sftp")
		}
		if c.Publish.SFTP.Username == "" {
			return fmt.Errorf("SFTP_USERNAME is required when PUBLISH_BACKEND is sftp")
		}
		if c.Publish.SFTP.BaseURL == "" {
			return fmt.Errorf("SFTP_BASE_URL is required when PUBLISH_BACKEND is sftp")
		}
	case "minio":
		if c.Publish.MinIO.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when PUBLISH_BACKEND is minio")
		}
		if c.Publish.MinIO.AccessKey == "" || c.Publish.MinIO.SecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when PUBLISH_BACKEND is minio")
		}
	}

	if c.Batch.Mode != "generate" && c.Batch.Mode != "refine" {
		return fmt.Errorf("BATCH_MODE must be generate or refine; got %q", c.Batch.Mode)
	}
	if c.Batch.PromptStrategy != "place" && c.Batch.PromptStrategy != "scene" {
		return fmt.Errorf("PROMPT_STRATEGY must be place or scene; got %q", c.Batch.PromptStrategy)
	}
	if c.Batch.PromptStrategy == "scene" && !c.Vision.Enabled {
		return fmt.Errorf("PROMPT_STRATEGY scene requires VISION_ENABLED=true")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.TargetWidth < 0 || c.Batch.TargetHeight < 0 {
		return fmt.Errorf("TARGET_WIDTH and TARGET_HEIGHT must not be negative")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
		return defaultVal
	}
	return lvl
}
