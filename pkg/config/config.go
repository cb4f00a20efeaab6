package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHelixURL = "https://api.twitch.tv/helix"
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
	DefaultGQLURL   = "https://gql.twitch.tv/gql"
)

type Config struct {
	Log struct {
		Level    string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Telegram struct {
			Token  string `yaml:"token"`
			ChatID string `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"log"`

	Sentry struct {
		DSN              string  `yaml:"dsn"`
		Environment      string  `yaml:"environment"`
		TracesSampleRate float64 `yaml:"traces_sample_rate" validate:"gte=0,lte=1"`
	} `yaml:"sentry"`

	Tracing struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`
		Insecure bool   `yaml:"insecure"`
	} `yaml:"tracing"`

	Twitch struct {
		ClientID        string   `yaml:"client_id" validate:"required"`
		ClientSecret    string   `yaml:"client_secret" validate:"required"`
		UserAccessToken string   `yaml:"user_access_token"`
		APIURL          string   `yaml:"api_url" validate:"url"`
		TokenURL        string   `yaml:"token_url" validate:"url"`
		GQLURL          string   `yaml:"gql_url" validate:"url"`
		TimeoutSeconds  int      `yaml:"timeout_seconds" validate:"gte=0"`
		BroadcasterIDs  []string `yaml:"broadcaster_ids"`
		GameID          string   `yaml:"game_id"`
		MinDate         string   `yaml:"min_date" validate:"omitempty,datetime=2006-01-02"`
	} `yaml:"twitch"`

	Sync struct {
		PageSize          int `yaml:"page_size" validate:"gte=1,lte=100"`
		RateLimitMillis   int `yaml:"rate_limit_millis" validate:"gte=0"`
		WindowDays        int `yaml:"window_days" validate:"gte=1"`
		ArchiveWorkers    int `yaml:"archive_workers" validate:"gte=1"`
		ArchiveBatchLimit int `yaml:"archive_batch_limit" validate:"gte=1"`
	} `yaml:"sync"`

	Catalog struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"catalog"`

	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`

	HTTP struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"http"`
}

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result. A .env file in the working directory
// is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var result Config
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyEnv(&result)
	applyDefaults(&result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Sentry.TracesSampleRate == 0 {
		cfg.Sentry.TracesSampleRate = 1.0
	}
	if cfg.Sentry.Environment == "" {
		cfg.Sentry.Environment = "production"
	}
	if cfg.Twitch.APIURL == "" {
		cfg.Twitch.APIURL = DefaultHelixURL
	}
	if cfg.Twitch.TokenURL == "" {
		cfg.Twitch.TokenURL = DefaultTokenURL
	}
	if cfg.Twitch.GQLURL == "" {
		cfg.Twitch.GQLURL = DefaultGQLURL
	}
	if cfg.Twitch.TimeoutSeconds == 0 {
		cfg.Twitch.TimeoutSeconds = 30
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.RateLimitMillis == 0 {
		cfg.Sync.RateLimitMillis = 3000
	}
	if cfg.Sync.WindowDays == 0 {
		cfg.Sync.WindowDays = 150
	}
	if cfg.Sync.ArchiveWorkers == 0 {
		cfg.Sync.ArchiveWorkers = 2
	}
	if cfg.Sync.ArchiveBatchLimit == 0 {
		cfg.Sync.ArchiveBatchLimit = 50
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "data/catalog.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"TWITCH_CLIENT_ID":         &cfg.Twitch.ClientID,
		"TWITCH_CLIENT_SECRET":     &cfg.Twitch.ClientSecret,
		"TWITCH_USER_ACCESS_TOKEN": &cfg.Twitch.UserAccessToken,
		"MINIO_ACCESS_KEY":         &cfg.MinIO.AccessKey,
		"MINIO_SECRET_KEY":         &cfg.MinIO.SecretKey,
		"SENTRY_DSN":               &cfg.Sentry.DSN,
		"TELEGRAM_TOKEN":           &cfg.Log.Telegram.Token,
	}

	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}
