package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTTTL                 time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	SubmissionMaxMB        int
	ResultsCacheTTL        time.Duration
	NotificationChannel    string
	NotificationKeepAlive  time.Duration
	AuthRateLimitMax       int
	AuthRateLimitWindow    time.Duration
	AdminName              string
	AdminEmail             string
	AdminPassword          string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PEERVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Peerval API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "peerval/submissions")
	v.SetDefault("submission.max_mb", 10)
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("results.cache_ttl", "5m")
	v.SetDefault("notifications.channel", "peerval")
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("auth.rate_limit_max", 10)
	v.SetDefault("auth.rate_limit_window", "1m")
	v.SetDefault("admin.name", "Platform Admin")

	jwtTTL, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}

	resultsTTL, err := time.ParseDuration(v.GetString("results.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid results cache ttl: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("notifications.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notification keepalive: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("auth.rate_limit_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid auth rate limit window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		SubmissionMaxMB:        v.GetInt("submission.max_mb"),
		ResultsCacheTTL:        resultsTTL,
		NotificationChannel:    v.GetString("notifications.channel"),
		NotificationKeepAlive:  keepAlive,
		AuthRateLimitMax:       v.GetInt("auth.rate_limit_max"),
		AuthRateLimitWindow:    rateWindow,
		AdminName:              v.GetString("admin.name"),
		AdminEmail:             v.GetString("admin.email"),
		AdminPassword:          v.GetString("admin.password"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SubmissionMaxMB <= 0 {
		cfg.SubmissionMaxMB = 10
	}

	return cfg, nil
}
