package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string
	LogLevel string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL string

	ServerPort string

	JWTSecret         string
	AccessTokenMaxAge int

	WSAllowedOrigins    []string
	WSSendBuffer        int
	WSMaxMessageBytes   int64
	RealtimeDistributed bool

	LinkPreviewEnabled  bool
	LinkPreviewTimeout  time.Duration
	LinkPreviewCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	WorkerCount int
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("ACCESS_TOKEN_MAX_AGE", 900)
	v.SetDefault("WS_ALLOWED_ORIGINS", "")
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_MAX_MESSAGE_BYTES", 4096)
	v.SetDefault("REALTIME_DISTRIBUTED", false)
	v.SetDefault("LINK_PREVIEW_ENABLED", true)
	v.SetDefault("LINK_PREVIEW_TIMEOUT", "3s")
	v.SetDefault("LINK_PREVIEW_CACHE_TTL", "24h")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("WORKER_COUNT", 2)
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	accessTokenMaxAge := v.GetInt("ACCESS_TOKEN_MAX_AGE")
	if accessTokenMaxAge <= 0 {
		accessTokenMaxAge = 900
	}

	sendBuffer := v.GetInt("WS_SEND_BUFFER")
	if sendBuffer <= 0 {
		sendBuffer = 256
	}

	return &Config{
		AppEnv:   strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: v.GetString("LOG_LEVEL"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		RedisURL: v.GetString("REDIS_URL"),

		ServerPort: v.GetString("SERVER_PORT"),

		JWTSecret:         v.GetString("JWT_SECRET"),
		AccessTokenMaxAge: accessTokenMaxAge,

		WSAllowedOrigins:    splitList(v.GetString("WS_ALLOWED_ORIGINS")),
		WSSendBuffer:        sendBuffer,
		WSMaxMessageBytes:   v.GetInt64("WS_MAX_MESSAGE_BYTES"),
		RealtimeDistributed: v.GetBool("REALTIME_DISTRIBUTED"),

		LinkPreviewEnabled:  v.GetBool("LINK_PREVIEW_ENABLED"),
		LinkPreviewTimeout:  v.GetDuration("LINK_PREVIEW_TIMEOUT"),
		LinkPreviewCacheTTL: v.GetDuration("LINK_PREVIEW_CACHE_TTL"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),

		WorkerCount: v.GetInt("WORKER_COUNT"),
	}
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
