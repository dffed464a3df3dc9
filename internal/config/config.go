package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	NATS   NATSConfig
	OpenAI OpenAIConfig
	Admin  AdminConfig
	SMTP   SMTPConfig
	Limits LimitsConfig
	CORS   CORSConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type OpenAIConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	TranscribeModel  string
	Timeout          time.Duration
	QuestionCacheTTL time.Duration
}

type AdminConfig struct {
	TokenSecret  string
	TokenExpiry  time.Duration
	AllowedEmail string
	// Bcrypt hash of the bootstrap admin key; empty disables the fallback.
	KeyHash        string
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LimitsConfig holds every admission-control knob: daily quotas, per-interview
// caps, the next-question cooldown and the per-requester request rate.
type LimitsConfig struct {
	DailyTokensFree        int
	DailyQuestionsFree     int
	MaxQuestionsPerSession int
	MaxAIQuestions         int
	Cooldown               time.Duration
	RequestsPerMinute      int
	HybridDBQuestions      int
	MaxAudioUploadBytes    int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          k.String("openai.api.key"),
			BaseURL:         k.String("openai.base.url"),
			Model:           k.String("openai.model"),
			TranscribeModel: k.String("openai.transcribe.model"),
		},
		Admin: AdminConfig{
			TokenSecret:    k.String("admin.token.secret"),
			AllowedEmail:   k.String("admin.allowed.email"),
			KeyHash:        k.String("admin.key.hash"),
			OTPMaxAttempts: k.Int("admin.otp.max.attempts"),
		},
		SMTP: SMTPConfig{
			Host:     k.String("smtp.host"),
			Port:     k.Int("smtp.port"),
			User:     k.String("smtp.user"),
			Password: k.String("smtp.password"),
			From:     k.String("smtp.from.email"),
		},
		Limits: LimitsConfig{
			DailyTokensFree:        k.Int("limits.daily.tokens.free"),
			DailyQuestionsFree:     k.Int("limits.daily.questions.free"),
			MaxQuestionsPerSession: k.Int("limits.max.questions.per.interview"),
			MaxAIQuestions:         k.Int("limits.max.ai.questions.per.interview"),
			RequestsPerMinute:      k.Int("limits.requests.per.minute"),
			HybridDBQuestions:      k.Int("limits.hybrid.db.questions"),
			MaxAudioUploadBytes:    k.Int64("limits.max.audio.upload.bytes"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitOrigins(k.String("cors.allowed.origins")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "intervox"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "intervox"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.TranscribeModel == "" {
		cfg.OpenAI.TranscribeModel = "whisper-1"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.Admin.OTPMaxAttempts == 0 {
		cfg.Admin.OTPMaxAttempts = 5
	}
	if cfg.Limits.DailyTokensFree == 0 {
		cfg.Limits.DailyTokensFree = 1500
	}
	if cfg.Limits.DailyQuestionsFree == 0 {
		cfg.Limits.DailyQuestionsFree = 5
	}
	if cfg.Limits.MaxQuestionsPerSession == 0 {
		cfg.Limits.MaxQuestionsPerSession = 5
	}
	if cfg.Limits.MaxAIQuestions == 0 {
		cfg.Limits.MaxAIQuestions = 2
	}
	if cfg.Limits.RequestsPerMinute == 0 {
		cfg.Limits.RequestsPerMinute = 10
	}
	if cfg.Limits.HybridDBQuestions == 0 {
		cfg.Limits.HybridDBQuestions = 3
	}
	if cfg.Limits.MaxAudioUploadBytes == 0 {
		cfg.Limits.MaxAudioUploadBytes = 5 * 1024 * 1024
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.OpenAI.Timeout, err = parseDuration(k.String("openai.timeout"), "60s")
	if err != nil {
		return nil, fmt.Errorf("parsing openai timeout: %w", err)
	}
	cfg.OpenAI.QuestionCacheTTL, err = parseDuration(k.String("openai.question.cache.ttl"), "180s")
	if err != nil {
		return nil, fmt.Errorf("parsing question cache ttl: %w", err)
	}
	cfg.Admin.TokenExpiry, err = parseDuration(k.String("admin.token.expiry"), "1h")
	if err != nil {
		return nil, fmt.Errorf("parsing admin token expiry: %w", err)
	}
	cfg.Admin.OTPTTL, err = parseDuration(k.String("admin.otp.ttl"), "5m")
	if err != nil {
		return nil, fmt.Errorf("parsing admin otp ttl: %w", err)
	}
	cfg.Limits.Cooldown, err = parseDuration(k.String("limits.next.question.cooldown"), "5s")
	if err != nil {
		return nil, fmt.Errorf("parsing next question cooldown: %w", err)
	}

	return cfg, nil
}

func parseDuration(raw, fallback string) (time.Duration, error) {
	if raw == "" {
		raw = fallback
	}
	return time.ParseDuration(raw)
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
