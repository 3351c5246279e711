package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string       `yaml:"discord_token"`
	DatabasePath string       `yaml:"database_path"`
	LogLevel     string       `yaml:"log_level"`
	Health       HealthConfig `yaml:"health"`
	AutoMod      AutoMod      `yaml:"automod"`
	Leveling     Leveling     `yaml:"leveling"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type AutoMod struct {
	SpamMaxMessages    int `yaml:"spam_max_messages"`
	SpamWindowMS       int `yaml:"spam_window_ms"`
	SpamTimeoutMinutes int `yaml:"spam_timeout_minutes"`
	WarnReplySeconds   int `yaml:"warn_reply_seconds"`
}

type Leveling struct {
	XPPerMessage    int `yaml:"xp_per_message"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/guildwarden.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		AutoMod: AutoMod{
			SpamMaxMessages:    7,
			SpamWindowMS:       7000,
			SpamTimeoutMinutes: 10,
			WarnReplySeconds:   5,
		},
		Leveling: Leveling{
			XPPerMessage:    10,
			CooldownSeconds: 45,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.AutoMod.SpamMaxMessages = envInt("SPAM_MAX_MESSAGES", cfg.AutoMod.SpamMaxMessages)
	cfg.AutoMod.SpamWindowMS = envInt("SPAM_WINDOW_MS", cfg.AutoMod.SpamWindowMS)
	cfg.AutoMod.SpamTimeoutMinutes = envInt("SPAM_TIMEOUT_MINUTES", cfg.AutoMod.SpamTimeoutMinutes)
	cfg.AutoMod.WarnReplySeconds = envInt("WARN_REPLY_SECONDS", cfg.AutoMod.WarnReplySeconds)
	cfg.Leveling.XPPerMessage = envInt("XP_PER_MESSAGE", cfg.Leveling.XPPerMessage)
	cfg.Leveling.CooldownSeconds = envInt("XP_COOLDOWN_SECONDS", cfg.Leveling.CooldownSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
