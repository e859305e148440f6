package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Rooms   RoomsConfig   `mapstructure:"rooms"`
	Log     LogConfig     `mapstructure:"log"`

	DatabaseURL string `mapstructure:"database_url" validate:"omitempty,url"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"oneof=development production test"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Host string `mapstructure:"host"`
}

type ScoringConfig struct {
	// AIServiceURL is the rating service base URL; empty runs offline.
	AIServiceURL string        `mapstructure:"ai_service_url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type RoomsConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// TopicsFile replaces the built-in topics with the first column of a CSV.
	TopicsFile string `mapstructure:"topics_file"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// flat environment names accepted on top of the nested keys
var envAliases = map[string]string{
	"server.port":            "PORT",
	"scoring.ai_service_url": "AI_SERVICE_URL",
	"scoring.timeout":        "SCORING_TIMEOUT",
	"redis.addr":             "REDIS_ADDR",
	"redis.password":         "REDIS_PASSWORD",
	"redis.db":               "REDIS_DB",
	"rooms.idle_ttl":         "ROOM_IDLE_TTL",
	"rooms.sweep_interval":   "ROOM_SWEEP_INTERVAL",
	"rooms.topics_file":      "TOPICS_FILE",
	"log.level":              "LOG_LEVEL",
	"app.env":                "ENV",
	"database_url":           "DATABASE_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sketchoff")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.host", "")

	v.SetDefault("scoring.ai_service_url", "")
	v.SetDefault("scoring.timeout", 10*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rooms.idle_ttl", 10*time.Minute)
	v.SetDefault("rooms.sweep_interval", time.Minute)
	v.SetDefault("rooms.topics_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("database_url", "")
}

// Load reads an optional .env file, then the process environment, and
// validates the result.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
