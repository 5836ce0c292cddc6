// Package config loads service configuration from an optional JSON file,
// a .env file and the environment, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	LLM     LLMConfig     `json:"llm"`
	Backend BackendConfig `json:"backend"`
	Session SessionConfig `json:"session"`
	Log     LogConfig     `json:"log"`
	Tracing TracingConfig `json:"tracing"`
	Events  EventsConfig  `json:"events"`
}

type ServerConfig struct {
	Addr        string   `json:"addr" validate:"required"`
	CORSOrigins []string `json:"cors_origins"`
}

type LLMConfig struct {
	APIKey  string `json:"api_key" validate:"required"`
	BaseURL string `json:"base_url" validate:"omitempty,url"`
	Model   string `json:"model" validate:"required"`
	// FallbackModel is tried when Model fails; empty disables it.
	FallbackModel string `json:"fallback_model"`
}

type BackendConfig struct {
	BaseURL string   `json:"base_url" validate:"required,url"`
	Timeout Duration `json:"timeout"`
}

type SessionConfig struct {
	Store         string   `json:"store" validate:"oneof=memory redis"`
	TTL           Duration `json:"ttl"`
	HistoryLimit  int      `json:"history_limit" validate:"gte=0"`
	RedisAddr     string   `json:"redis_addr" validate:"required_if=Store redis"`
	RedisPassword string   `json:"redis_password"`
	RedisDB       int      `json:"redis_db" validate:"gte=0"`
}

type LogConfig struct {
	Mode  string `json:"mode" validate:"omitempty,oneof=dev prod development production"`
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `json:"file"`
}

type TracingConfig struct {
	Enabled bool `json:"enabled"`
}

type EventsConfig struct {
	NATSURL string `json:"nats_url" validate:"omitempty,url"`
	Subject string `json:"subject"`
}

// Duration accepts "90s" style strings in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %s", b)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		LLM:    LLMConfig{Model: "gpt-4o-mini"},
		Backend: BackendConfig{
			BaseURL: "http://localhost:3000",
			Timeout: Duration{10 * time.Second},
		},
		Session: SessionConfig{Store: "memory", TTL: Duration{24 * time.Hour}, HistoryLimit: 50},
		Log:     LogConfig{Mode: "dev", Level: "info"},
		Events:  EventsConfig{Subject: "appraisal.completed"},
	}
}

// Load builds the configuration. path may be empty or point to a missing file.
func Load(path string) (*Config, error) {
	conf := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := sonic.Unmarshal(b, conf); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(c *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("APPRAISAL_ADDR", &c.Server.Addr)
	if v, ok := os.LookupEnv("APPRAISAL_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_BASE_URL", &c.LLM.BaseURL)
	str("APPRAISAL_LLM_MODEL", &c.LLM.Model)
	str("APPRAISAL_LLM_FALLBACK_MODEL", &c.LLM.FallbackModel)
	str("APPRAISAL_BACKEND_URL", &c.Backend.BaseURL)
	str("APPRAISAL_SESSION_STORE", &c.Session.Store)
	str("APPRAISAL_REDIS_ADDR", &c.Session.RedisAddr)
	str("APPRAISAL_REDIS_PASSWORD", &c.Session.RedisPassword)
	str("APPRAISAL_LOG_MODE", &c.Log.Mode)
	str("APPRAISAL_LOG_LEVEL", &c.Log.Level)
	str("APPRAISAL_LOG_FILE", &c.Log.File)
	str("APPRAISAL_NATS_URL", &c.Events.NATSURL)
	str("APPRAISAL_NATS_SUBJECT", &c.Events.Subject)

	durations := map[string]*Duration{
		"APPRAISAL_BACKEND_TIMEOUT": &c.Backend.Timeout,
		"APPRAISAL_SESSION_TTL":     &c.Session.TTL,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			dst.Duration = d
		}
	}

	ints := map[string]*int{
		"APPRAISAL_HISTORY_LIMIT": &c.Session.HistoryLimit,
		"APPRAISAL_REDIS_DB":      &c.Session.RedisDB,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("APPRAISAL_TRACING"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("APPRAISAL_TRACING: %w", err)
		}
		c.Tracing.Enabled = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
