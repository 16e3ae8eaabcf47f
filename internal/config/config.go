package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	LLM       LLMConfig       `yaml:"llm"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	News      NewsConfig      `yaml:"news"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"READ_TIMEOUT"            env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"WRITE_TIMEOUT"           env-default:"0s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"IDLE_TIMEOUT"            env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"        env-default:"10s"`
	RateLimit       int           `yaml:"rate_limit"       env:"RATE_LIMIT_PER_MINUTE"   env-default:"120"`
	AllowedOrigins  string        `yaml:"allowed_origins"  env:"CORS_ALLOWED_ORIGINS"    env-default:"*"`
}

// DatabaseConfig selects the vocabulary store. Driver is "sqlite" (DSN is a
// file path) or "postgres" (DSN is a connection URL).
type DatabaseConfig struct {
	Driver   string `yaml:"driver"    env:"DATABASE_DRIVER"    env-default:"sqlite"`
	DSN      string `yaml:"dsn"       env:"DATABASE_DSN"       env-default:"vocabulary.db"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS" env-default:"10"`
}

// RedisConfig is optional. With no address the headline cache stays in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB" env-default:"0"`
}

type LLMConfig struct {
	DefaultProvider string `yaml:"default_provider" env:"LLM_PROVIDER" env-default:"ollama"`
}

type OllamaConfig struct {
	BaseURL string `yaml:"base_url" env:"OLLAMA_BASE_URL" env-default:"http://localhost:11434"`
	Model   string `yaml:"model"    env:"OLLAMA_MODEL"    env-default:"llama3.2"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model  string `yaml:"model"   env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key" env:"ANTHROPIC_API_KEY"`
	Model  string `yaml:"model"   env:"ANTHROPIC_MODEL" env-default:"claude-3-5-haiku-latest"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `yaml:"model"   env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
}

type NewsConfig struct {
	APIKey   string        `yaml:"api_key"  env:"NEWS_API_KEY"`
	Endpoint string        `yaml:"endpoint" env:"NEWS_API_ENDPOINT" env-default:"https://newsapi.org/v2/top-headlines"`
	TTL      time.Duration `yaml:"ttl"      env:"NEWS_CACHE_TTL"    env-default:"30m"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

// Load reads .env (if present), then an optional YAML file named by
// CONFIG_PATH, then the environment. Environment values win. Missing API keys
// are not an error: the providers and the news feed report them at call time.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.News.TTL <= 0 {
		return fmt.Errorf("news cache ttl must be positive, got %s", c.News.TTL)
	}
	c.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(c.LLM.DefaultProvider))
	switch c.LLM.DefaultProvider {
	case "ollama", "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.DefaultProvider)
	}
	return nil
}
