package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	StatsTTL   int
}

// LLMConfig points the generation client at an OpenAI-compatible local
// server (Ollama, LM Studio, llama.cpp server). Per-call sampling options
// live next to the call sites in internal/generation.
type LLMConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutSec int
}

type WorkerConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/issueops")

	viper.SetEnvPrefix("ISSUEOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 90)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/issueops.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.statsTTL", 60)

	viper.SetDefault("llm.baseURL", "http://localhost:11434/v1")
	viper.SetDefault("llm.apiKey", "ollama")
	viper.SetDefault("llm.model", "llama3.1:8b")
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("worker.workers", 2)
	viper.SetDefault("worker.queueSize", 64)
	viper.SetDefault("worker.maxAttempts", 3)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 120)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
