package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Groq     GroqConfig
	Analyzer AnalyzerConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	DSN string
}

type GroqConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	WhisperModel   string
	RequestTimeout int // seconds
}

type AnalyzerConfig struct {
	FaceServiceURL  string
	VoiceServiceURL string
	Timeout         int // seconds
}

type PipelineConfig struct {
	Concurrency      int
	MaxRetries       int
	BackoffBaseDelay time.Duration
	LockDuration     time.Duration
	Language         string
	ScratchDir       string
	FFmpegBinary     string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("GROQ_API_KEY")
	readSecret("POSTGRES_DSN")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("postgres.dsn", "POSTGRES_DSN")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.chat_model", "GROQ_CHAT_MODEL")
	_ = viper.BindEnv("groq.whisper_model", "GROQ_WHISPER_MODEL")
	_ = viper.BindEnv("groq.request_timeout", "GROQ_REQUEST_TIMEOUT")
	_ = viper.BindEnv("analyzer.face_service_url", "FACE_SERVICE_URL")
	_ = viper.BindEnv("analyzer.voice_service_url", "VOICE_SERVICE_URL")
	_ = viper.BindEnv("analyzer.timeout", "ANALYZER_TIMEOUT")
	_ = viper.BindEnv("pipeline.concurrency", "PIPELINE_CONCURRENCY")
	_ = viper.BindEnv("pipeline.max_retries", "PIPELINE_MAX_RETRIES")
	_ = viper.BindEnv("pipeline.backoff_base_seconds", "PIPELINE_BACKOFF_BASE_SECONDS")
	_ = viper.BindEnv("pipeline.lock_minutes", "PIPELINE_LOCK_MINUTES")
	_ = viper.BindEnv("pipeline.language", "TRANSCRIPTION_LANGUAGE")
	_ = viper.BindEnv("pipeline.scratch_dir", "SCRATCH_DIR")
	_ = viper.BindEnv("pipeline.ffmpeg_binary", "FFMPEG_BINARY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("postgres.dsn", "host=localhost user=hireview password=hireview dbname=hireview port=5432 sslmode=disable")

	// Groq defaults
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.chat_model", "llama-3.3-70b-versatile")
	viper.SetDefault("groq.whisper_model", "whisper-large-v3")
	viper.SetDefault("groq.request_timeout", 120)

	// Analyzer service defaults
	viper.SetDefault("analyzer.face_service_url", "http://localhost:8085")
	viper.SetDefault("analyzer.voice_service_url", "http://localhost:8086")
	viper.SetDefault("analyzer.timeout", 120)

	// Pipeline defaults: single worker to respect upstream rate limits and
	// local CPU contention from the analyzer models.
	viper.SetDefault("pipeline.concurrency", 1)
	viper.SetDefault("pipeline.max_retries", 3)
	viper.SetDefault("pipeline.backoff_base_seconds", 5)
	viper.SetDefault("pipeline.lock_minutes", 10)
	viper.SetDefault("pipeline.language", "en")
	viper.SetDefault("pipeline.scratch_dir", "")
	viper.SetDefault("pipeline.ffmpeg_binary", "ffmpeg")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	scratchDir := viper.GetString("pipeline.scratch_dir")
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "hireview")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Postgres: PostgresConfig{
			DSN: viper.GetString("postgres.dsn"),
		},
		Groq: GroqConfig{
			APIKey:         viper.GetString("groq.api_key"),
			BaseURL:        viper.GetString("groq.base_url"),
			ChatModel:      viper.GetString("groq.chat_model"),
			WhisperModel:   viper.GetString("groq.whisper_model"),
			RequestTimeout: viper.GetInt("groq.request_timeout"),
		},
		Analyzer: AnalyzerConfig{
			FaceServiceURL:  viper.GetString("analyzer.face_service_url"),
			VoiceServiceURL: viper.GetString("analyzer.voice_service_url"),
			Timeout:         viper.GetInt("analyzer.timeout"),
		},
		Pipeline: PipelineConfig{
			Concurrency:      viper.GetInt("pipeline.concurrency"),
			MaxRetries:       viper.GetInt("pipeline.max_retries"),
			BackoffBaseDelay: time.Duration(viper.GetInt("pipeline.backoff_base_seconds")) * time.Second,
			LockDuration:     time.Duration(viper.GetInt("pipeline.lock_minutes")) * time.Minute,
			Language:         viper.GetString("pipeline.language"),
			ScratchDir:       scratchDir,
			FFmpegBinary:     viper.GetString("pipeline.ffmpeg_binary"),
		},
	}

	return cfg, nil
}
