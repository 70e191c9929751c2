// Package config loads settings from the environment, an optional .env
// file and an optional YAML file. Precedence: environment > YAML > default.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort string
	DBPath  string

	LogLevel  slog.Level
	LogFormat string

	QdrantURL        string
	QdrantCollection string

	EmbeddingBaseURL   string
	EmbeddingAPIKey    string
	EmbeddingModel     string
	EmbeddingDim       int
	EmbeddingBatchSize int

	SparseBaseURL string
	SparseAPIKey  string

	RerankURL    string
	RerankAPIKey string
	RerankModel  string

	ParserBaseURL string
	ParserAPIKey  string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	SummaryBaseURL string
	SummaryAPIKey  string
	SummaryModel   string

	MaxConcurrentTasks int
}

// fileConfig mirrors Config for the YAML overlay. Only set fields apply.
type fileConfig struct {
	APIPort            string `yaml:"api_port"`
	DBPath             string `yaml:"db_path"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`
	QdrantURL          string `yaml:"qdrant_url"`
	QdrantCollection   string `yaml:"qdrant_collection"`
	EmbeddingBaseURL   string `yaml:"embedding_base_url"`
	EmbeddingAPIKey    string `yaml:"embedding_api_key"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDim       string `yaml:"embedding_dim"`
	EmbeddingBatchSize string `yaml:"embedding_batch_size"`
	SparseBaseURL      string `yaml:"sparse_base_url"`
	SparseAPIKey       string `yaml:"sparse_api_key"`
	RerankURL          string `yaml:"rerank_url"`
	RerankAPIKey       string `yaml:"rerank_api_key"`
	RerankModel        string `yaml:"rerank_model"`
	ParserBaseURL      string `yaml:"parser_base_url"`
	ParserAPIKey       string `yaml:"parser_api_key"`
	S3Region           string `yaml:"s3_region"`
	S3Bucket           string `yaml:"s3_bucket"`
	S3AccessKey        string `yaml:"s3_access_key"`
	S3SecretKey        string `yaml:"s3_secret_key"`
	S3Endpoint         string `yaml:"s3_endpoint"`
	SummaryBaseURL     string `yaml:"summary_base_url"`
	SummaryAPIKey      string `yaml:"summary_api_key"`
	SummaryModel       string `yaml:"summary_model"`
	MaxConcurrentTasks string `yaml:"max_concurrent_tasks"`
}

// Load reads configuration. A .env in the working directory or any parent
// (up to five levels) is applied first; CONFIG_FILE names an optional YAML
// file. Environment variables set directly always win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	pick := func(envKey, fileVal, def string) string {
		if v := os.Getenv(envKey); v != "" {
			return v
		}
		if fileVal != "" {
			return fileVal
		}
		return def
	}

	cfg := &Config{
		APIPort:          pick("API_PORT", fc.APIPort, "9000"),
		DBPath:           pick("DB_PATH", fc.DBPath, "./data/knowledgebase.db"),
		QdrantURL:        pick("QDRANT_URL", fc.QdrantURL, "http://localhost:6334"),
		QdrantCollection: pick("QDRANT_COLLECTION", fc.QdrantCollection, "kb_chunks"),
		EmbeddingBaseURL: pick("EMBEDDING_BASE_URL", fc.EmbeddingBaseURL, "http://localhost:8081"),
		EmbeddingAPIKey:  pick("EMBEDDING_API_KEY", fc.EmbeddingAPIKey, ""),
		EmbeddingModel:   pick("EMBEDDING_MODEL", fc.EmbeddingModel, "text-embedding-v3"),
		SparseBaseURL:    pick("SPARSE_BASE_URL", fc.SparseBaseURL, ""),
		SparseAPIKey:     pick("SPARSE_API_KEY", fc.SparseAPIKey, ""),
		RerankURL:        pick("RERANK_URL", fc.RerankURL, ""),
		RerankAPIKey:     pick("RERANK_API_KEY", fc.RerankAPIKey, ""),
		RerankModel:      pick("RERANK_MODEL", fc.RerankModel, "jina-reranker-v2-base-multilingual"),
		ParserBaseURL:    pick("PARSER_BASE_URL", fc.ParserBaseURL, ""),
		ParserAPIKey:     pick("PARSER_API_KEY", fc.ParserAPIKey, ""),
		S3Region:         pick("S3_REGION", fc.S3Region, "us-east-1"),
		S3Bucket:         pick("S3_BUCKET", fc.S3Bucket, ""),
		S3AccessKey:      pick("S3_ACCESS_KEY", fc.S3AccessKey, ""),
		S3SecretKey:      pick("S3_SECRET_KEY", fc.S3SecretKey, ""),
		S3Endpoint:       pick("S3_ENDPOINT", fc.S3Endpoint, ""),
		SummaryBaseURL:   pick("SUMMARY_BASE_URL", fc.SummaryBaseURL, ""),
		SummaryAPIKey:    pick("SUMMARY_API_KEY", fc.SummaryAPIKey, ""),
		SummaryModel:     pick("SUMMARY_MODEL", fc.SummaryModel, "deepseek-chat"),
	}

	var err error
	cfg.EmbeddingDim, err = pickInt("EMBEDDING_DIM", fc.EmbeddingDim, 0)
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM is required and must be greater than 0")
	}
	cfg.EmbeddingBatchSize, err = pickInt("EMBEDDING_BATCH_SIZE", fc.EmbeddingBatchSize, 10)
	if err != nil {
		return nil, err
	}
	cfg.MaxConcurrentTasks, err = pickInt("MAX_CONCURRENT_TASKS", fc.MaxConcurrentTasks, 2)
	if err != nil {
		return nil, err
	}

	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}

	cfg.LogLevel = parseLogLevel(pick("LOG_LEVEL", fc.LogLevel, "info"))
	cfg.LogFormat = strings.ToLower(pick("LOG_FORMAT", fc.LogFormat, "text"))

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// parseLogLevel maps a level name to a slog.Level, defaulting to info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func pickInt(envKey, fileVal string, def int) (int, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = fileVal
	}
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
	}
	return n, nil
}
