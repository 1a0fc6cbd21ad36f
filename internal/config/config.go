package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	LogLevel         string `validate:"oneof=trace debug info warn error"`
	WorkerCount      int    `validate:"min=1,max=256"`
	BackupSuffix     string `validate:"required"`
	RenpyOutput      string `validate:"required"`
	UnrpycCommand    string
	DecompileTimeout time.Duration `validate:"min=0"`
	StorePath        string        `validate:"required"`

	// Translation memory and relation graph. Only needed by the memory and
	// relations commands.
	DatabaseURL         string
	Neo4jURI            string
	Neo4jUser           string
	Neo4jPassword       string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingBaseURL    string  `validate:"omitempty,url"`
	EmbeddingDimensions int     `validate:"min=0"`
	FuzzyThreshold      float64 `validate:"gte=0,lte=1"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		LogLevel:            getEnv("BGA_LOG_LEVEL", "info"),
		WorkerCount:         getEnvInt("BGA_WORKER_COUNT", 8),
		BackupSuffix:        getEnv("BGA_BACKUP_SUFFIX", ".backup"),
		RenpyOutput:         getEnv("BGA_RENPY_OUTPUT", "translations.rpy"),
		UnrpycCommand:       getEnv("BGA_UNRPYC", ""),
		DecompileTimeout:    getEnvDuration("BGA_DECOMPILE_TIMEOUT", 2*time.Minute),
		StorePath:           getEnv("BGA_STORE_PATH", "bga.db"),
		DatabaseURL:         getEnv("DATABASE_URL", "postgres://localhost:5432/bga?sslmode=disable"),
		Neo4jURI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:           getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:       getEnv("NEO4J_PASSWORD", "password"),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-v4"),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1024),
		FuzzyThreshold:      getEnvFloat("FUZZY_THRESHOLD", 0.92),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EmbeddingsEnabled reports whether an embedding endpoint is configured.
func (c *Config) EmbeddingsEnabled() bool {
	return c.EmbeddingAPIKey != "" && c.EmbeddingBaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
