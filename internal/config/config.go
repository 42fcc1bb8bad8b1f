// Package config loads the collector's configuration from environment
// variables, with defaults suitable for a local filesystem deployment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config holds all runtime settings. Backend selects the RecordStore
// variant; only the settings for the selected backend are required.
type Config struct {
	ServerPort string

	// Backend is one of "files", "mongo", "postgres".
	Backend string

	// Schema is "base" or "extended" and controls which annotation
	// fields uploads carry.
	Schema string

	// DatasetDir is the filesystem backend's root (metadata.csv + audio/).
	DatasetDir string

	// MaxAudioMB caps the decoded recording size.
	MaxAudioMB int

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: envOrDefault("SERVER_PORT", "8080"),
		Backend:    envOrDefault("STORAGE_BACKEND", "files"),
		Schema:     envOrDefault("ENTRY_SCHEMA", "extended"),
		DatasetDir: envOrDefault("DATASET_DIR", "dataset"),

		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   envOrDefault("MONGO_DATABASE", "voice_dataset"),
		MongoCollection: envOrDefault("MONGO_COLLECTION", "entries"),

		DBHost:     envOrDefault("DB_HOST", "localhost"),
		DBPort:     envOrDefault("DB_PORT", "5432"),
		DBUser:     envOrDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     envOrDefault("DB_NAME", "voice_dataset"),
		DBSSLMode:  envOrDefault("DB_SSLMODE", "disable"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY_ID"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET_NAME"),
	}

	maxMBStr := envOrDefault("MAX_AUDIO_SIZE_MB", "10")
	maxMB, err := strconv.Atoi(maxMBStr)
	if err != nil {
		return nil, fmt.Errorf("MAX_AUDIO_SIZE_MB is not a valid integer ('%s'): %w", maxMBStr, err)
	}
	cfg.MaxAudioMB = maxMB

	useSSLStr := os.Getenv("MINIO_USE_SSL")
	if useSSLStr != "" {
		useSSL, err := strconv.ParseBool(useSSLStr)
		if err != nil {
			log.Printf("Warning: MINIO_USE_SSL is not a valid boolean ('%s'). Defaulting to false.", useSSLStr)
			useSSL = false
		}
		cfg.MinioUseSSL = useSSL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend/schema values and that the selected backend has
// the settings it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case "files":
		if c.DatasetDir == "" {
			return fmt.Errorf("DATASET_DIR must not be empty for the files backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI must be set for the mongo backend")
		}
	case "postgres":
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" || c.MinioBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY and MINIO_BUCKET_NAME must be set for the postgres backend")
		}
		if c.DBPassword == "" {
			log.Println("WARNING: DB_PASSWORD environment variable not set.")
		}
	default:
		return fmt.Errorf("invalid storage backend '%s': must be files, mongo or postgres", c.Backend)
	}

	if c.Schema != "base" && c.Schema != "extended" {
		return fmt.Errorf("invalid entry schema '%s': must be base or extended", c.Schema)
	}

	if c.MaxAudioMB <= 0 {
		return fmt.Errorf("MAX_AUDIO_SIZE_MB must be positive, got %d", c.MaxAudioMB)
	}

	return nil
}

// PostgresDSN assembles the lib/pq connection string from the parts.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MaxAudioBytes returns the recording size cap in bytes.
func (c *Config) MaxAudioBytes() int {
	return c.MaxAudioMB << 20
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
