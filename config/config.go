package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string       `mapstructure:"port"`
	UploadDir       string       `mapstructure:"upload_dir"`
	VectorStorePath string       `mapstructure:"vector_store_path"`
	ChatHistoryDir  string       `mapstructure:"chat_history_dir"`
	AI              AIConfig     `mapstructure:"ai"`
	Chunking        ChunkConfig  `mapstructure:"chunking"`
	Ingest          IngestConfig `mapstructure:"ingest"`
	Auth            AuthConfig   `mapstructure:"auth"`
}

type AIConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"OPENAI_API_KEY"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type ChunkConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

type IngestConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type AuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Secret   string `mapstructure:"JWT_SECRET"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables
	v.BindEnv("ai.OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("auth.JWT_SECRET", "JWT_SECRET")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Port == "" {
		c.Port = "8002"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.VectorStorePath == "" {
		c.VectorStorePath = "vector_store"
	}
	if c.ChatHistoryDir == "" {
		c.ChatHistoryDir = "chat_histories"
	}
	if c.AI.Endpoint == "" {
		c.AI.Endpoint = "http://localhost:11434/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "llama3"
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = "nomic-embed-text"
	}
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 500
	}
	if c.Chunking.ChunkOverlap == 0 {
		c.Chunking.ChunkOverlap = 100
	}
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = 2
	}
	if c.Ingest.QueueSize == 0 {
		c.Ingest.QueueSize = 64
	}
}
