package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string            `mapstructure:"port"`
	Debug       bool              `mapstructure:"debug"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	AI          AIConfig          `mapstructure:"ai"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
	Search      SearchConfig      `mapstructure:"search"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	VectorIndex string `mapstructure:"vector_index"`
	BlobBucket  string `mapstructure:"blob_bucket"`
}

// VectorStoreConfig selects where chunk embeddings live.
// Backend is one of "mongo", "weaviate" or "memory".
type VectorStoreConfig struct {
	Backend  string              `mapstructure:"backend"`
	Weaviate WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
	Class  string `mapstructure:"class"`
}

type AIConfig struct {
	Provider             string   `mapstructure:"provider"`
	APIKey               string   `mapstructure:"api_key"`
	BaseURL              string   `mapstructure:"base_url"`
	EmbeddingModel       string   `mapstructure:"embedding_model"`
	EmbeddingDimensions  int      `mapstructure:"embedding_dimensions"`
	OCRModels            []string `mapstructure:"ocr_models"`
	SummaryModels        []string `mapstructure:"summary_models"`
	TranscribeModels     []string `mapstructure:"transcribe_models"`
	AnswerModel          string   `mapstructure:"answer_model"`
	InlineLimitBytes     int64    `mapstructure:"inline_limit_bytes"`
	SummaryMaxInputChars int      `mapstructure:"summary_max_input_chars"`
}

type IngestConfig struct {
	ChunkSize        int   `mapstructure:"chunk_size"`
	ChunkOverlap     int   `mapstructure:"chunk_overlap"`
	EmbedConcurrency int   `mapstructure:"embed_concurrency"`
	EmbedRetries     int   `mapstructure:"embed_retries"`
	MaxUploadBytes   int64 `mapstructure:"max_upload_bytes"`
}

type SearchConfig struct {
	DefaultTopK      int     `mapstructure:"default_top_k"`
	MaxTopK          int     `mapstructure:"max_top_k"`
	DefaultThreshold float64 `mapstructure:"default_threshold"`
}

type AuthConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	CookieName     string   `mapstructure:"cookie_name"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("debug", false)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "sikoma")
	v.SetDefault("mongo.vector_index", "chunk_embedding_index")
	v.SetDefault("mongo.blob_bucket", "attachments")
	v.SetDefault("vector_store.backend", "mongo")
	v.SetDefault("vector_store.weaviate.host", "")
	v.SetDefault("vector_store.weaviate.class", "DocumentChunk")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.embedding_model", "text-embedding-004")
	v.SetDefault("ai.embedding_dimensions", 768)
	v.SetDefault("ai.ocr_models", []string{"gemini-2.0-flash", "gemini-1.5-flash"})
	v.SetDefault("ai.summary_models", []string{"gemini-2.0-flash", "gemini-1.5-flash"})
	v.SetDefault("ai.transcribe_models", []string{"gemini-2.0-flash", "gemini-1.5-flash"})
	v.SetDefault("ai.answer_model", "gemini-2.0-flash")
	v.SetDefault("ai.inline_limit_bytes", 15<<20)
	v.SetDefault("ai.summary_max_input_chars", 60000)
	v.SetDefault("ingest.chunk_size", 900)
	v.SetDefault("ingest.chunk_overlap", 120)
	v.SetDefault("ingest.embed_concurrency", 4)
	v.SetDefault("ingest.embed_retries", 2)
	v.SetDefault("ingest.max_upload_bytes", 25<<20)
	v.SetDefault("search.default_top_k", 8)
	v.SetDefault("search.max_top_k", 50)
	v.SetDefault("search.default_threshold", 0.75)
	v.SetDefault("auth.cookie_name", "token")
	v.SetDefault("auth.allowed_origins", []string{"http://localhost:3000"})
}

// LoadConfig reads configPath (optional) and the environment into a Config.
// A missing file is not an error; defaults and environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind the well-known secrets to their conventional variable names
	v.BindEnv("mongo.uri", "MONGODB_URI")
	v.BindEnv("vector_store.weaviate.api_key", "WEAVIATE_APIKEY")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("ai.api_key", "GEMINI_API_KEY", "OPENAI_API_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.VectorStore.Backend {
	case "mongo", "weaviate", "memory":
	default:
		return fmt.Errorf("unknown vector_store.backend %q", c.VectorStore.Backend)
	}
	switch c.AI.Provider {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	if c.AI.EmbeddingDimensions <= 0 {
		return fmt.Errorf("ai.embedding_dimensions must be positive")
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be in [0, 1]")
	}
	return nil
}
