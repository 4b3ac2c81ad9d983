package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendQdrant   = "qdrant"
	BackendWeaviate = "weaviate"

	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderHash       = "hash"
	ProviderExtractive = "extractive"
)

type AppConfig struct {
	Server      ServerConfig         `yaml:"server"`
	Log         LogConfig            `yaml:"log"`
	Embedding   EmbeddingConfig      `yaml:"embedding"`
	LLM         LLMConfig            `yaml:"llm"`
	Chunking    ChunkingConfig       `yaml:"chunking"`
	Retrieval   RetrievalConfig      `yaml:"retrieval"`
	VectorStore VectorStoreConfig    `yaml:"vector_store"`
	Redis       RedisConfig          `yaml:"redis"`
	Credentials Credentials          `yaml:"credentials"`
	Topics      []commonModels.Topic `yaml:"topics"`
}

type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	AsyncIngest  bool   `yaml:"async_ingest"`
	EnableMCP    bool   `yaml:"enable_mcp"`
	UploadFolder string `yaml:"upload_folder"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type EmbeddingConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Dimension        int     `yaml:"dimension"`
	BaseURL          string  `yaml:"base_url"`
	BatchSize        int     `yaml:"batch_size"`
	BatchesPerSecond float64 `yaml:"batches_per_second"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	BaseURL     string  `yaml:"base_url"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	K       int           `yaml:"k"`
	Timeout time.Duration `yaml:"timeout"`
}

type VectorStoreConfig struct {
	Backend    string         `yaml:"backend"`
	IndexName  string         `yaml:"index_name"`
	SQLitePath string         `yaml:"sqlite_path"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Weaviate   WeaviateConfig `yaml:"weaviate"`
}

type QdrantConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	UseTLS   bool   `yaml:"use_tls"`
	PoolSize uint   `yaml:"pool_size"`
}

type WeaviateConfig struct {
	Host        string `yaml:"host"`
	Scheme      string `yaml:"scheme"`
	APIKey      string `yaml:"api_key"`
	ClassPrefix string `yaml:"class_prefix"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type Credentials struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GoogleAPIKey string `yaml:"google_api_key"`
}

// Default reproduces the reference deployment: two topics, OpenAI models and
// a local SQLite index shared by the ingester and the server.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddr:   ServerListenAddr,
			UploadFolder: "temporary_data",
		},
		Log: LogConfig{Level: "info"},
		Embedding: EmbeddingConfig{
			Provider:         ProviderOpenAI,
			Model:            OpenAIEmbeddingModel,
			Dimension:        DefaultEmbeddingDimension,
			BatchSize:        DefaultEmbeddingBatchSize,
			BatchesPerSecond: DefaultBatchesPerSecond,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       OpenAIChatModel,
			Temperature: DefaultModelTemperature,
		},
		Chunking:  ChunkingConfig{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Retrieval: RetrievalConfig{K: DefaultTopK, Timeout: QueryTimeout},
		VectorStore: VectorStoreConfig{
			Backend:    BackendSQLite,
			IndexName:  DefaultIndexName,
			SQLitePath: DefaultSQLitePath,
			Qdrant:     QdrantConfig{Host: QdrantHost, Port: QdrantGrpcPort, PoolSize: QdrantPoolSize},
			Weaviate:   WeaviateConfig{Host: WeaviateHost, Scheme: WeaviateScheme, ClassPrefix: WeaviateClassPrefix},
		},
		Redis: RedisConfig{Addr: RedisAddr},
		Topics: []commonModels.Topic{
			{Name: "career", Description: "Adam's career, experience, and professional background", Source: "data/career.md"},
			{Name: "funfacts", Description: "Adam's fun facts, personal interests, and personality", Source: "data/funfacts.md"},
		},
	}
}

// Load layers defaults, the optional YAML file, a .env file and the process
// environment, in that order. It does not validate.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("RAG_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, ragErrors.New(ragErrors.Configuration, "config", fmt.Errorf("reading %s: %w", path, err))
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, ragErrors.New(ragErrors.Configuration, "config", fmt.Errorf("parsing %s: %w", path, err))
		}
	}

	//a missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, ragErrors.New(ragErrors.Configuration, "config", fmt.Errorf("loading .env: %w", err))
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.Credentials.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Credentials.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&c.Server.ListenAddr, "LISTEN_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.VectorStore.Backend, "VECTOR_BACKEND")
	setString(&c.VectorStore.SQLitePath, "SQLITE_PATH")
	setString(&c.VectorStore.Qdrant.Host, "QDRANT_HOST")
	setString(&c.VectorStore.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&c.VectorStore.Weaviate.Host, "WEAVIATE_HOST")
	setString(&c.VectorStore.Weaviate.APIKey, "WEAVIATE_API_KEY")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	if v := os.Getenv("QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ragErrors.Newf(ragErrors.Configuration, "config", "QDRANT_PORT %q is not a number", v)
		}
		c.VectorStore.Qdrant.Port = port
	}
	if os.Getenv("REDIS_ADDR") != "" {
		c.Redis.Enabled = true
	}
	return nil
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Validate reports every fatal startup problem in one ConfigurationError.
func (c *AppConfig) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Chunking.Size <= 0 {
		add("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		add("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	}
	if c.Retrieval.K <= 0 {
		add("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.Timeout <= 0 {
		add("retrieval.timeout must be positive")
	}
	if c.Embedding.Dimension <= 0 {
		add("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		add("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Credentials.OpenAIAPIKey == "" {
			add("OPENAI_API_KEY is required for the openai embedding provider")
		}
	case ProviderGemini:
		if c.Credentials.GoogleAPIKey == "" {
			add("GOOGLE_API_KEY is required for the gemini embedding provider")
		}
	case ProviderHash:
	default:
		add("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" && c.Embedding.Provider != ProviderHash {
		add("embedding.model is required")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.Credentials.OpenAIAPIKey == "" {
			add("OPENAI_API_KEY is required for the openai llm provider")
		}
	case ProviderGemini:
		if c.Credentials.GoogleAPIKey == "" {
			add("GOOGLE_API_KEY is required for the gemini llm provider")
		}
	case ProviderExtractive:
	default:
		add("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" && c.LLM.Provider != ProviderExtractive {
		add("llm.model is required")
	}

	vs := c.VectorStore
	switch vs.Backend {
	case BackendMemory:
	case BackendSQLite:
		if vs.SQLitePath == "" {
			add("vector_store.sqlite_path is required for the sqlite backend")
		}
	case BackendQdrant:
		if vs.Qdrant.Host == "" || vs.Qdrant.Port <= 0 {
			add("vector_store.qdrant host and port are required for the qdrant backend")
		}
	case BackendWeaviate:
		if vs.Weaviate.Host == "" || vs.Weaviate.Scheme == "" {
			add("vector_store.weaviate host and scheme are required for the weaviate backend")
		}
	default:
		add("unknown vector store backend %q", vs.Backend)
	}
	if vs.Backend != BackendMemory && vs.IndexName == "" {
		add("vector_store.index_name is required")
	}

	if len(c.Topics) == 0 {
		add("at least one topic must be configured")
	}
	seen := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		switch {
		case !validTopicName(t.Name):
			add("topic name %q must be lowercase letters, digits or '-'", t.Name)
		case seen[t.Name]:
			add("topic %q is configured twice", t.Name)
		case t.Description == "":
			add("topic %q needs a description", t.Name)
		}
		seen[t.Name] = true
	}

	if len(problems) > 0 {
		return ragErrors.New(ragErrors.Configuration, "config", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// TopicNames returns the configured topic names in configuration order.
func (c *AppConfig) TopicNames() []string {
	names := make([]string, 0, len(c.Topics))
	for _, t := range c.Topics {
		names = append(names, t.Name)
	}
	return names
}

// topic names end up in collection and class names on the remote backends
func validTopicName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
