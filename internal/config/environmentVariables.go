package config

import (
	"time"
)

const (
	TRACE_ID_KEY = "traceId"

	//defaults, overridable through the config file or env
	DefaultChunkSize          = 500
	DefaultChunkOverlap       = 50
	DefaultTopK               = 4
	DefaultModelTemperature   = 0.7
	DefaultEmbeddingDimension = 1536
	DefaultEmbeddingBatchSize = 100
	DefaultBatchesPerSecond   = 5.0
	DefaultIndexName          = "adam"
	DefaultSQLitePath         = "data/portfolio.db"

	OpenAIEmbeddingModel = "text-embedding-3-small"
	OpenAIChatModel      = "gpt-4o-mini"
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"

	//one query end to end, every external call shares this deadline
	QueryTimeout  = 30 * time.Second
	IngestTimeout = 10 * time.Minute

	//one bounded retry for transient provider failures
	RetryBackoff            = 2 * time.Second
	BreakerFailureThreshold = 5
	BreakerOpenTimeout      = 30 * time.Second

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 4
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = QueryTimeout + 5*time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3001"

	//ingestion job buffer limit
	BufferLimit   = 20
	MaxUploadSize = 32 << 20 //32mb

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantPoolSize         = 1 //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout = 30 * time.Second
	WeaviateHost           = "localhost:8080"
	WeaviateScheme         = "http"
	WeaviateClassPrefix    = "Portfolio"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore    = 0
	RedisIngestLocks = 1

	//redis timeouts
	RedisJobStoreTTL   = 24 * time.Hour
	RedisIngestLockTTL = IngestTimeout
)
