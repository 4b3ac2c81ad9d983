// Package qdrantDB is the remote managed index.
//
// Each topic is an alias <index>_<topic> pointing at a physical collection
// <index>_<topic>_<generation>. ReplaceTopic fills a fresh collection, moves
// the alias in one UpdateAliases call and then drops the previous generation,
// so queries always hit a complete collection. UpsertBatch writes through the
// alias with ids derived from (topic, ordinal), which makes it replace by
// ordinal.
package qdrantDB

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

const upsertBatchSize = 256

var (
	once     sync.Once
	instance *Store
	initErr  error
)

type Options struct {
	Host      string
	Port      int
	APIKey    string
	UseTLS    bool
	PoolSize  uint
	IndexName string
	Dimension int
}

type Store struct {
	client    *qdrant.Client
	index     string
	dimension int
	logger    *logger_i.Logger

	closeOnce sync.Once
	closeErr  error
}

// GetQdrantStore connects once per process and closes the client when ctx
// is done.
func GetQdrantStore(ctx context.Context, opts Options) (*Store, error) {
	once.Do(func() {
		instance, initErr = New(ctx, opts)
		if initErr == nil {
			go closeQdrant(ctx, instance)
		}
	})
	return instance, initErr
}

func New(ctx context.Context, opts Options) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		APIKey:   opts.APIKey,
		UseTLS:   opts.UseTLS,
		PoolSize: opts.PoolSize,
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: config.QdrantKeepAliveTimeout}),
		},
	})
	if err != nil {
		return nil, ragErrors.New(ragErrors.Configuration, "qdrant", fmt.Errorf("could not instantiate: %w", err))
	}
	s := &Store{client: client, index: opts.IndexName, dimension: opts.Dimension, logger: logger_i.NewLogger("Qdrant")}
	if err := s.checkDimension(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	s.logger.Info("Qdrant index ready", "host", opts.Host, "index", opts.IndexName)
	return s, nil
}

func closeQdrant(ctx context.Context, s *Store) {
	<-ctx.Done()
	s.logger.Info("Shutting down Qdrant")
	if err := s.Close(); err != nil {
		s.logger.Error("could not close Qdrant", "error", err)
		return
	}
	s.logger.Info("Closed Qdrant")
}

// Close releases the client. It runs once; later calls return the first
// result, so the context watcher and the owner can both call it.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.client.Close() })
	return s.closeErr
}

func (s *Store) aliasName(topic string) string {
	return s.index + "_" + topic
}

func (s *Store) generationName(topic string) string {
	return s.aliasName(topic) + "_" + strconv.FormatInt(time.Now().UnixNano(), 10)
}

// checkDimension compares every existing topic collection of this index
// against the configured vector size.
func (s *Store) checkDimension(ctx context.Context) error {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return ragErrors.FromProvider("qdrant", err)
	}
	for _, a := range aliases {
		if !strings.HasPrefix(a.GetAliasName(), s.index+"_") {
			continue
		}
		info, err := s.client.GetCollectionInfo(ctx, a.GetCollectionName())
		if err != nil {
			return ragErrors.FromProvider("qdrant", err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != uint64(s.dimension) {
			return ragErrors.Newf(ragErrors.Configuration, "qdrant",
				"collection %s has vector size %d, configured %d", a.GetCollectionName(), size, s.dimension)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error) {
	if err := vectorDB.CheckQuery(vector, k, s.dimension); err != nil {
		return nil, err
	}
	loggr := s.logger.WithTrace(ctx, config.TRACE_ID_KEY)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.aliasName(topic),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if status.Code(err) == codes.NotFound {
		return []commonModels.SearchResult{}, nil
	}
	if err != nil {
		loggr.Error("Error querying Qdrant", "topic", topic, "error", err)
		return nil, ragErrors.FromProvider("vector_search", err)
	}
	results := toResults(hits)
	loggr.Debug("Qdrant matches", "topic", topic, "count", len(results))
	return results, nil
}

func toResults(hits []*qdrant.ScoredPoint) []commonModels.SearchResult {
	results := make([]commonModels.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, commonModels.SearchResult{
			Text:    hit.GetPayload()["content"].GetStringValue(),
			Ordinal: int(hit.GetPayload()["ordinal"].GetIntegerValue()),
			Score:   hit.GetScore(),
		})
	}
	vectorDB.SortBestFirst(results)
	return results
}

func (s *Store) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	current, err := s.currentCollection(ctx, topic)
	if err != nil {
		return err
	}
	if current == "" {
		// first write for this topic is a full replace
		return s.ReplaceTopic(ctx, topic, chunks, vectors)
	}
	return s.upsert(ctx, current, topic, chunks, vectors)
}

func (s *Store) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	loggr := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("topic", topic)

	previous, err := s.currentCollection(ctx, topic)
	if err != nil {
		return err
	}
	staged := s.generationName(topic)
	if err := s.createCollection(ctx, staged); err != nil {
		return err
	}
	if err := s.upsert(ctx, staged, topic, chunks, vectors); err != nil {
		s.dropCollection(staged)
		return err
	}

	ops := []*qdrant.AliasOperations{}
	if previous != "" {
		ops = append(ops, qdrant.NewAliasDelete(s.aliasName(topic)))
	}
	ops = append(ops, qdrant.NewAliasCreate(s.aliasName(topic), staged))
	if err := s.client.UpdateAliases(ctx, ops); err != nil {
		s.dropCollection(staged)
		return ragErrors.FromProvider("upsert", fmt.Errorf("qdrant alias swap failed: %w", err))
	}
	loggr.Info("Topic replaced", "collection", staged, "chunks", len(chunks))

	if previous != "" {
		s.dropCollection(previous)
	}
	return nil
}

// currentCollection returns the physical collection behind the topic alias,
// or "" when the topic was never ingested.
func (s *Store) currentCollection(ctx context.Context, topic string) (string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return "", ragErrors.FromProvider("upsert", err)
	}
	alias := s.aliasName(topic)
	for _, a := range aliases {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (s *Store) createCollection(ctx context.Context, name string) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ragErrors.FromProvider("upsert", fmt.Errorf("qdrant create collection %s: %w", name, err))
	}
	return nil
}

// dropCollection is best effort, a leftover generation is only wasted space.
func (s *Store) dropCollection(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		s.logger.Warn("could not drop collection", "collection", name, "error", err)
	}
}

func (s *Store) upsert(ctx context.Context, collection, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         toPoints(topic, chunks[start:end], vectors[start:end]),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return ragErrors.FromProvider("upsert", fmt.Errorf("qdrant upsert failed: %w", err))
		}
	}
	return nil
}

func toPoints(topic string, chunks []commonModels.DocChunk, vectors [][]float32) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(topic, chunk.Ordinal)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content": chunk.Text,
				"ordinal": chunk.Ordinal,
				"topic":   topic,
			}),
		}
	}
	return points
}

func pointID(topic string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(topic+"/"+strconv.Itoa(ordinal))).String()
}
