// Package weaviateDB is the alternative remote index.
//
// Each topic is one class <Prefix><Topic> with vectorizer "none". Objects
// carry the generation of the ingestion run that wrote them. ReplaceTopic
// writes a new generation and deletes every other generation only after the
// write succeeded; a failed write deletes its own partial generation. Queries
// issued while the swap is in flight may see both generations.
//
// UpsertBatch deletes the objects holding the incoming ordinals and writes
// the new ones, so it replaces by ordinal but is not atomic.
package weaviateDB

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/internal/rag/vectorDB"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	contentProp    = "content"
	ordinalProp    = "ordinal"
	generationProp = "generation"
	batchSize      = 100
)

var (
	once     sync.Once
	instance *Store
	initErr  error
)

type Options struct {
	Host        string
	Scheme      string
	APIKey      string
	ClassPrefix string
	Dimension   int
	HTTPClient  *http.Client
}

type Store struct {
	client    *weaviate.Client
	prefix    string
	dimension int
	logger    *logger_i.Logger
}

func GetWeaviateStore(ctx context.Context, opts Options) (*Store, error) {
	once.Do(func() {
		instance, initErr = New(ctx, opts)
	})
	return instance, initErr
}

func New(ctx context.Context, opts Options) (*Store, error) {
	cfg := weaviate.Config{
		Host:             opts.Host,
		Scheme:           opts.Scheme,
		ConnectionClient: opts.HTTPClient,
	}
	if opts.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: opts.APIKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, ragErrors.New(ragErrors.Configuration, "weaviate", fmt.Errorf("could not instantiate: %w", err))
	}
	s := &Store{
		client:    client,
		prefix:    opts.ClassPrefix,
		dimension: opts.Dimension,
		logger:    logger_i.NewLogger("Weaviate"),
	}
	if err := s.checkDimension(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("Weaviate index ready", "host", opts.Host, "prefix", opts.ClassPrefix)
	return s, nil
}

// Close is a no-op, the REST client holds no connections of its own.
func (s *Store) Close() error {
	return nil
}

// className turns "fun-facts" into "<Prefix>FunFacts".
func (s *Store) className(topic string) string {
	return className(s.prefix, topic)
}

func className(prefix string, topic string) string {
	var b strings.Builder
	b.WriteString(prefix)
	upper := true
	for _, r := range topic {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

var classNamePattern = regexp.MustCompile(`^[A-Z][_0-9A-Za-z]*$`)

// CheckTopics rejects topics whose class name is not a valid Weaviate class
// or is shared with another topic, since such topics would share vectors.
func CheckTopics(prefix string, topics []string) error {
	owners := make(map[string]string, len(topics))
	for _, topic := range topics {
		name := className(prefix, topic)
		if !classNamePattern.MatchString(name) {
			return ragErrors.Newf(ragErrors.Configuration, "vector_store", "topic %q maps to invalid weaviate class %q", topic, name)
		}
		if other, dup := owners[name]; dup {
			return ragErrors.Newf(ragErrors.Configuration, "vector_store", "topics %q and %q both map to weaviate class %q", other, topic, name)
		}
		owners[name] = topic
	}
	return nil
}

func dimensionDescription(dim int) string {
	return "dimension=" + strconv.Itoa(dim)
}

// checkDimension reads the size each existing topic class was created with.
func (s *Store) checkDimension(ctx context.Context) error {
	dump, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return classify("weaviate", err)
	}
	want := dimensionDescription(s.dimension)
	for _, class := range dump.Classes {
		if !strings.HasPrefix(class.Class, s.prefix) || !strings.HasPrefix(class.Description, "dimension=") {
			continue
		}
		if class.Description != want {
			return ragErrors.Newf(ragErrors.Configuration, "weaviate",
				"class %s was created with %s, configured %d", class.Class, class.Description, s.dimension)
		}
	}
	return nil
}

func (s *Store) ensureClass(ctx context.Context, class string) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return classify("upsert", err)
	}
	if exists {
		return nil
	}
	err = s.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:       class,
		Description: dimensionDescription(s.dimension),
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: contentProp, DataType: []string{"text"}},
			{Name: ordinalProp, DataType: []string{"int"}},
			{Name: generationProp, DataType: []string{"int"}},
		},
	}).Do(ctx)
	if err != nil {
		return classify("upsert", fmt.Errorf("weaviate create class %s: %w", class, err))
	}
	s.logger.Info("Created class", "class", class)
	return nil
}

func (s *Store) Search(ctx context.Context, topic string, vector []float32, k int) ([]commonModels.SearchResult, error) {
	if err := vectorDB.CheckQuery(vector, k, s.dimension); err != nil {
		return nil, err
	}
	loggr := s.logger.WithTrace(ctx, config.TRACE_ID_KEY)
	class := s.className(topic)
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return nil, classify("vector_search", err)
	}
	if !exists {
		return []commonModels.SearchResult{}, nil
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	res, err := s.client.GraphQL().Get().
		WithClassName(class).
		WithFields(
			graphql.Field{Name: contentProp},
			graphql.Field{Name: ordinalProp},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		loggr.Error("Error querying Weaviate", "topic", topic, "error", err)
		return nil, classify("vector_search", err)
	}
	if len(res.Errors) > 0 {
		return nil, ragErrors.Newf(ragErrors.ProviderUnavailable, "vector_search", "weaviate: %s", res.Errors[0].Message)
	}
	results, err := parseGet(res.Data, class)
	if err != nil {
		return nil, ragErrors.New(ragErrors.ProviderUnavailable, "vector_search", err)
	}
	loggr.Debug("Weaviate matches", "topic", topic, "count", len(results))
	return results, nil
}

// parseGet reads {"Get": {"<Class>": [{content, ordinal, _additional{distance}}]}}.
func parseGet(data map[string]models.JSONObject, class string) ([]commonModels.SearchResult, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, errors.New("weaviate: response has no Get section")
	}
	raw, _ := get[class].([]interface{})
	results := make([]commonModels.SearchResult, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("weaviate: unexpected object %T", item)
		}
		text, _ := obj[contentProp].(string)
		ordinal, _ := obj[ordinalProp].(float64)
		var distance float64
		if extra, ok := obj["_additional"].(map[string]interface{}); ok {
			distance, _ = extra["distance"].(float64)
		}
		results = append(results, commonModels.SearchResult{
			Text:    text,
			Ordinal: int(ordinal),
			Score:   float32(1 - distance),
		})
	}
	vectorDB.SortBestFirst(results)
	return results, nil
}

func (s *Store) UpsertBatch(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	class := s.className(topic)
	if err := s.ensureClass(ctx, class); err != nil {
		return err
	}
	operands := make([]*filters.WhereBuilder, len(chunks))
	for i, c := range chunks {
		operands[i] = filters.Where().
			WithPath([]string{ordinalProp}).
			WithOperator(filters.Equal).
			WithValueInt(int64(c.Ordinal))
	}
	if len(operands) > 0 {
		if err := s.deleteWhere(ctx, class, filters.Where().WithOperator(filters.Or).WithOperands(operands)); err != nil {
			return err
		}
	}
	return s.write(ctx, class, topic, time.Now().UnixMilli(), chunks, vectors)
}

func (s *Store) ReplaceTopic(ctx context.Context, topic string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if err := vectorDB.CheckBatch(chunks, vectors, s.dimension); err != nil {
		return err
	}
	loggr := s.logger.WithTrace(ctx, config.TRACE_ID_KEY).With("topic", topic)
	class := s.className(topic)
	if err := s.ensureClass(ctx, class); err != nil {
		return err
	}

	generation := time.Now().UnixMilli()
	if err := s.write(ctx, class, topic, generation, chunks, vectors); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if derr := s.deleteWhere(cleanupCtx, class, generationIs(filters.Equal, generation)); derr != nil {
			loggr.Warn("could not remove partial generation", "generation", generation, "error", derr)
		}
		return err
	}
	if err := s.deleteWhere(ctx, class, generationIs(filters.NotEqual, generation)); err != nil {
		return err
	}
	loggr.Info("Topic replaced", "class", class, "generation", generation, "chunks", len(chunks))
	return nil
}

func generationIs(op filters.WhereOperator, generation int64) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{generationProp}).
		WithOperator(op).
		WithValueInt(generation)
}

func (s *Store) write(ctx context.Context, class, topic string, generation int64, chunks []commonModels.DocChunk, vectors [][]float32) error {
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		objects := toObjects(class, topic, generation, chunks[start:end], vectors[start:end])
		res, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return classify("upsert", fmt.Errorf("weaviate batch failed: %w", err))
		}
		for _, r := range res {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return ragErrors.Newf(ragErrors.ProviderUnavailable, "upsert", "weaviate object rejected: %s", r.Result.Errors.Error[0].Message)
			}
		}
	}
	return nil
}

func toObjects(class, topic string, generation int64, chunks []commonModels.DocChunk, vectors [][]float32) []*models.Object {
	objects := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(topic+"/"+strconv.FormatInt(generation, 10)+"/"+strconv.Itoa(c.Ordinal)))
		objects[i] = &models.Object{
			Class: class,
			ID:    strfmt.UUID(id.String()),
			Properties: map[string]interface{}{
				contentProp:    c.Text,
				ordinalProp:    c.Ordinal,
				generationProp: generation,
			},
			Vector: vectors[i],
		}
	}
	return objects
}

func (s *Store) deleteWhere(ctx context.Context, class string, where *filters.WhereBuilder) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(class).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return classify("upsert", fmt.Errorf("weaviate delete failed: %w", err))
	}
	return nil
}

func classify(step string, err error) error {
	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) && clientErr.StatusCode > 0 {
		return ragErrors.FromStatusCode(step, clientErr.StatusCode, err)
	}
	return ragErrors.FromProvider(step, err)
}
