package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tieubaoca/sikoma-be/config"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateStore keeps chunk vectors in a Weaviate class with a bring-your-own
// vector configuration. Certainty equals (1 + cos) / 2, the same scale as the
// Mongo vectorSearchScore, so thresholds carry over between backends.
type WeaviateStore struct {
	client    *weaviate.Client
	className string
}

func chunkClassObject(className string) *models.Class {
	return &models.Class{
		Class: className,
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "organizationId", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "tokenCount", DataType: []string{"int"}},
			{Name: "language", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
}

func NewWeaviateStore(ctx context.Context, cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.HasPrefix(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	store := &WeaviateStore{client: client, className: cfg.Class}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the chunk class when it does not exist yet.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == s.className {
			return nil
		}
	}
	if err := s.client.Schema().ClassCreator().WithClass(chunkClassObject(s.className)).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.className, err)
	}
	return nil
}

// ReInit drops and recreates the chunk class.
func (s *WeaviateStore) ReInit(ctx context.Context) error {
	if err := s.client.Schema().ClassDeleter().WithClassName(s.className).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete %s class: %w", s.className, err)
	}
	if err := s.client.Schema().ClassCreator().WithClass(chunkClassObject(s.className)).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", s.className, err)
	}
	return nil
}

// Ping reports whether the Weaviate node is live.
func (s *WeaviateStore) Ping(ctx context.Context) error {
	live, err := s.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate live check: %w", err)
	}
	if !live {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

func (s *WeaviateStore) InsertChunk(ctx context.Context, chunk *types.Chunk) error {
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}
	properties := map[string]interface{}{
		"text":           chunk.Text,
		"documentId":     chunk.DocumentID,
		"organizationId": chunk.OrganizationID,
		"page":           chunk.Page,
		"tokenCount":     chunk.TokenCount,
		"language":       chunk.Language,
		"createdAt":      chunk.CreatedAt.Unix(),
	}
	result, err := s.client.Data().Creator().
		WithClassName(s.className).
		WithProperties(properties).
		WithVector(chunk.Embedding).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	chunk.ID = result.Object.ID.String()
	return nil
}

func (s *WeaviateStore) DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithWhere(documentFilter(documentID)).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	if res == nil || res.Results == nil {
		return 0, nil
	}
	return res.Results.Successful, nil
}

func (s *WeaviateStore) CountChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	meta := graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithWhere(documentFilter(documentID)).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("count chunks: %s", res.Errors[0].Message)
	}
	aggregate, _ := res.Data["Aggregate"].(map[string]interface{})
	groups, _ := aggregate[s.className].([]interface{})
	if len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]interface{})
	metaValues, _ := group["meta"].(map[string]interface{})
	count, _ := metaValues["count"].(float64)
	return int64(count), nil
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, query types.VectorQuery) ([]types.ScoredChunk, error) {
	fields := []graphql.Field{
		{Name: "text"},
		{Name: "documentId"},
		{Name: "organizationId"},
		{Name: "page"},
		{Name: "tokenCount"},
		{Name: "language"},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}, {Name: "id"}}},
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(query.Vector)
	if query.MinScore > 0 {
		nearVector = nearVector.WithCertainty(float32(query.MinScore))
	}
	getBuilder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(query.Limit)
	if query.OrganizationID != "" {
		getBuilder = getBuilder.WithWhere(filters.Where().
			WithPath([]string{"organizationId"}).
			WithOperator(filters.Equal).
			WithValueText(query.OrganizationID))
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector search: %s", result.Errors[0].Message)
	}

	get, _ := result.Data["Get"].(map[string]interface{})
	items, _ := get[s.className].([]interface{})
	out := make([]types.ScoredChunk, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := types.Chunk{
			Text:           stringProp(obj["text"]),
			DocumentID:     stringProp(obj["documentId"]),
			OrganizationID: stringProp(obj["organizationId"]),
			Page:           int(numberProp(obj["page"])),
			TokenCount:     int(numberProp(obj["tokenCount"])),
			Language:       stringProp(obj["language"]),
			CreatedAt:      time.Unix(int64(numberProp(obj["createdAt"])), 0).UTC(),
		}
		var score float64
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			chunk.ID = stringProp(additional["id"])
			score = numberProp(additional["certainty"])
		}
		out = append(out, types.ScoredChunk{Chunk: chunk, Score: score})
	}
	return out, nil
}

func documentFilter(documentID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueText(documentID)
}

// Helper functions
func stringProp(v interface{}) string {
	s, _ := v.(string)
	return s
}

func numberProp(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}
