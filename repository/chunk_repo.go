package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tieubaoca/sikoma-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const CHUNK_COLLECTION = "chunks"

type chunkRepo struct {
	collection *mongo.Collection
	indexName  string
}

// NewChunkRepo returns a ChunkRepo backed by a Mongo collection and an Atlas
// vector search index named indexName over the "embedding" path.
func NewChunkRepo(db *mongo.Database, indexName string) ChunkRepo {
	return &chunkRepo{
		collection: db.Collection(CHUNK_COLLECTION),
		indexName:  indexName,
	}
}

// EnsureChunkIndexes creates the document_id index and the vector search index.
func EnsureChunkIndexes(ctx context.Context, db *mongo.Database, indexName string, dimensions int) error {
	collection := db.Collection(CHUNK_COLLECTION)
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "page", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create chunk index: %w", err)
	}

	definition := bson.D{{Key: "fields", Value: bson.A{
		bson.D{
			{Key: "type", Value: "vector"},
			{Key: "path", Value: "embedding"},
			{Key: "numDimensions", Value: dimensions},
			{Key: "similarity", Value: "cosine"},
		},
		bson.D{
			{Key: "type", Value: "filter"},
			{Key: "path", Value: "organization_id"},
		},
	}}}
	_, err = collection.SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: definition,
		Options:    options.SearchIndexes().SetName(indexName).SetType("vectorSearch"),
	})
	if err != nil {
		return fmt.Errorf("create vector search index: %w", err)
	}
	return nil
}

func (r *chunkRepo) InsertChunk(ctx context.Context, chunk *types.Chunk) error {
	objId := bson.NewObjectID()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, bson.D{
		{Key: "_id", Value: objId},
		{Key: "document_id", Value: chunk.DocumentID},
		{Key: "organization_id", Value: chunk.OrganizationID},
		{Key: "page", Value: chunk.Page},
		{Key: "text", Value: chunk.Text},
		{Key: "embedding", Value: chunk.Embedding},
		{Key: "token_count", Value: chunk.TokenCount},
		{Key: "language", Value: chunk.Language},
		{Key: "created_at", Value: chunk.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	chunk.ID = objId.Hex()
	return nil
}

func (r *chunkRepo) DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *chunkRepo) CountChunksByDocument(ctx context.Context, documentID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"document_id": documentID})
}

type scoredChunkRecord struct {
	types.Chunk `bson:",inline"`
	Score       float64 `bson:"score"`
}

// SearchSimilar runs $vectorSearch. The returned score is Atlas' cosine
// vectorSearchScore, (1 + cos) / 2.
func (r *chunkRepo) SearchSimilar(ctx context.Context, query types.VectorQuery) ([]types.ScoredChunk, error) {
	vectorSearch := bson.D{
		{Key: "index", Value: r.indexName},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: query.Vector},
		{Key: "numCandidates", Value: query.NumCandidates},
		{Key: "limit", Value: query.Limit},
	}
	if query.OrganizationID != "" {
		vectorSearch = append(vectorSearch, bson.E{
			Key:   "filter",
			Value: bson.D{{Key: "organization_id", Value: query.OrganizationID}},
		})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: vectorSearch}},
		{{Key: "$project", Value: bson.D{
			{Key: "embedding", Value: 0},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
	if query.MinScore > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "score", Value: bson.D{{Key: "$gte", Value: query.MinScore}}},
		}}})
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer cursor.Close(ctx)

	var records []scoredChunkRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode vector search results: %w", err)
	}
	results := make([]types.ScoredChunk, 0, len(records))
	for _, rec := range records {
		results = append(results, types.ScoredChunk{Chunk: rec.Chunk, Score: rec.Score})
	}
	return results, nil
}
