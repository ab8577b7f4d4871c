package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/tieubaoca/sikoma-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DOCUMENT_COLLECTION = "documents"

type documentRepo struct {
	collection *mongo.Collection
}

func NewDocumentRepo(db *mongo.Database) DocumentRepo {
	return &documentRepo{
		collection: db.Collection(DOCUMENT_COLLECTION),
	}
}

// EnsureDocumentIndexes creates the secondary indexes used by listings.
func EnsureDocumentIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	_, err := db.Collection(DOCUMENT_COLLECTION).Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *documentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	objId := bson.NewObjectID()
	if doc.ID != "" {
		id, err := bson.ObjectIDFromHex(doc.ID)
		if err != nil {
			return fmt.Errorf("invalid document id %q: %w", doc.ID, err)
		}
		objId = id
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	fields := documentFields(doc)
	fields = append(bson.D{{Key: "_id", Value: objId}}, fields...)
	if _, err := r.collection.InsertOne(ctx, fields); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	doc.ID = objId.Hex()
	return nil
}

func (r *documentRepo) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	objId, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, types.ErrNotFound
	}
	doc := &types.Document{}
	if err := r.collection.FindOne(ctx, bson.M{"_id": objId}).Decode(doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) UpdateDocument(ctx context.Context, doc *types.Document) error {
	objId, err := bson.ObjectIDFromHex(doc.ID)
	if err != nil {
		return types.ErrNotFound
	}
	doc.UpdatedAt = time.Now().UTC()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objId}, bson.M{"$set": documentFields(doc)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *documentRepo) DeleteDocument(ctx context.Context, id string) error {
	objId, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return types.ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objId})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ListDocuments(ctx context.Context, filter types.DocumentFilter, page, limit int64) ([]*types.Document, int64, error) {
	query := bson.M{}
	if filter.OrganizationID != "" {
		query["organization_id"] = filter.OrganizationID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Query != "" {
		query["subject"] = bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	docs := make([]*types.Document, 0)
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		docs = append(docs, &doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// documentFields lists every mutable field; _id is never part of an update.
func documentFields(doc *types.Document) bson.D {
	return bson.D{
		{Key: "organization_id", Value: doc.OrganizationID},
		{Key: "subject", Value: doc.Subject},
		{Key: "author", Value: doc.Author},
		{Key: "status", Value: doc.Status},
		{Key: "due_date", Value: doc.DueDate},
		{Key: "attachments", Value: doc.Attachments},
		{Key: "summary", Value: doc.Summary},
		{Key: "summary_source", Value: doc.SummarySource},
		{Key: "index_status", Value: doc.IndexStatus},
		{Key: "chunk_count", Value: doc.ChunkCount},
		{Key: "failed_chunks", Value: doc.FailedChunks},
		{Key: "language", Value: doc.Language},
		{Key: "created_at", Value: doc.CreatedAt},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}
}
