package repository

import (
	"context"
	"io"

	"github.com/tieubaoca/sikoma-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewDocumentID returns an id CreateDocument accepts, so blobs can be tagged
// with their owner before the document is written.
func NewDocumentID() string {
	return bson.NewObjectID().Hex()
}

// DocumentRepo persists document metadata. CreateDocument keeps a preset
// doc.ID (see NewDocumentID) and assigns a fresh one otherwise.
type DocumentRepo interface {
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	UpdateDocument(ctx context.Context, doc *types.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, filter types.DocumentFilter, page, limit int64) ([]*types.Document, int64, error)
}

// ChunkRepo persists embedded chunks and answers vector similarity queries.
type ChunkRepo interface {
	InsertChunk(ctx context.Context, chunk *types.Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) (int64, error)
	CountChunksByDocument(ctx context.Context, documentID string) (int64, error)
	SearchSimilar(ctx context.Context, query types.VectorQuery) ([]types.ScoredChunk, error)
}

// BlobRepo stores raw attachment bytes.
type BlobRepo interface {
	UploadBlob(ctx context.Context, documentID, filename, contentType string, r io.Reader) (string, error)
	OpenBlob(ctx context.Context, id string) (io.ReadCloser, *types.BlobInfo, error)
	DeleteBlob(ctx context.Context, id string) error
}
