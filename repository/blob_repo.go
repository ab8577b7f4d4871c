package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tieubaoca/sikoma-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type blobRepo struct {
	bucket *mongo.GridFSBucket
}

// NewBlobRepo stores attachments in the GridFS bucket with the given name.
func NewBlobRepo(db *mongo.Database, bucketName string) BlobRepo {
	return &blobRepo{
		bucket: db.GridFSBucket(options.GridFSBucket().SetName(bucketName)),
	}
}

type blobMetadata struct {
	ContentType string `bson:"contentType"`
	DocumentID  string `bson:"documentId,omitempty"`
}

func (r *blobRepo) UploadBlob(ctx context.Context, documentID, filename, contentType string, src io.Reader) (string, error) {
	opts := options.GridFSUpload().SetMetadata(blobMetadata{ContentType: contentType, DocumentID: documentID})
	objId, err := r.bucket.UploadFromStream(ctx, filename, src, opts)
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	return objId.Hex(), nil
}

func (r *blobRepo) OpenBlob(ctx context.Context, id string) (io.ReadCloser, *types.BlobInfo, error) {
	objId, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil, types.ErrNotFound
	}
	stream, err := r.bucket.OpenDownloadStream(ctx, objId)
	if err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return nil, nil, types.ErrNotFound
		}
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	file := stream.GetFile()
	info := &types.BlobInfo{
		ID:         id,
		Filename:   file.Name,
		Size:       file.Length,
		UploadedAt: file.UploadDate,
	}
	var meta blobMetadata
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &meta); err == nil {
			info.ContentType = meta.ContentType
			info.DocumentID = meta.DocumentID
		}
	}
	if info.ContentType == "" {
		info.ContentType = "application/octet-stream"
	}
	return stream, info, nil
}

func (r *blobRepo) DeleteBlob(ctx context.Context, id string) error {
	objId, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return types.ErrNotFound
	}
	if err := r.bucket.Delete(ctx, objId); err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}
