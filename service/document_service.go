package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type DocumentService interface {
	ListDocuments(ctx context.Context, filter types.DocumentFilter, page, limit int64) (*types.PaginateResponse, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) (*types.Document, error)
	RegenerateSummary(ctx context.Context, id string) (*types.Document, error)
	OpenFile(ctx context.Context, fileID string) (io.ReadCloser, *types.BlobInfo, error)
}

type documentService struct {
	docs       repository.DocumentRepo
	chunks     repository.ChunkRepo
	blobs      repository.BlobRepo
	extractor  TextExtractor
	summarizer Summarizer
	logger     *zap.Logger
}

func NewDocumentService(
	docs repository.DocumentRepo,
	chunks repository.ChunkRepo,
	blobs repository.BlobRepo,
	extractor TextExtractor,
	summarizer Summarizer,
	logger *zap.Logger,
) DocumentService {
	return &documentService{
		docs:       docs,
		chunks:     chunks,
		blobs:      blobs,
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger,
	}
}

func (s *documentService) ListDocuments(ctx context.Context, filter types.DocumentFilter, page, limit int64) (*types.PaginateResponse, error) {
	if filter.Status != "" && !types.IsValidDocumentStatus(filter.Status) {
		return nil, types.NewValidationError("status", "unknown status %q", filter.Status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	items, total, err := s.docs.ListDocuments(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*types.Document{}
	}
	return &types.PaginateResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// DeleteDocument removes the document's chunks, its blobs and then the
// document itself, so a failure part way leaves the document visible for
// a retry.
func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.chunks.DeleteChunksByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	for _, att := range doc.Attachments {
		if err := s.blobs.DeleteBlob(ctx, att.FileID); err != nil && !errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("delete blob %s: %w", att.FileID, err)
		}
	}
	if err := s.docs.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	s.logger.Info("Document deleted",
		zap.String("docId", doc.ID),
		zap.Int64("chunks", deleted),
		zap.Int("attachments", len(doc.Attachments)),
	)
	return nil
}

func (s *documentService) UpdateStatus(ctx context.Context, id, status string) (*types.Document, error) {
	if !types.IsValidDocumentStatus(status) {
		return nil, types.NewValidationError("status", "unknown status %q", status)
	}
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == status {
		return doc, nil
	}
	if !types.CanTransition(doc.Status, status) {
		return nil, types.NewValidationError("status", "cannot change status from %s to %s", doc.Status, status)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docs.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RegenerateSummary summarizes the first attachment again, from the file
// when the model can read it and from its extracted text otherwise.
func (s *documentService) RegenerateSummary(ctx context.Context, id string) (*types.Document, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(doc.Attachments) == 0 {
		return nil, types.NewValidationError("attachments", "document has no attachment to summarize")
	}
	att := doc.Attachments[0]
	rc, _, err := s.blobs.OpenBlob(ctx, att.FileID)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	summary, source := "", types.SUMMARY_SOURCE_NONE
	if out, err := s.summarizer.SummarizeFromFile(ctx, data, att.Filename, att.MimeType); err == nil {
		summary, source = out, types.SUMMARY_SOURCE_FILE
	} else if text, err := s.extractor.Extract(ctx, data, att.Filename, att.MimeType); err == nil {
		if out, err := s.summarizer.SummarizeFromText(ctx, text); err == nil {
			summary, source = out, types.SUMMARY_SOURCE_TEXT
		}
	}
	if source == types.SUMMARY_SOURCE_NONE {
		return nil, fmt.Errorf("%w: no strategy produced a summary", types.ErrSummarization)
	}

	doc.Summary = summary
	doc.SummarySource = source
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docs.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, *types.BlobInfo, error) {
	return s.blobs.OpenBlob(ctx, fileID)
}
