package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/repository"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEmbedConcurrency = 4
	defaultRetryBase        = 500 * time.Millisecond
)

// TextExtractor turns file bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}

// Summarizer produces a short summary from a file or from extracted text.
type Summarizer interface {
	SummarizeFromFile(ctx context.Context, data []byte, filename, mimeType string) (string, error)
	SummarizeFromText(ctx context.Context, text string) (string, error)
}

type IngestConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	EmbedConcurrency int
	EmbedRetries     int
	RetryBase        time.Duration
	MaxUploadBytes   int64
}

// IngestService runs the upload pipeline: extract, summarize, store the
// blob and document, then chunk and embed.
type IngestService struct {
	docs       repository.DocumentRepo
	chunks     repository.ChunkRepo
	blobs      repository.BlobRepo
	extractor  TextExtractor
	summarizer Summarizer
	embedder   Embedder
	chunker    *Chunker
	progress   ProgressPublisher
	cfg        IngestConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewIngestService(
	docs repository.DocumentRepo,
	chunks repository.ChunkRepo,
	blobs repository.BlobRepo,
	extractor TextExtractor,
	summarizer Summarizer,
	embedder Embedder,
	progress ProgressPublisher,
	cfg IngestConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IngestService {
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = defaultEmbedConcurrency
	}
	if cfg.EmbedRetries < 0 {
		cfg.EmbedRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if progress == nil {
		progress = noopPublisher{}
	}
	return &IngestService{
		docs:       docs,
		chunks:     chunks,
		blobs:      blobs,
		extractor:  extractor,
		summarizer: summarizer,
		embedder:   embedder,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		progress:   progress,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Ingest stores one uploaded file as a searchable document. Extraction and
// validation failures leave nothing behind. When every chunk fails to embed
// the blob and document are removed again and types.ErrEmbedding is returned;
// when only some fail the document is kept as partially indexed.
func (s *IngestService) Ingest(ctx context.Context, req types.IngestRequest) (*types.IngestResult, error) {
	if req.UploadID == "" {
		req.UploadID = uuid.NewString()
	}
	log := s.logger.With(zap.String("uploadId", req.UploadID), zap.String("filename", req.Filename))

	mimeType, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	s.publish(req.UploadID, types.PROGRESS_STAGE_EXTRACT, "")
	started := time.Now()
	text, err := s.extractor.Extract(ctx, req.Data, req.Filename, mimeType)
	s.metrics.ObserveStage(types.PROGRESS_STAGE_EXTRACT, started)
	if err != nil {
		log.Warn("Extraction failed", zap.Error(err))
		s.fail(req.UploadID, "extraction failed")
		return nil, err
	}

	s.publish(req.UploadID, types.PROGRESS_STAGE_SUMMARIZE, "")
	started = time.Now()
	summary, summarySource := s.summarize(ctx, req.Data, req.Filename, mimeType, text)
	s.metrics.ObserveStage(types.PROGRESS_STAGE_SUMMARIZE, started)

	meta := BuildAutoMeta(text)

	// From here on records are written; a client that goes away must not
	// leave them half indexed.
	ctx = context.WithoutCancel(ctx)

	docID := repository.NewDocumentID()
	s.publish(req.UploadID, types.PROGRESS_STAGE_STORE, "")
	fileID, err := s.blobs.UploadBlob(ctx, docID, req.Filename, mimeType, bytes.NewReader(req.Data))
	if err != nil {
		s.fail(req.UploadID, "storing file failed")
		return nil, fmt.Errorf("store blob: %w", err)
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = meta.Title
	}
	if subject == "" {
		subject = req.Filename
	}
	now := time.Now().UTC()
	doc := &types.Document{
		ID:             docID,
		OrganizationID: req.OrganizationID,
		Subject:        subject,
		Author:         req.Author,
		Status:         req.Status,
		DueDate:        req.Date,
		Attachments: []types.Attachment{{
			FileID:   fileID,
			Filename: req.Filename,
			MimeType: mimeType,
			Size:     int64(len(req.Data)),
		}},
		Summary:       summary,
		SummarySource: summarySource,
		IndexStatus:   types.INDEX_STATUS_INDEXING,
		Language:      meta.Language,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		s.deleteBlob(ctx, fileID, log)
		s.fail(req.UploadID, "storing document failed")
		return nil, fmt.Errorf("create document: %w", err)
	}
	log = log.With(zap.String("docId", doc.ID))

	pieces := s.chunker.Split(text)
	started = time.Now()
	stored, failed, embedErr := s.embedChunks(ctx, doc, pieces, req.UploadID)
	s.metrics.ObserveStage(types.PROGRESS_STAGE_EMBED, started)

	if stored == 0 && len(pieces) > 0 {
		log.Error("Every chunk failed to embed, rolling back", zap.Int("chunks", len(pieces)), zap.Error(embedErr))
		s.rollback(ctx, doc, log)
		s.metrics.IngestFinished(types.INDEX_STATUS_INGESTION_FAILED)
		s.fail(req.UploadID, "embedding failed")
		if errors.Is(embedErr, types.ErrEmbedding) {
			return nil, embedErr
		}
		return nil, fmt.Errorf("%w: %w", types.ErrEmbedding, embedErr)
	}

	doc.ChunkCount = stored
	doc.FailedChunks = failed
	doc.IndexStatus = types.INDEX_STATUS_INDEXED
	if len(failed) > 0 {
		doc.IndexStatus = types.INDEX_STATUS_PARTIALLY_INDEXED
		log.Warn("Document partially indexed", zap.Ints("failedChunks", failed), zap.Error(embedErr))
	}
	doc.UpdatedAt = time.Now().UTC()
	if err := s.docs.UpdateDocument(ctx, doc); err != nil {
		s.fail(req.UploadID, "updating document failed")
		return nil, fmt.Errorf("update document index status: %w", err)
	}
	s.metrics.IngestFinished(doc.IndexStatus)

	s.progress.Publish(types.ProgressEvent{
		UploadID: req.UploadID,
		Stage:    types.PROGRESS_STAGE_DONE,
		Done:     stored,
		Total:    len(pieces),
		DocID:    doc.ID,
	})
	log.Info("Document ingested",
		zap.Int("chunks", stored),
		zap.Int("failed", len(failed)),
		zap.String("summarySource", summarySource),
	)

	return &types.IngestResult{
		Ok:            true,
		DocID:         doc.ID,
		Summary:       summary,
		SummarySource: summarySource,
		AutoMeta:      meta,
		FilePreview: types.FilePreview{
			FileID:   fileID,
			Filename: req.Filename,
			MimeType: mimeType,
			Size:     int64(len(req.Data)),
			URL:      "/files/" + fileID,
		},
		ChunkCount:   stored,
		FailedChunks: failed,
		IndexStatus:  doc.IndexStatus,
		UploadID:     req.UploadID,
	}, nil
}

// Preview summarizes a file without storing anything.
func (s *IngestService) Preview(ctx context.Context, data []byte, filename, mimeType string) (*types.PreviewResponse, error) {
	if len(data) == 0 {
		return nil, types.NewValidationError("file", "file is required")
	}
	filename = utils.SanitizeFilename(filename)
	mimeType = s.resolveMimeType(data, filename, mimeType)
	if !utils.IsSupportedDocument(mimeType) {
		return nil, types.NewValidationError("file", "unsupported file type %s", mimeType)
	}

	summary, err := s.summarizer.SummarizeFromFile(ctx, data, filename, mimeType)
	if err == nil {
		return &types.PreviewResponse{Ok: true, Summary: summary, Source: types.SUMMARY_SOURCE_FILE}, nil
	}
	s.logger.Debug("Preview summary from file failed", zap.Error(err))
	text, err := s.extractor.Extract(ctx, data, filename, mimeType)
	if err == nil {
		summary, err = s.summarizer.SummarizeFromText(ctx, text)
		if err == nil {
			return &types.PreviewResponse{Ok: true, Summary: summary, Source: types.SUMMARY_SOURCE_TEXT}, nil
		}
	}
	s.logger.Debug("Preview summary from text failed", zap.Error(err))
	return &types.PreviewResponse{Ok: true, Summary: "", Source: types.SUMMARY_SOURCE_NONE}, nil
}

func (s *IngestService) validate(req *types.IngestRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", types.NewValidationError("file", "file is required")
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return "", types.NewValidationError("file", "file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	req.Filename = utils.SanitizeFilename(req.Filename)
	mimeType := s.resolveMimeType(req.Data, req.Filename, req.MimeType)
	if !utils.IsSupportedDocument(mimeType) {
		return "", types.NewValidationError("file", "unsupported file type %s", mimeType)
	}
	req.Date = strings.TrimSpace(req.Date)
	if req.Date != "" {
		if _, err := time.Parse(types.DueDateLayout, req.Date); err != nil {
			return "", types.NewValidationError("date", "date must be formatted as YYYY-MM-DD")
		}
	}
	if req.Status == "" {
		req.Status = types.DOCUMENT_STATUS_UPLOADED
	}
	if !types.IsValidDocumentStatus(req.Status) {
		return "", types.NewValidationError("status", "unknown status %q", req.Status)
	}
	return mimeType, nil
}

// resolveMimeType prefers the sniffed type; the declared one only settles
// what sniffing cannot tell apart.
func (s *IngestService) resolveMimeType(data []byte, filename, declared string) string {
	detected := utils.DetectMimeType(data, filename)
	declared = utils.NormalizeMimeType(declared)
	if detected == utils.MimeOctet && declared != "" {
		return declared
	}
	if detected == utils.MimeText && declared == utils.MimeMarkdown {
		return declared
	}
	return detected
}

func (s *IngestService) summarize(ctx context.Context, data []byte, filename, mimeType, text string) (string, string) {
	summary, err := s.summarizer.SummarizeFromFile(ctx, data, filename, mimeType)
	if err == nil {
		return summary, types.SUMMARY_SOURCE_FILE
	}
	s.logger.Debug("Summary from file failed, trying extracted text", zap.Error(err))
	summary, err = s.summarizer.SummarizeFromText(ctx, text)
	if err == nil {
		return summary, types.SUMMARY_SOURCE_TEXT
	}
	s.logger.Warn("Summarization failed, continuing without summary", zap.Error(err))
	return "", types.SUMMARY_SOURCE_NONE
}

// embedChunks embeds and stores every piece with bounded concurrency. It
// returns how many chunks were stored, the sorted 1-based pages that failed
// and the joined failure causes.
func (s *IngestService) embedChunks(ctx context.Context, doc *types.Document, pieces []string, uploadID string) (int, []int, error) {
	var (
		mu     sync.Mutex
		stored int
		failed = make([]int, 0)
		errs   []error
	)
	total := len(pieces)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i, piece := range pieces {
		page := i + 1
		g.Go(func() error {
			err := s.embedChunk(gctx, doc, page, piece)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, page)
				errs = append(errs, fmt.Errorf("chunk %d: %w", page, err))
				s.metrics.ChunkFailed()
			} else {
				stored++
				s.metrics.ChunkEmbedded()
			}
			s.progress.Publish(types.ProgressEvent{
				UploadID: uploadID,
				Stage:    types.PROGRESS_STAGE_EMBED,
				Done:     stored + len(failed),
				Total:    total,
				DocID:    doc.ID,
			})
			// a failed chunk must not cancel its siblings
			return nil
		})
	}
	_ = g.Wait()
	sort.Ints(failed)
	return stored, failed, errors.Join(errs...)
}

func (s *IngestService) embedChunk(ctx context.Context, doc *types.Document, page int, text string) error {
	var vector []float32
	backoff := retry.WithMaxRetries(uint64(s.cfg.EmbedRetries), retry.NewExponential(s.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Debug("Embedding attempt failed", zap.String("docId", doc.ID), zap.Int("page", page), zap.Error(err))
			return retry.RetryableError(err)
		}
		vector = v
		return nil
	})
	if err != nil {
		return err
	}
	if len(vector) != s.embedder.Dimensions() {
		return fmt.Errorf("%w: got %d dimensions, want %d", types.ErrEmbedding, len(vector), s.embedder.Dimensions())
	}
	return s.chunks.InsertChunk(ctx, &types.Chunk{
		DocumentID:     doc.ID,
		OrganizationID: doc.OrganizationID,
		Page:           page,
		Text:           text,
		Embedding:      vector,
		TokenCount:     EstimateTokens(text),
		Language:       doc.Language,
		CreatedAt:      time.Now().UTC(),
	})
}

// rollback removes everything an aborted ingestion wrote. It runs even when
// ctx is already cancelled.
func (s *IngestService) rollback(ctx context.Context, doc *types.Document, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.chunks.DeleteChunksByDocument(ctx, doc.ID); err != nil {
		log.Error("Rollback: failed to delete chunks", zap.Error(err))
	}
	if err := s.docs.DeleteDocument(ctx, doc.ID); err != nil {
		log.Error("Rollback: failed to delete document", zap.Error(err))
	}
	for _, att := range doc.Attachments {
		s.deleteBlob(ctx, att.FileID, log)
	}
}

func (s *IngestService) deleteBlob(ctx context.Context, fileID string, log *zap.Logger) {
	if err := s.blobs.DeleteBlob(context.WithoutCancel(ctx), fileID); err != nil {
		log.Error("Failed to delete blob", zap.String("fileId", fileID), zap.Error(err))
	}
}

func (s *IngestService) publish(uploadID, stage, message string) {
	s.progress.Publish(types.ProgressEvent{UploadID: uploadID, Stage: stage, Message: message})
}

func (s *IngestService) fail(uploadID, message string) {
	s.publish(uploadID, types.PROGRESS_STAGE_FAILED, message)
}
