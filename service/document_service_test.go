package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/sikoma-be/types"
)

func TestDocumentService_DeleteCascades(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	res := p.ingestText(t, "Cascade", wordText("w", 30))
	keep := p.ingestText(t, "Keep", wordText("k", 12))
	require.Equal(t, 2, p.store.BlobCount())

	require.NoError(t, p.documents.DeleteDocument(context.Background(), res.DocID))

	_, err := p.documents.GetDocument(context.Background(), res.DocID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	n, err := p.store.CountChunksByDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, p.store.BlobCount())
	_, _, err = p.documents.OpenFile(context.Background(), res.FilePreview.FileID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	n, err = p.store.CountChunksByDocument(context.Background(), keep.DocID)
	require.NoError(t, err)
	assert.EqualValues(t, keep.ChunkCount, n)

	resp, err := p.search.Search(context.Background(), types.SearchRequest{Query: wordText("w", 10), Threshold: float64Ptr(0)})
	require.NoError(t, err)
	for _, hit := range resp.Hits {
		assert.NotEqual(t, res.DocID, hit.DocumentID)
	}
}

func TestDocumentService_DeleteMissing(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	assert.ErrorIs(t, p.documents.DeleteDocument(context.Background(), "507f1f77bcf86cd799439011"), types.ErrNotFound)
}

func TestDocumentService_List(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ingestText(t, "Undangan Rapat", "isi undangan")
	p.ingestText(t, "Laporan Keuangan", "isi laporan")
	p.ingestText(t, "Undangan Pelatihan", "isi pelatihan")

	page, err := p.documents.ListDocuments(context.Background(), types.DocumentFilter{Query: "undangan"}, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 1, page.Page)
	assert.EqualValues(t, defaultPageLimit, page.Limit)

	page, err = p.documents.ListDocuments(context.Background(), types.DocumentFilter{}, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	_, err = p.documents.ListDocuments(context.Background(), types.DocumentFilter{Status: "archived"}, 1, 10)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDocumentService_UpdateStatus(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	res := p.ingestText(t, "Workflow", "isi surat")
	ctx := context.Background()

	_, err := p.documents.UpdateStatus(ctx, res.DocID, types.DOCUMENT_STATUS_APPROVED)
	assert.ErrorIs(t, err, types.ErrValidation)

	doc, err := p.documents.UpdateStatus(ctx, res.DocID, types.DOCUMENT_STATUS_REVIEW)
	require.NoError(t, err)
	assert.Equal(t, types.DOCUMENT_STATUS_REVIEW, doc.Status)

	doc, err = p.documents.UpdateStatus(ctx, res.DocID, types.DOCUMENT_STATUS_REJECTED)
	require.NoError(t, err)
	assert.Equal(t, types.DOCUMENT_STATUS_REJECTED, doc.Status)

	doc, err = p.documents.UpdateStatus(ctx, res.DocID, types.DOCUMENT_STATUS_REVIEW)
	require.NoError(t, err)
	assert.Equal(t, types.DOCUMENT_STATUS_REVIEW, doc.Status)

	_, err = p.documents.UpdateStatus(ctx, res.DocID, "archived")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = p.documents.UpdateStatus(ctx, "507f1f77bcf86cd799439011", types.DOCUMENT_STATUS_REVIEW)
	assert.ErrorIs(t, err, types.ErrNotFound)

	stored, err := p.store.GetDocument(ctx, res.DocID)
	require.NoError(t, err)
	assert.Equal(t, types.DOCUMENT_STATUS_REVIEW, stored.Status)
}

func TestDocumentService_RegenerateSummary(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", errors.New("down")
	}
	res := p.ingestText(t, "Regenerate", "isi surat penting")
	require.Equal(t, types.SUMMARY_SOURCE_NONE, res.SummarySource)

	p.ai.GenerateFunc = nil
	doc, err := p.documents.RegenerateSummary(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, types.SUMMARY_SOURCE_FILE, doc.SummarySource)
	assert.Equal(t, "isi surat penting", doc.Summary)

	stored, err := p.store.GetDocument(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, doc.Summary, stored.Summary)
}

func TestDocumentService_RegenerateSummaryFails(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	res := p.ingestText(t, "Regenerate", "isi surat penting")
	p.ai.GenerateFunc = func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", errors.New("down")
	}
	_, err := p.documents.RegenerateSummary(context.Background(), res.DocID)
	assert.ErrorIs(t, err, types.ErrSummarization)
}

func TestDocumentService_OpenFile(t *testing.T) {
	p := newTestPipeline(t, 10, 2)
	res := p.ingestText(t, "File", "isi berkas asli")

	rc, info, err := p.documents.OpenFile(context.Background(), res.FilePreview.FileID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "isi berkas asli", string(data))
	assert.Equal(t, "file.txt", info.Filename)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.EqualValues(t, len(data), info.Size)
}
