package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/middleware"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

type Ingester interface {
	Ingest(ctx context.Context, req types.IngestRequest) (*types.IngestResult, error)
	Preview(ctx context.Context, data []byte, filename, mimeType string) (*types.PreviewResponse, error)
}

type UploadHandler struct {
	ingest         Ingester
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewUploadHandler(ingest Ingester, maxUploadBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		ingest:         ingest,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HandleUpload serves POST /upload.
func (h *UploadHandler) HandleUpload(c *gin.Context) {
	data, header, err := readFormFile(c, "file", h.maxUploadBytes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	author := c.PostForm("author")
	if claims, ok := middleware.ClaimsFromContext(c); ok && author == "" {
		author = claims.FullName
		if author == "" {
			author = claims.Username
		}
	}
	req := types.IngestRequest{
		Data:           data,
		Filename:       header.Filename,
		MimeType:       header.Header.Get("Content-Type"),
		Subject:        c.PostForm("subject"),
		Author:         author,
		Date:           c.PostForm("date"),
		Status:         c.PostForm("status"),
		OrganizationID: organizationScope(c, c.PostForm("organizationId")),
		UploadID:       c.PostForm("uploadId"),
	}

	res, err := h.ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleSummarizePreview serves POST /summarize-preview.
func (h *UploadHandler) HandleSummarizePreview(c *gin.Context) {
	data, header, err := readFormFile(c, "file", h.maxUploadBytes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	res, err := h.ingest.Preview(c.Request.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
