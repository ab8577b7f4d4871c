package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/middleware"
	"github.com/tieubaoca/sikoma-be/service"
	"github.com/tieubaoca/sikoma-be/types"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

type DocumentHandler interface {
	HandleListDocuments(c *gin.Context)
	HandleGetDocument(c *gin.Context)
	HandleDeleteDocument(c *gin.Context)
	HandleUpdateStatus(c *gin.Context)
	HandleRegenerateSummary(c *gin.Context)
	HandleServeFile(c *gin.Context)
}

type documentHandler struct {
	documentService service.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService service.DocumentService, logger *zap.Logger) DocumentHandler {
	return &documentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// HandleListDocuments serves GET /docs?organizationId=&status=&q=&page=&limit=
func (h *documentHandler) HandleListDocuments(c *gin.Context) {
	var req types.PaginateDocumentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "page and limit must be integers")
		return
	}
	filter := types.DocumentFilter{
		OrganizationID: organizationScope(c, c.Query("organizationId")),
		Status:         c.Query("status"),
		Query:          c.Query("q"),
	}
	res, err := h.documentService.ListDocuments(c.Request.Context(), filter, req.Page, req.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *documentHandler) HandleGetDocument(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *documentHandler) HandleDeleteDocument(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	if err := h.documentService.DeleteDocument(c.Request.Context(), doc.ID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, types.OkResponse{Ok: true})
}

func (h *documentHandler) HandleUpdateStatus(c *gin.Context) {
	var req types.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	updated, err := h.documentService.UpdateStatus(c.Request.Context(), doc.ID, req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *documentHandler) HandleRegenerateSummary(c *gin.Context) {
	doc, ok := h.loadDocument(c)
	if !ok {
		return
	}
	updated, err := h.documentService.RegenerateSummary(c.Request.Context(), doc.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleServeFile streams an attachment. ?download=1 asks the browser to save it.
func (h *documentHandler) HandleServeFile(c *gin.Context) {
	rc, info, err := h.documentService.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer rc.Close()

	if claims, ok := middleware.ClaimsFromContext(c); ok && claims.OrganizationID != "" {
		if !h.blobVisible(c, info, claims.OrganizationID) {
			writeError(c, h.logger, types.ErrNotFound)
			return
		}
	}

	download, _ := strconv.ParseBool(c.DefaultQuery("download", "0"))
	contentType := info.ContentType
	if contentType == "" {
		contentType = utils.MimeOctet
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, map[string]string{
		"Content-Disposition":    utils.ContentDisposition(info.Filename, download),
		"X-Content-Type-Options": "nosniff",
	})
}

// loadDocument fetches the :id document and hides documents of other
// organizations behind a 404.
func (h *documentHandler) loadDocument(c *gin.Context) (*types.Document, bool) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return nil, false
	}
	if claims, ok := middleware.ClaimsFromContext(c); ok && claims.OrganizationID != "" && doc.OrganizationID != claims.OrganizationID {
		writeError(c, h.logger, types.ErrNotFound)
		return nil, false
	}
	return doc, true
}

// blobVisible reports whether the blob belongs to a document of organizationID.
// Blobs without an owner are never shown to a scoped session.
func (h *documentHandler) blobVisible(c *gin.Context, info *types.BlobInfo, organizationID string) bool {
	if info.DocumentID == "" {
		return false
	}
	doc, err := h.documentService.GetDocument(c.Request.Context(), info.DocumentID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			h.logger.Warn("Failed to load blob owner", zap.String("fileId", info.ID), zap.Error(err))
		}
		return false
	}
	return doc.OrganizationID == organizationID
}
