package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error)
	SearchVoice(ctx context.Context, audio []byte, filename, mimeType string, req types.SearchRequest) (*types.SearchResponse, error)
}

type SearchHandler struct {
	search        Searcher
	maxAudioBytes int64
	logger        *zap.Logger
}

func NewSearchHandler(search Searcher, maxAudioBytes int64, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		search:        search,
		maxAudioBytes: maxAudioBytes,
		logger:        logger,
	}
}

// HandleSearch serves POST /search.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.OrganizationID = organizationScope(c, req.OrganizationID)

	res, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleVoiceSearch serves POST /search/voice with a multipart "audio" field.
func (h *SearchHandler) HandleVoiceSearch(c *gin.Context) {
	audio, header, err := readFormFile(c, "audio", h.maxAudioBytes)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	req := types.SearchRequest{
		OrganizationID: organizationScope(c, c.PostForm("organizationId")),
	}
	if v := c.PostForm("topK"); v != "" {
		topK, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "topK must be an integer")
			return
		}
		req.TopK = topK
	}
	if v := c.PostForm("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			badRequest(c, "threshold must be a number")
			return
		}
		req.Threshold = &threshold
	}
	if v := c.PostForm("withAnswer"); v != "" {
		req.WithAnswer, _ = strconv.ParseBool(v)
	}

	res, err := h.search.SearchVoice(c.Request.Context(), audio, header.Filename, header.Header.Get("Content-Type"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
