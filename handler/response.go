package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/middleware"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

const (
	errValidation = "validation_error"
	errNotFound   = "not_found"
	errExtraction = "extraction_failed"
	errEmbedding  = "embedding_failed"
	errInternal   = "internal_error"
)

// writeError maps a service error onto its status code and body. Unknown
// errors become a bare 500 and are only logged.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var validation *types.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: errValidation, Message: validation.Error()})
	case errors.Is(err, types.ErrValidation):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: errValidation, Message: err.Error()})
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: errNotFound})
	case errors.Is(err, types.ErrExtraction):
		logger.Warn("Extraction failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, types.ErrorResponse{Error: errExtraction})
	case errors.Is(err, types.ErrEmbedding):
		logger.Error("Embedding failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: errEmbedding})
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: errInternal})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: errValidation, Message: message})
}

// organizationScope returns the organization a request acts for. A verified
// session pins it; otherwise the caller's own value is used.
func organizationScope(c *gin.Context, requested string) string {
	if claims, ok := middleware.ClaimsFromContext(c); ok && claims.OrganizationID != "" {
		return claims.OrganizationID
	}
	return strings.TrimSpace(requested)
}

// readFormFile reads a multipart file field of at most maxBytes.
func readFormFile(c *gin.Context, field string, maxBytes int64) ([]byte, *multipart.FileHeader, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, types.NewValidationError(field, "%s is required", field)
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, nil, types.NewValidationError(field, "%s exceeds %d bytes", field, maxBytes)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read form file: %w", err)
	}
	return data, header, nil
}
