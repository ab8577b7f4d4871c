package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/sikoma-be/metrics"
	"github.com/tieubaoca/sikoma-be/middleware"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Upload    *UploadHandler
	Search    *SearchHandler
	Documents DocumentHandler
	Health    *HealthHandler
	Progress  http.HandlerFunc
	Metrics   *metrics.Metrics

	JWTSecret      string
	CookieName     string
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	corsHandler := NewCorsHandler(cfg.AllowedOrigins)

	// Apply global middleware
	router.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestLogger(cfg.Logger),
		cfg.Metrics.GinMiddleware(),
		corsHandler.CorsMiddleware,
	)

	if cfg.Health != nil {
		router.GET("/health", cfg.Health.HandleHealth)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.ExporterHandler()))
	}

	// Protected routes
	api := router.Group("/")
	api.Use(middleware.CookieAuth(cfg.JWTSecret, cfg.CookieName))
	{
		api.POST("/upload", cfg.Upload.HandleUpload)
		api.POST("/summarize-preview", cfg.Upload.HandleSummarizePreview)

		api.POST("/search", cfg.Search.HandleSearch)
		api.POST("/search/voice", cfg.Search.HandleVoiceSearch)

		api.GET("/docs", cfg.Documents.HandleListDocuments)
		api.GET("/docs/:id", cfg.Documents.HandleGetDocument)
		api.DELETE("/docs/:id", cfg.Documents.HandleDeleteDocument)
		api.PATCH("/docs/:id/status", cfg.Documents.HandleUpdateStatus)
		api.POST("/docs/:id/summary", cfg.Documents.HandleRegenerateSummary)

		api.GET("/files/:id", cfg.Documents.HandleServeFile)

		if cfg.Progress != nil {
			api.GET("/ws/progress", gin.WrapF(cfg.Progress))
		}
	}

	return router
}
