package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"hydromet/internal/domain"
	"hydromet/internal/handler"
	"hydromet/internal/middleware"
	"hydromet/internal/observability"
	"hydromet/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger zerolog.Logger,
	metrics *observability.Metrics,
	allowedOrigins []string,
	storageH *handler.StorageHandler,
	dataFileSvc service.DataFileService,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks and operational endpoints
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	storage := v1.Group("/storage")
	storage.POST("/presign/storms", storageH.PresignStorms)
	storage.POST("/presign/reservoirs", storageH.PresignReservoirs)
	storage.POST("/presign", storageH.PresignGeneric)
	storage.POST("/commit/storms", storageH.CommitStorms)
	storage.POST("/commit/reservoirs", storageH.CommitReservoirs)
	storage.POST("/upload", storageH.Upload)

	for _, kind := range domain.FileKinds {
		h := handler.NewDataFileHandler(dataFileSvc, kind)
		g := v1.Group(domain.ResourcePaths[kind])
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/export", h.Export)
		g.GET("/:id", h.GetByID)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}

	return r
}
