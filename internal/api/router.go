package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceid/internal/api/handlers"
	"github.com/your-org/faceid/internal/api/ws"
	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/domain"
	"github.com/your-org/faceid/internal/queue"
	"github.com/your-org/faceid/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	Service  *domain.Service
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Workspaces
	wsH := handlers.NewWorkspaceHandler(cfg.Service)
	v1.POST("/workspaces", wsH.Create)
	v1.GET("/workspaces", wsH.List)
	v1.GET("/workspaces/:ws", wsH.Get)
	v1.PATCH("/workspaces/:ws/config", wsH.PatchConfig)

	// Samples & blobs
	sampleH := handlers.NewSampleHandler(cfg.Service)
	v1.POST("/workspaces/:ws/samples", sampleH.Create)
	v1.POST("/workspaces/:ws/samples/enroll", sampleH.Enroll)
	v1.GET("/workspaces/:ws/samples", sampleH.List)
	v1.GET("/workspaces/:ws/samples/:id", sampleH.Get)
	v1.DELETE("/workspaces/:ws/samples/:id", sampleH.Delete)
	v1.GET("/workspaces/:ws/blobs/:id", sampleH.Blob)

	// Profiles & persons
	profileH := handlers.NewProfileHandler(cfg.Service)
	v1.POST("/workspaces/:ws/profiles", profileH.Create)
	v1.GET("/workspaces/:ws/profiles", profileH.List)
	v1.GET("/workspaces/:ws/profiles/:id", profileH.Get)
	v1.PATCH("/workspaces/:ws/profiles/:id/info", profileH.UpdateInfo)
	v1.PUT("/workspaces/:ws/profiles/:id/groups", profileH.SetGroups)
	v1.DELETE("/workspaces/:ws/profiles/:id", profileH.Delete)
	v1.POST("/workspaces/:ws/persons/:id/samples", profileH.EnrollPersonSample)

	// Labels
	labelH := handlers.NewLabelHandler(cfg.Service)
	v1.POST("/workspaces/:ws/labels", labelH.Create)
	v1.GET("/workspaces/:ws/labels", labelH.List)
	v1.DELETE("/workspaces/:ws/labels/:id", labelH.Deactivate)

	// Activities & notifications
	activityH := handlers.NewActivityHandler(cfg.Service, cfg.Producer)
	v1.POST("/workspaces/:ws/activities", activityH.Ingest)
	v1.GET("/workspaces/:ws/activities", activityH.List)
	v1.DELETE("/workspaces/:ws/activities/:id", activityH.Delete)
	v1.GET("/workspaces/:ws/notifications", activityH.ListNotifications)
	v1.POST("/workspaces/:ws/notifications/:id/viewed", activityH.MarkNotificationViewed)

	// Templates, search & verify
	searchH := handlers.NewSearchHandler(cfg.Service)
	v1.POST("/workspaces/:ws/templates", searchH.ResolveTemplates)
	v1.POST("/workspaces/:ws/search", searchH.Search)
	v1.POST("/workspaces/:ws/verify", searchH.Verify)

	return r
}
