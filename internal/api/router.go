package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/reident/internal/api/handlers"
	"github.com/your-org/reident/internal/api/ws"
	"github.com/your-org/reident/internal/bus"
	"github.com/your-org/reident/internal/engine"
	"github.com/your-org/reident/internal/snapshot"
	"github.com/your-org/reident/internal/store"
)

// RouterConfig wires the QueryFacade's four operations behind gin, per
// spec.md §1/§4.9: this surface is thin by design — it reads the
// Engine's state, it never matches or mutates beyond rename.
type RouterConfig struct {
	APIKey   string
	DB       *store.Store
	Snapshot *snapshot.Store
	Producer *bus.Producer
	Hub      *ws.Hub
	Facade   *engine.QueryFacade
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Snapshot, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(APIKeyMiddleware(cfg.APIKey))

	v1.GET("/ws", cfg.Hub.HandleWS)

	queryH := handlers.NewQueryHandler(cfg.Facade)
	v1.GET("/rooms/:room_id/people", queryH.ListInRoom)
	v1.GET("/people/:global_id", queryH.GetPerson)
	v1.POST("/people/:global_id/rename", queryH.RenamePerson)

	return r
}
