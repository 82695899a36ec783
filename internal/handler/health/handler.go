package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes liveness, readiness and the metrics endpoint.
type Handler struct {
	db      *sqlx.DB
	started time.Time
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{db: db, started: time.Now()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
	r.GET("/health/metrics", gin.WrapH(promhttp.Handler()))
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

func (h *Handler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
