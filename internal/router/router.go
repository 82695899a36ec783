package router

import (
	"github.com/gin-gonic/gin"

	"github.com/meistersol/bookingbot/internal/middleware"
)

// Handler registers its routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// New assembles the gin engine: recovery, request id, logging and per-sender
// rate limiting in front of every handler.
func New(cfg Config, handlers ...Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.NewSenderRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).RateLimit())

	root := engine.Group("/")
	for _, h := range handlers {
		h.RegisterRoutes(root)
	}
	return engine
}
