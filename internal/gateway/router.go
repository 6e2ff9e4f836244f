package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouteRegistrar is implemented by every API handler
type RouteRegistrar interface {
	RegisterRoutes(api gin.IRouter)
}

// RouterConfig collects what the HTTP router serves
type RouterConfig struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Socket         http.Handler
	Health         func(ctx context.Context) error
	Handlers       []RouteRegistrar
}

// NewRouter builds the gin engine with middleware, operational endpoints and API routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger.Named("http")

	router := gin.New()
	router.Use(Recovery(logger), RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	if cfg.Socket != nil {
		router.GET("/socket", gin.WrapH(cfg.Socket))
	}

	api := router.Group("/api")
	for _, h := range cfg.Handlers {
		h.RegisterRoutes(api)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
