// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"strconv"
	"time"

	"mangascout/internal/aggregate"
	"mangascout/internal/domain"
	"mangascout/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Service is the part of the engine the API serves.
type Service interface {
	Sources() []string
	Search(ctx context.Context, query, source string) ([]domain.Result, []aggregate.SourceError, error)
	GetDetails(ctx context.Context, titleURL string) (domain.Title, error)
	GetChapterImages(ctx context.Context, chapterURL string) ([]string, error)
}

// NewRouter creates a gin engine with all routes and middleware.
func NewRouter(svc Service, log zerolog.Logger, startTime time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{svc: svc, log: log}
	api := r.Group("/api")
	api.GET("/health", health(startTime))
	api.GET("/sources", h.sources)
	api.GET("/search", h.search)
	api.GET("/details", h.details)
	api.GET("/images", h.images)

	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HttpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HttpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
