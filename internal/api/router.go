// Package api serves eligibility determinations over HTTP.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/eligibility"
	"course-eligibility/internal/metrics"
)

// RequestIDHeader carries the correlation id in and out.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

type Server struct {
	Engine  *eligibility.Engine
	Catalog catalog.Catalog
	Metrics *metrics.Recorder
	Logger  *slog.Logger
	// Timeout bounds one determination; zero leaves only the client's
	// cancellation.
	Timeout time.Duration
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(s *Server) *gin.Engine {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(requestID(), requestLogger(s.Logger), gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/eligibility", s.determine)
		v1.GET("/subjects", s.listSubjects)
		v1.GET("/categories", s.listCategories)
		v1.GET("/health", s.health)
	}
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	return r
}

// requestID accepts a caller-supplied id or assigns one, and echoes it back.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
