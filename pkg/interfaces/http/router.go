package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Registrar is implemented by every handler group
type Registrar interface {
	Register(r *gin.Engine)
}

// NewRouter builds the engine with recovery and request logging
func NewRouter(logger *zap.Logger, handlers ...Registrar) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	for _, h := range handlers {
		h.Register(engine)
	}
	return engine
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
