package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	// Ping checks the backing store; nil means in-memory storage
	Ping func(ctx context.Context) error
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.Ping == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "storage": "memory"})
		return
	}
	if err := h.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
