package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/blend/pkg/domain/entities"
)

type errorResponse struct {
	Error string `json:"error"`
}

func Ok(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrDuplicateLotNumber), errors.Is(err, entities.ErrBatchUnavailable):
		return http.StatusConflict
	case errors.Is(err, entities.ErrBatchNotFound), errors.Is(err, entities.ErrBlendNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
