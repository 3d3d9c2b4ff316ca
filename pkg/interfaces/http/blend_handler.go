package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/blend/pkg/application/services"
	"github.com/vsinha/blend/pkg/domain/entities"
)

type BlendHandler struct {
	Service *services.BlendService
	Logger  *zap.Logger
}

func (h *BlendHandler) Register(r *gin.Engine) {
	group := r.Group("/api/blends")
	group.POST("/optimize", h.optimize)
	group.POST("", h.save)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.delete)
}

func (h *BlendHandler) optimize(c *gin.Context) {
	var req targetPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Service.Optimize(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, http.StatusOK, newOptimizationResponse(result))
}

func (h *BlendHandler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	ids := make([]entities.BatchID, 0, len(req.SelectedBatches))
	for _, ref := range req.SelectedBatches {
		ids = append(ids, entities.BatchID(strings.TrimSpace(ref.ID)))
	}

	blend, err := h.Service.Save(c.Request.Context(), services.SaveRequest{
		Target:    spec,
		LotNumber: req.LotNumber,
		Mesh:      req.Mesh,
		Notes:     req.Notes,
		BatchIDs:  ids,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, http.StatusCreated, gin.H{
		"blendId":      blend.ID,
		"serialNumber": blend.SerialNumber,
	})
}

func (h *BlendHandler) list(c *gin.Context) {
	fiscalYear, ok := intQuery(c, "fiscal_year", 0)
	if !ok {
		return
	}
	blends, err := h.Service.ListBlends(c.Request.Context(), fiscalYear)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]blendResponse, len(blends))
	for i, b := range blends {
		items[i] = newBlendResponse(b)
	}
	Ok(c, http.StatusOK, gin.H{"blends": items})
}

func (h *BlendHandler) get(c *gin.Context) {
	blend, err := h.Service.GetBlend(c.Request.Context(), entities.BlendID(c.Param("id")))
	if err != nil {
		h.fail(c, err)
		return
	}
	Ok(c, http.StatusOK, newBlendResponse(blend))
}

func (h *BlendHandler) delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), entities.BlendID(c.Param("id"))); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BlendHandler) fail(c *gin.Context, err error) {
	fail(c, h.Logger, err)
}

// fail writes err with its mapped status; unexpected errors are logged and
// reported without detail
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		Error(c, status, "internal error")
		return
	}
	Error(c, status, err.Error())
}

// intQuery parses an optional integer query parameter, writing a 400 on malformed input
func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		Error(c, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return v, true
}

func boolQuery(c *gin.Context, key string) (bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		Error(c, http.StatusBadRequest, key+" must be true or false")
		return false, false
	}
	return v, true
}
