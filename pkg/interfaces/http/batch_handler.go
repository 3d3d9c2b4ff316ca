package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/blend/pkg/application/services"
	"github.com/vsinha/blend/pkg/domain/entities"
	"github.com/vsinha/blend/pkg/domain/repositories"
)

type BatchHandler struct {
	Service *services.BlendService
	Logger  *zap.Logger
}

func (h *BatchHandler) Register(r *gin.Engine) {
	group := r.Group("/api/batches")
	group.GET("/available", h.available)
	group.PUT("/:id/hold", h.hold)
}

func (h *BatchHandler) available(c *gin.Context) {
	fiscalYear, ok := intQuery(c, "fiscal_year", 0)
	if !ok {
		return
	}
	includeOutsource, ok := boolQuery(c, "include_outsource")
	if !ok {
		return
	}
	onlyOutsource, ok := boolQuery(c, "only_outsource")
	if !ok {
		return
	}
	query := repositories.PoolQuery{
		FiscalYear:       fiscalYear,
		IncludeOutsource: includeOutsource,
		OnlyOutsource:    onlyOutsource,
	}

	ctx := c.Request.Context()
	summary, err := h.Service.Pool(ctx, query)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	batches, err := h.Service.AvailableBatches(ctx, query)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}

	resp := poolResponse{
		FiscalYear:    summary.FiscalYear,
		Available:     summary.Available,
		Production:    summary.Production,
		Outsource:     summary.Outsource,
		WithBloom:     summary.WithBloom,
		AverageBloom:  summary.AverageBloom,
		MinBloom:      summary.MinBloom,
		MaxBloom:      summary.MaxBloom,
		AvailableBags: summary.AvailableBags,
		Batches:       make([]batchResponse, len(batches)),
	}
	for i, b := range batches {
		resp.Batches[i] = newBatchResponse(b)
	}
	Ok(c, http.StatusOK, resp)
}

func (h *BatchHandler) hold(c *gin.Context) {
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OnHold == nil {
		Error(c, http.StatusBadRequest, "onHold is required")
		return
	}

	id := entities.BatchID(c.Param("id"))
	if err := h.Service.SetHold(c.Request.Context(), id, *req.OnHold); err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, http.StatusOK, gin.H{"id": id, "onHold": *req.OnHold})
}
