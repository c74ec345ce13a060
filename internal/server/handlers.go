package server

import (
	"context"
	"errors"
	"net/http"

	"autoparts/catalog/internal/domain"

	"github.com/gin-gonic/gin"
)

// CatalogService is what the HTTP API needs from the service layer.
type CatalogService interface {
	CategoryTree(ctx context.Context, q domain.VehicleQuery) (*domain.CategoryTree, error)
	StreamEquivalents(ctx context.Context, q domain.EquivalenceQuery) (<-chan domain.EquivalenceEvent, error)
	EquivalentsSection(ctx context.Context, q domain.EquivalenceQuery) (*domain.EquivalenceResult, error)
	EnqueuePrecompute(ctx context.Context, queries []domain.EquivalenceQuery) ([]string, error)
}

type handlers struct {
	service CatalogService
}

type categoriesRequest struct {
	VehicleID      int64  `uri:"vehicleId" binding:"required,gt=0"`
	ManufacturerID int64  `form:"manufacturerId" binding:"gte=0"`
	CountryID      int64  `form:"countryId" binding:"gte=0"`
	Version        string `form:"version"`
}

type equivalentsRequest struct {
	ArticleID int64 `uri:"articleId" binding:"required,gt=0"`
	CountryID int64 `form:"countryId" binding:"gte=0"`
	VehicleID int64 `form:"vehicleId" binding:"gte=0"`
}

type precomputeRequest struct {
	Items []domain.EquivalenceQuery `json:"items" binding:"required,min=1"`
}

type precomputeResponse struct {
	MessageIDs []string `json:"messageIds"`
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *handlers) categories(c *gin.Context) {
	var req categoriesRequest
	if err := c.ShouldBindUri(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	version, err := domain.ParseCategoryVersion(req.Version)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	tree, err := h.service.CategoryTree(c.Request.Context(), domain.VehicleQuery{
		ManufacturerID: req.ManufacturerID,
		VehicleID:      req.VehicleID,
		CountryID:      req.CountryID,
		Version:        version,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tree)
}

func bindEquivalents(c *gin.Context) (domain.EquivalenceQuery, bool) {
	var req equivalentsRequest
	if err := c.ShouldBindUri(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return domain.EquivalenceQuery{}, false
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return domain.EquivalenceQuery{}, false
	}

	return domain.EquivalenceQuery{
		ArticleID: req.ArticleID,
		CountryID: req.CountryID,
		VehicleID: req.VehicleID,
	}, true
}

func (h *handlers) equivalents(c *gin.Context) {
	q, ok := bindEquivalents(c)
	if !ok {
		return
	}

	section, err := h.service.EquivalentsSection(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, section)
}

// streamEquivalents writes one SSE event per found part and a final complete
// event. A client that goes away cancels the request context, which ends the run.
func (h *handlers) streamEquivalents(c *gin.Context) {
	q, ok := bindEquivalents(c)
	if !ok {
		return
	}

	events, err := h.service.StreamEquivalents(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for ev := range events {
		c.SSEvent(string(ev.Type), ev.Data())
		c.Writer.Flush()
	}
}

func (h *handlers) precompute(c *gin.Context) {
	var req precomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	for _, item := range req.Items {
		if item.ArticleID <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", errors.New("every item needs a positive articleId"))
			return
		}
	}

	ids, err := h.service.EnqueuePrecompute(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "queue_error", err)
		return
	}

	c.JSON(http.StatusAccepted, precomputeResponse{MessageIDs: ids})
}
