// Package api exposes read-only diagnostics and previews over HTTP:
// custom placeholder previews, filter validation and explanation, queue
// depth and recent delivery outcomes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"monitorss/internal/delivery"
	"monitorss/internal/destination"
	"monitorss/internal/filters"
	"monitorss/internal/logger"
	"monitorss/internal/outcomes"
	"monitorss/internal/placeholders"
	apperrors "monitorss/pkg/errors"
)

const (
	defaultOutcomeWindow = 24 * time.Hour
	maxOutcomeWindow     = 30 * 24 * time.Hour
)

// QueueInspector reports delivery state.
type QueueInspector interface {
	QueueDepth(destinationID string) delivery.Depth
	Outcomes(ctx context.Context, feedID string, window time.Duration) ([]outcomes.Outcome, error)
}

type Handler struct {
	engine    *placeholders.Engine
	checker   *filters.Checker
	directory destination.Directory
	queues    QueueInspector
	logger    logger.Logger
}

func NewHandler(engine *placeholders.Engine, checker *filters.Checker, dir destination.Directory, queues QueueInspector, log logger.Logger) *Handler {
	return &Handler{
		engine:    engine,
		checker:   checker,
		directory: dir,
		queues:    queues,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/previews/custom-placeholders", h.PreviewCustomPlaceholders)

		f := v1.Group("/filters")
		{
			f.POST("/validate", h.ValidateFilters)
			f.POST("/explain", h.ExplainFilters)
		}

		v1.GET("/destinations/:id/queue", h.GetQueueDepth)
		v1.GET("/feeds/:id/outcomes", h.ListOutcomes)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apperrors.ToErrorResponse(apperrors.ErrValidation.WithCause(err)))
}

// PreviewCustomPlaceholders godoc
// @Summary      Preview custom placeholders
// @Description  Run custom placeholder steps against article placeholder values and return every intermediate output
// @Tags         previews
// @Accept       json
// @Produce      json
// @Param        request  body      PreviewRequest  true  "Article values and placeholder definitions"
// @Success      200      {object}  placeholders.Result
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Router       /previews/custom-placeholders [post]
func (h *Handler) PreviewCustomPlaceholders(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := placeholders.Validate(req.CustomPlaceholders); err != nil {
		h.handleError(c, err)
		return
	}

	res, err := h.engine.Preview(c.Request.Context(), req.Article, req.CustomPlaceholders)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ValidateFilters godoc
// @Summary      Validate a filter predicate
// @Description  Check an expression tree and optional CEL expression, listing every problem with its path
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        predicate  body      object  true  "Filter predicate"
// @Success      200        {object}  ValidateResponse
// @Failure      400        {object}  errors.ErrorResponse
// @Router       /filters/validate [post]
func (h *Handler) ValidateFilters(c *gin.Context) {
	var p filters.Predicate
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}

	resp := ValidateResponse{Valid: true, Errors: []string{}}
	if problems := filters.Problems(p.Expression); len(problems) > 0 {
		resp.Valid = false
		resp.Errors = append(resp.Errors, problems...)
	}
	if p.CEL != "" {
		if err := h.checker.Validate(filters.Predicate{CEL: p.CEL}); err != nil {
			resp.Valid = false
			resp.Errors = append(resp.Errors, "cel: "+err.Error())
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ExplainFilters godoc
// @Summary      Explain a filter decision
// @Description  Evaluate a predicate against placeholder values and report the conditions that blocked them
// @Tags         filters
// @Accept       json
// @Produce      json
// @Param        request  body      ExplainRequest  true  "Predicate and placeholder values"
// @Success      200      {object}  filters.Result
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /filters/explain [post]
func (h *Handler) ExplainFilters(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.checker.Validate(req.Predicate); err != nil {
		h.handleError(c, err)
		return
	}

	res := h.checker.Check(c.Request.Context(), req.Predicate, req.Placeholders, "", "")
	c.JSON(http.StatusOK, res)
}

// GetQueueDepth godoc
// @Summary      Get delivery queue depth
// @Description  Number of jobs waiting for a destination, split into fresh and backlogged
// @Tags         destinations
// @Produce      json
// @Param        id   path      string  true  "Destination ID"
// @Success      200  {object}  QueueResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /destinations/{id}/queue [get]
func (h *Handler) GetQueueDepth(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.directory.Get(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	depth := h.queues.QueueDepth(id)
	c.JSON(http.StatusOK, QueueResponse{
		DestinationID: id,
		Pending:       depth.Pending,
		Backlog:       depth.Backlog,
		Total:         depth.Total(),
	})
}

// ListOutcomes godoc
// @Summary      List delivery outcomes
// @Description  Outcomes recorded for a feed within a time window, newest first
// @Tags         feeds
// @Produce      json
// @Param        id      path      string  true   "Feed ID"
// @Param        window  query     string  false  "Lookback window as a Go duration (default 24h, max 720h)"
// @Success      200     {object}  OutcomesResponse
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /feeds/{id}/outcomes [get]
func (h *Handler) ListOutcomes(c *gin.Context) {
	window := defaultOutcomeWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxOutcomeWindow {
			c.JSON(http.StatusBadRequest, apperrors.ToErrorResponse(
				apperrors.ErrValidation.WithDetail("window", "must be a positive duration up to 720h")))
			return
		}
		window = d
	}

	feedID := c.Param("id")
	rows, err := h.queues.Outcomes(c.Request.Context(), feedID, window)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if rows == nil {
		rows = []outcomes.Outcome{}
	}
	c.JSON(http.StatusOK, OutcomesResponse{FeedID: feedID, Window: window.String(), Outcomes: rows})
}
