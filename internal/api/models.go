package api

import (
	"monitorss/internal/filters"
	"monitorss/internal/outcomes"
	"monitorss/internal/placeholders"
)

type PreviewRequest struct {
	// Article maps placeholder names (title, description, ...) to values.
	Article            map[string]string                `json:"article" binding:"required"`
	CustomPlaceholders []placeholders.CustomPlaceholder `json:"customPlaceholders" binding:"required"`
}

type ExplainRequest struct {
	Predicate    filters.Predicate `json:"predicate"`
	Placeholders map[string]string `json:"placeholders" binding:"required"`
}

type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type QueueResponse struct {
	DestinationID string `json:"destinationId"`
	Pending       int    `json:"pending"`
	Backlog       int    `json:"backlog"`
	Total         int    `json:"total"`
}

type OutcomesResponse struct {
	FeedID   string             `json:"feedId"`
	Window   string             `json:"window"`
	Outcomes []outcomes.Outcome `json:"outcomes"`
}
