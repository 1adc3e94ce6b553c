package config_handler

import (
	"context"

	"monitorss/internal/logger"
	"monitorss/pkg/models"
)

type ConfigReloader interface {
	Reload(ctx context.Context, skipJitter ...bool) error
}

// ConfigRemover drops a destination ahead of the full reload so no further
// deliveries are dispatched to it.
type ConfigRemover interface {
	Remove(id string)
}

type Handler struct {
	expectedEventType string
	reloader          ConfigReloader
	remover           ConfigRemover
	logger            logger.Logger
}

func NewHandler(expectedEventType string, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType: expectedEventType,
		logger:            log,
	}
}

func NewHandlerWithReloader(expectedEventType string, reloader ConfigReloader, log logger.Logger) *Handler {
	return NewHandler(expectedEventType, log).WithReloader(reloader)
}

func (h *Handler) WithReloader(reloader ConfigReloader) *Handler {
	h.reloader = reloader
	return h
}

func (h *Handler) WithRemover(remover ConfigRemover) *Handler {
	h.remover = remover
	return h
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.MessageEnvelope) error {
	if envelope.Type != models.TypeConfigUpdate {
		return nil
	}

	var event models.ConfigUpdateEvent
	if err := envelope.DecodePayload(&event); err != nil {
		h.logger.Errorw("Failed to decode config event", "error", err, "id", envelope.ID)
		return err
	}

	if event.EventType == "" {
		h.logger.Warnw("Config event missing event_type", "id", envelope.ID)
		return nil
	}
	if event.EventType != h.expectedEventType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"destination_id", event.DestinationID,
		"feed_id", event.FeedID,
	)

	if event.Action == models.ActionDelete && event.DestinationID != "" && h.remover != nil {
		h.remover.Remove(event.DestinationID)
	}

	if h.reloader != nil {
		if err := h.reloader.Reload(ctx); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to reload destinations after config update", "error", err)
			return err
		}
		h.logger.InfowCtx(ctx, "Destinations reloaded successfully after config update", "action", event.Action)
	}

	return nil
}
