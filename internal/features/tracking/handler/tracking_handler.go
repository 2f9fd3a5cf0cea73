package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/tracking/domain"
	"parcel-tracker/internal/features/tracking/service"
)

// TrackingHandler handles HTTP requests for syncing and scraping.
type TrackingHandler struct {
	service         *service.SyncService
	defaultProvider domain.Provider
}

// NewTrackingHandler creates a new TrackingHandler. defaultProvider is
// used when a sync request names no provider.
func NewTrackingHandler(s *service.SyncService, defaultProvider domain.Provider) *TrackingHandler {
	return &TrackingHandler{
		service:         s,
		defaultProvider: defaultProvider,
	}
}

// SyncRequest represents the request body for a batch sync.
type SyncRequest struct {
	Provider string `json:"provider"`
}

// ScrapeRequest represents the request body for a scrape. When PageText
// is set the text is classified directly instead of fetching the page.
type ScrapeRequest struct {
	PageText string `json:"page_text"`
}

// Sync handles POST /sync.
// @Summary Sync all active parcels
// @Description Runs a batch sync of active parcels through the selected tracking provider.
// @Tags Tracking
// @Accept json
// @Produce json
// @Param sync body SyncRequest false "Provider override"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /sync [post]
func (h *TrackingHandler) Sync(c *fiber.Ctx) error {
	var req SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	providerName := h.defaultProvider
	if req.Provider != "" {
		providerName = domain.Provider(req.Provider)
		if !providerName.Valid() {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown provider",
			})
		}
	}

	results, err := h.service.SyncActive(c.Context(), providerName)
	if err != nil {
		logger.Get().Error("Batch sync failed",
			zap.String("provider", string(providerName)),
			zap.Error(err),
		)

		switch {
		case errors.Is(err, domain.ErrCredentialMissing):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "No API key configured for provider",
			})
		case errors.Is(err, domain.ErrAuthFailed):
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "Provider rejected the API key",
			})
		case errors.Is(err, domain.ErrQuotaExceeded):
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Provider quota exhausted",
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"provider": providerName,
		"synced":   len(results),
	})
}

// Scrape handles POST /parcels/:id/scrape.
// @Summary Scrape a parcel's tracking page
// @Description Classifies the carrier tracking page text and prepends one event to the timeline.
// @Tags Tracking
// @Accept json
// @Produce json
// @Param id path string true "Parcel ID"
// @Param scrape body ScrapeRequest false "Pre-fetched page text"
// @Success 200 {object} domain.ScrapedStatus
// @Success 204 "No confident status signal"
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels/{id}/scrape [post]
func (h *TrackingHandler) Scrape(c *fiber.Ctx) error {
	parcelID := c.Params("id")

	var req ScrapeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	var (
		scraped *domain.ScrapedStatus
		err     error
	)
	if req.PageText != "" {
		scraped, err = h.service.ApplyScrapedText(c.Context(), parcelID, req.PageText)
	} else {
		scraped, err = h.service.ScrapeAndApply(c.Context(), parcelID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrParcelNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Parcel not found",
			})
		}
		logger.Get().Error("Scrape failed",
			zap.String("parcel_id", parcelID),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	if scraped == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Status(http.StatusOK).JSON(scraped)
}

// Events handles GET /parcels/:id/events.
// @Summary Get a parcel's timeline
// @Description Returns the stored timeline events, newest first.
// @Tags Tracking
// @Produce json
// @Param id path string true "Parcel ID"
// @Success 200 {array} domain.TimelineEvent
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels/{id}/events [get]
func (h *TrackingHandler) Events(c *fiber.Ctx) error {
	parcelID := c.Params("id")

	events, err := h.service.Timeline(c.Context(), parcelID)
	if err != nil {
		if errors.Is(err, domain.ErrParcelNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Parcel not found",
			})
		}
		logger.Get().Error("Failed to read timeline",
			zap.String("parcel_id", parcelID),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	if events == nil {
		events = []domain.TimelineEvent{}
	}
	return c.Status(http.StatusOK).JSON(events)
}
