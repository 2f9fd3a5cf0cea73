package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/parcels/service"
	tracking "parcel-tracker/internal/features/tracking/domain"
)

// ParcelHandler handles HTTP requests for parcel CRUD.
type ParcelHandler struct {
	service *service.ParcelService
}

// NewParcelHandler creates a new ParcelHandler.
func NewParcelHandler(s *service.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: s,
	}
}

// CreateParcelRequest represents the request body for creating a parcel.
type CreateParcelRequest struct {
	Title          string `json:"title"`
	TrackingNumber string `json:"tracking_number"`
	OrderNumber    string `json:"order_number"`
	Carrier        string `json:"carrier"`
	Direction      string `json:"direction"`
	Notes          string `json:"notes"`
	Recipient      string `json:"recipient"`
	Purpose        string `json:"purpose"`
	ProductURL     string `json:"product_url"`
}

// ParseRequest represents the request body for pasted-text parsing.
type ParseRequest struct {
	Text string `json:"text"`
}

// ArchiveRequest represents the request body for the archive toggle.
type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

// Create handles POST /parcels.
// @Summary Create a parcel
// @Description Creates a parcel, auto-detecting the carrier and computing the initial status.
// @Tags Parcels
// @Accept json
// @Produce json
// @Param parcel body CreateParcelRequest true "Parcel details"
// @Success 201 {object} domain.Parcel
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels [post]
func (h *ParcelHandler) Create(c *fiber.Ctx) error {
	var req CreateParcelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Title == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	direction := domain.ParcelDirection(req.Direction)
	if direction != "" && direction != domain.DirectionIncoming && direction != domain.DirectionOutgoing {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Direction must be incoming or outgoing",
		})
	}

	parcel, err := h.service.Create(c.Context(), service.CreateParcelInput{
		Title:          req.Title,
		TrackingNumber: req.TrackingNumber,
		OrderNumber:    req.OrderNumber,
		Carrier:        req.Carrier,
		Direction:      direction,
		Notes:          req.Notes,
		Recipient:      req.Recipient,
		Purpose:        req.Purpose,
		ProductURL:     req.ProductURL,
	})
	if err != nil {
		logger.Get().Error("Failed to create parcel", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusCreated).JSON(parcel)
}

// List handles GET /parcels.
// @Summary List parcels
// @Description Lists all parcels, optionally filtered by status category.
// @Tags Parcels
// @Produce json
// @Param category query string false "Status category (toBeActivated, onTheWay, delivered, exceptionNeeded)"
// @Success 200 {array} domain.Parcel
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels [get]
func (h *ParcelHandler) List(c *fiber.Ctx) error {
	category := domain.StatusCategory(c.Query("category"))
	switch category {
	case "", domain.CategoryToBeActivated, domain.CategoryOnTheWay,
		domain.CategoryDelivered, domain.CategoryExceptionNeeded:
	default:
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown category",
		})
	}

	list, err := h.service.List(c.Context(), category)
	if err != nil {
		logger.Get().Error("Failed to list parcels", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(list)
}

// Get handles GET /parcels/:id.
// @Summary Get a parcel
// @Description Returns one parcel by ID.
// @Tags Parcels
// @Produce json
// @Param id path string true "Parcel ID"
// @Success 200 {object} domain.Parcel
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels/{id} [get]
func (h *ParcelHandler) Get(c *fiber.Ctx) error {
	parcel, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, tracking.ErrParcelNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Parcel not found",
			})
		}
		logger.Get().Error("Failed to get parcel", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(parcel)
}

// Parse handles POST /parcels/parse.
// @Summary Parse pasted text
// @Description Extracts a tracking number, order number, and carrier guess from free-form text.
// @Tags Parcels
// @Accept json
// @Produce json
// @Param text body ParseRequest true "Pasted text"
// @Success 200 {object} paste.ParsedParcelData
// @Failure 400 {object} map[string]string
// @Router /parcels/parse [post]
func (h *ParcelHandler) Parse(c *fiber.Ctx) error {
	var req ParseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.Status(http.StatusOK).JSON(h.service.Parse(req.Text))
}

// Archive handles PATCH /parcels/:id/archive.
// @Summary Archive or unarchive a parcel
// @Description Toggles the archive flag, excluding the parcel from syncs.
// @Tags Parcels
// @Accept json
// @Produce json
// @Param id path string true "Parcel ID"
// @Param archive body ArchiveRequest true "Archive flag"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels/{id}/archive [patch]
func (h *ParcelHandler) Archive(c *fiber.Ctx) error {
	var req ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	err := h.service.SetArchived(c.Context(), c.Params("id"), req.Archived)
	if err != nil {
		if errors.Is(err, tracking.ErrParcelNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Parcel not found",
			})
		}
		logger.Get().Error("Failed to archive parcel", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Parcel updated",
	})
}

// Delete handles DELETE /parcels/:id.
// @Summary Delete a parcel
// @Description Permanently removes a parcel.
// @Tags Parcels
// @Produce json
// @Param id path string true "Parcel ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /parcels/{id} [delete]
func (h *ParcelHandler) Delete(c *fiber.Ctx) error {
	err := h.service.Delete(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, tracking.ErrParcelNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"error": "Parcel not found",
			})
		}
		logger.Get().Error("Failed to delete parcel", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Parcel deleted",
	})
}
