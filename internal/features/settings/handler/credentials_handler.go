package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"parcel-tracker/internal/core/credentials"
	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/tracking/domain"
)

// CredentialsHandler handles HTTP requests for provider API keys.
// Keys are write-only over the API: they can be stored and removed but
// never read back.
type CredentialsHandler struct {
	store credentials.Store
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(store credentials.Store) *CredentialsHandler {
	return &CredentialsHandler{
		store: store,
	}
}

// SetCredentialRequest represents the request body for storing an API key.
type SetCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// Set handles PUT /settings/credentials/:provider.
// @Summary Store a provider API key
// @Description Stores or replaces the API key for a tracking provider in the OS keyring.
// @Tags Settings
// @Accept json
// @Produce json
// @Param provider path string true "Provider (trackingmore, track123)"
// @Param credential body SetCredentialRequest true "API key"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /settings/credentials/{provider} [put]
func (h *CredentialsHandler) Set(c *fiber.Ctx) error {
	provider := domain.Provider(c.Params("provider"))
	if !provider.Valid() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown provider",
		})
	}

	var req SetCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.APIKey == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "API key is required",
		})
	}

	if err := h.store.Write(provider.CredentialAccount(), req.APIKey); err != nil {
		logger.Get().Error("Failed to store credential",
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Credential stored",
	})
}

// Delete handles DELETE /settings/credentials/:provider.
// @Summary Remove a provider API key
// @Description Removes the stored API key for a tracking provider. Removing a missing key succeeds.
// @Tags Settings
// @Produce json
// @Param provider path string true "Provider (trackingmore, track123)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /settings/credentials/{provider} [delete]
func (h *CredentialsHandler) Delete(c *fiber.Ctx) error {
	provider := domain.Provider(c.Params("provider"))
	if !provider.Valid() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown provider",
		})
	}

	if err := h.store.Delete(provider.CredentialAccount()); err != nil {
		logger.Get().Error("Failed to delete credential",
			zap.String("provider", string(provider)),
			zap.Error(err),
		)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Credential removed",
	})
}
