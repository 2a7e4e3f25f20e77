package handler

import (
	"context"
	"errors"
	"net/url"

	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/features/tracking/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Tracker is the tracking operations the handler needs.
type Tracker interface {
	Lookup(ctx context.Context, carrier, waybill string) (*domain.LookupResult, error)
	IsKnown(carrier string) bool
	Expeditions() []string
}

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(tracker Tracker) *TrackingHandler {
	return &TrackingHandler{
		tracker: tracker,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// ExpeditionsResponse lists supported carriers.
type ExpeditionsResponse struct {
	Expeditions []string `json:"expeditions"`
}

// AvailabilityResponse answers whether a carrier is supported.
type AvailabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func rayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Message: message,
		RayID:   rayID(c),
	})
}

// GetTrackingHistory godoc
// @Summary Track a shipment
// @Description Looks up a waybill on the aggregator for the given carrier
// @Tags tracking
// @Produce json
// @Param number path string true "Waybill (AWB)"
// @Param courier query string true "Carrier name (e.g., ANTERAJA, SHOPEE EXPRESS)"
// @Success 200 {object} domain.LookupResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /tracking/{number} [get]
func (h *TrackingHandler) GetTrackingHistory(c *fiber.Ctx) error {
	waybill := c.Params("number")
	if waybill == "" {
		return errorJSON(c, fiber.StatusBadRequest, "tracking number is required")
	}

	courier := c.Query("courier")
	if courier == "" {
		return errorJSON(c, fiber.StatusBadRequest, "courier query parameter is required")
	}

	result, err := h.tracker.Lookup(c.UserContext(), courier, waybill)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownCarrier):
			return errorJSON(c, fiber.StatusNotFound, "courier not supported")
		case errors.Is(err, domain.ErrInvalidRequest):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}

		logger.Get().Error("Tracking lookup failed",
			zap.String("courier", courier),
			zap.String("waybill", waybill),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
		return errorJSON(c, fiber.StatusBadGateway, "failed to retrieve tracking data")
	}

	return c.JSON(result)
}

// ListExpeditions godoc
// @Summary List supported carriers
// @Tags expeditions
// @Produce json
// @Success 200 {object} ExpeditionsResponse
// @Router /expeditions [get]
func (h *TrackingHandler) ListExpeditions(c *fiber.Ctx) error {
	return c.JSON(ExpeditionsResponse{Expeditions: h.tracker.Expeditions()})
}

// CheckExpedition godoc
// @Summary Check whether a carrier is supported
// @Tags expeditions
// @Produce json
// @Param name path string true "Carrier name"
// @Success 200 {object} AvailabilityResponse
// @Router /expeditions/{name} [get]
func (h *TrackingHandler) CheckExpedition(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid carrier name")
	}
	return c.JSON(AvailabilityResponse{
		Name:      name,
		Available: h.tracker.IsKnown(name),
	})
}
