package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"postpilot/internal/service"
)

// RecoveryHandler exposes the manual operator tools: run a marker pass
// now, promote everything due, or push a single ready post through
// delivery.
type RecoveryHandler struct {
	s service.RecoveryService
}

func NewRecoveryHandler(service service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{s: service}
}

func (h *RecoveryHandler) RunMarker(c *fiber.Ctx) error {
	ids, err := h.s.RunMarker(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Marker pass failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"promoted": ids,
	})
}

func (h *RecoveryHandler) ForceReady(c *fiber.Ctx) error {
	ids, err := h.s.ForceReady(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Force-ready pass failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"promoted": ids,
	})
}

func (h *RecoveryHandler) ForceDeliver(c *fiber.Ctx) error {
	postId := c.QueryInt("id", 0)

	err := h.s.ForceDeliver(c.Context(), int64(postId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post delivered",
	})
}

func (h *RecoveryHandler) ProcessorStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"running": h.s.ProcessorRunning(),
	})
}

func (h *RecoveryHandler) ProcessorStart(c *fiber.Ctx) error {
	// The poll loop outlives the request; it must not stop when the
	// request context is cancelled.
	if err := h.s.StartProcessor(context.Background()); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Processor started",
	})
}

func (h *RecoveryHandler) ProcessorStop(c *fiber.Ctx) error {
	h.s.StopProcessor()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Processor stopped",
	})
}
