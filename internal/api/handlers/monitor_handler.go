package handlers

import (
	"github.com/gofiber/fiber/v2"

	"postpilot/internal/service"
)

type MonitorHandler struct {
	s service.MonitorService
}

func NewMonitorHandler(service service.MonitorService) *MonitorHandler {
	return &MonitorHandler{s: service}
}

func (h *MonitorHandler) PipelineSummary(c *fiber.Ctx) error {
	userID := GetUserID(c)

	summary, err := h.s.PipelineSummary(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to build pipeline summary",
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}
