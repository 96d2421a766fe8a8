package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"postpilot/internal/models"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// statusForError maps validation failures to 400 so callers can fix their
// input; everything else stays a 500.
func statusForError(err error) int {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
