package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	config "postpilot/configs"
	"postpilot/internal/service"
	"postpilot/pkg/utils"
)

type PlatformHandler struct {
	s   service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, service service.PlatformService) *PlatformHandler {
	return &PlatformHandler{s: service, cfg: cfg}
}

// Connect redirects to the platform's consent screen. The session token
// rides along as OAuth state so the callback can recover the user.
func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	platform := c.Params("platform")
	tokenString := c.Cookies(h.cfg.CookieName)

	authURL, err := h.s.GetAuthURL(c.Context(), platform, tokenString)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(authURL)
}

func (h *PlatformHandler) ConnectCallback(c *fiber.Ctx) error {
	platform := c.Params("platform")
	code := c.Query("code")
	state := c.Query("state")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid state",
		})
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.UserID, "%d", &userID); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid state",
		})
	}

	if err := h.s.ConnectCallback(c.Context(), userID, platform, code); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accounts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *PlatformHandler) RemoveAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	err := h.s.Delete(c.Context(), userID, int64(accountId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
