package api

import (
	"github.com/gofiber/fiber/v2"

	"webmail/middleware"
	"webmail/service"
	"webmail/utils"
)

// AuthHandler serves registration, login and profile routes.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleRegister creates an account and returns it with a token.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}

	user, token, err := h.auth.Register(req)
	if err != nil {
		return err
	}

	utils.Log.Info("user registered: %s", user.Email)
	c.Status(fiber.StatusCreated)
	return success(c, fiber.Map{"user": user, "token": token}, "User registered successfully")
}

// HandleLogin verifies credentials and returns a token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if req.Email == "" || req.Password == "" {
		return utils.BadRequestError("email and password are required", nil)
	}

	user, token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"user": user, "token": token}, "Login successful")
}

// HandleProfile returns the caller's account.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	user, err := h.auth.GetProfile(middleware.UserID(c))
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"user": user}, "")
}

// HandleUpdateProfile applies a partial profile patch for the caller.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req service.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}

	user, err := h.auth.UpdateProfile(middleware.UserID(c), req)
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"user": user}, "Profile updated")
}

// HandleUserStats returns account counts and the caller's quota usage.
func (h *AuthHandler) HandleUserStats(c *fiber.Ctx) error {
	stats, err := h.auth.GetUserStats(middleware.UserID(c))
	if err != nil {
		return err
	}
	return success(c, stats, "")
}

// HandleChangePassword replaces the caller's password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}

	if err := h.auth.ChangePassword(middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return success(c, fiber.Map{}, "Password updated")
}

// HandleSetQuota adjusts a user's quota ceiling. Admin only.
func (h *AuthHandler) HandleSetQuota(c *fiber.Ctx) error {
	var req struct {
		UserID     string `json:"userId"`
		QuotaBytes int64  `json:"quotaBytes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request body", err)
	}
	if req.UserID == "" {
		return utils.BadRequestError("userId is required", nil)
	}

	if err := h.auth.SetUserQuota(req.UserID, req.QuotaBytes); err != nil {
		return err
	}
	utils.Log.Info("quota updated for user %s: %d bytes", req.UserID, req.QuotaBytes)
	return success(c, fiber.Map{}, "Quota updated")
}

// HandleListUsers returns all active accounts. Admin only.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers()
	if err != nil {
		return err
	}
	return success(c, fiber.Map{"users": users}, "")
}

// HandleActivateUser re-enables an account. Admin only.
func (h *AuthHandler) HandleActivateUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := h.auth.SetUserActive(userID, true); err != nil {
		return err
	}
	utils.Log.Info("user activated: %s", userID)
	return success(c, fiber.Map{}, "User activated")
}

// HandleDeactivateUser disables an account. Admin only.
func (h *AuthHandler) HandleDeactivateUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if err := h.auth.SetUserActive(userID, false); err != nil {
		return err
	}
	utils.Log.Info("user deactivated: %s", userID)
	return success(c, fiber.Map{}, "User deactivated")
}
