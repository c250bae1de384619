/**
 * @description
 * Auth API Handlers.
 * Registration, login, profile and logout.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/api/middleware
 */

package handlers

import (
	"github.com/bluewhale-terminal/backend/internal/api/middleware"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.Service.Register(c.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return serviceError(c, err, "Registration failed")
	}
	return success(c, fiber.StatusCreated, result, "Registration successful")
}

// Login exchanges credentials for a token
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.Service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(c, err, "Login failed")
	}
	return success(c, fiber.StatusOK, result, "Login successful")
}

// Profile returns the authenticated user
// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	user, err := h.Service.Profile(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch profile")
	}
	return ok(c, user)
}

// Logout revokes the presented token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Service.Logout(c.Context(), middleware.GetClaims(c)); err != nil {
		logger.Warn("AuthHandler: revoking token failed: %v", err)
	}
	return success(c, fiber.StatusOK, nil, "Logout successful")
}
