package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bluewhale-terminal/backend/internal/integrations/llm"
	"github.com/bluewhale-terminal/backend/internal/jobs"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func success(c *fiber.Ctx, status int, data interface{}, message string) error {
	body := fiber.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

func ok(c *fiber.Ctx, data interface{}) error {
	return success(c, fiber.StatusOK, data, "")
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

// bind parses the JSON body into dst and validates it
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.New("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %q validation", lowerFirst(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// serviceError maps service errors to status codes. Unknown errors are logged and become 500.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrCompanyNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrWatchlistNotFound),
		errors.Is(err, services.ErrWatchlistItemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		logger.Info("%s %s: %v", c.Method(), c.Path(), err)
		return fail(c, fiber.StatusNotFound, upperFirst(err.Error()))
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyInWatchlist),
		errors.Is(err, services.ErrReportAlreadySaved),
		errors.Is(err, jobs.ErrJobRunning):
		return fail(c, fiber.StatusConflict, upperFirst(err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrInvalidInput):
		return fail(c, fiber.StatusBadRequest, upperFirst(err.Error()))
	case errors.Is(err, llm.ErrNotConfigured):
		return fail(c, fiber.StatusServiceUnavailable, "AI provider is not configured")
	}
	logger.Error("%s %s: %v", c.Method(), c.Path(), err)
	return fail(c, fiber.StatusInternalServerError, fallback)
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &v, nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
