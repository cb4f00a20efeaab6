package handler

import (
	"errors"
	"helixclips/app/client/twitch"
	"helixclips/app/http/middleware"
	"helixclips/app/repository/catalog"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func requestIDFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return v
	}
	return ""
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps client and catalog errors to HTTP responses.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, twitch.ErrInvalidFilter):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILTER", err.Error())
	case errors.Is(err, twitch.ErrMissingBroadcasterID):
		return writeError(c, fiber.StatusBadRequest, "INVALID_BROADCASTER", err.Error())
	case errors.Is(err, twitch.ErrUserTokenRequired):
		return writeError(c, fiber.StatusServiceUnavailable, "USER_TOKEN_MISSING", "clip creation is not configured")
	case errors.Is(err, catalog.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "clip not found")
	}

	if apiErr, ok := twitch.AsAPIError(err); ok {
		if apiErr.IsRateLimited() {
			return writeError(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "helix rate limit exceeded")
		}
		return writeError(c, fiber.StatusBadGateway, "UPSTREAM_ERROR", apiErr.Message)
	}

	slog.ErrorContext(c.UserContext(), "Request failed", slog.Any("error", err))
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
