package middleware

import (
	"errors"
	"time"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Stats     any    `json:"stats,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Fields    any    `json:"fields,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Now stamps envelopes. Tests may replace it.
var Now = time.Now

// Respond writes a successful envelope.
func Respond(c *fiber.Ctx, env Envelope) error {
	env.Success = true
	env.Timestamp = Now().UTC().Format(time.RFC3339)
	return c.Status(fiber.StatusOK).JSON(env)
}

// Fail writes an error envelope with the given status.
func Fail(c *fiber.Ctx, status int, msg, code string) error {
	return c.Status(status).JSON(Envelope{
		Error:     msg,
		ErrorCode: code,
		Timestamp: Now().UTC().Format(time.RFC3339),
	})
}

// ErrorHandler renders errors that reach fiber in the envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	errCode := "internal"

	var fe *fiber.Error
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		return c.Status(fiber.StatusBadRequest).JSON(Envelope{
			Error:     "Validation failed",
			ErrorCode: "validation",
			Fields:    fieldErr.Fields,
			Timestamp: Now().UTC().Format(time.RFC3339),
		})
	case errors.As(err, &fe):
		code = fe.Code
		msg = fe.Message
		errCode = codeFor(code)
	}

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("request_id", GetRequestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
	}

	return Fail(c, code, msg, errCode)
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "validation"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	}
	return "internal"
}
