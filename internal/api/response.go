package api

import (
	"errors"
	"time"

	"github.com/bilgisen/wpsync/internal/autosync"
	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/importer"
	"github.com/bilgisen/wpsync/internal/middleware"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker/v2"
)

// errBadRequest marks request errors detected by the handlers themselves.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

func ok(c *fiber.Ctx, data any, msg string) error {
	return middleware.Respond(c, middleware.Envelope{Data: data, Message: msg})
}

func okWithStats(c *fiber.Ctx, data, stats any, msg string) error {
	return middleware.Respond(c, middleware.Envelope{Data: data, Stats: stats, Message: msg})
}

// failure builds an error envelope that still carries data.
func failure(data any, code string) middleware.Envelope {
	msg := ""
	if r, isResult := data.(wordpress.ConnectionResult); isResult {
		msg = r.Message
	}
	return middleware.Envelope{
		Data:      data,
		Error:     msg,
		ErrorCode: code,
		Timestamp: middleware.Now().UTC().Format(time.RFC3339),
	}
}

// fail maps err to a status code and error code and writes the envelope.
// Errors that map to nothing known are passed on to the fiber error handler.
func fail(c *fiber.Ctx, err error) error {
	var fieldErr *middleware.FieldError
	if errors.As(err, &fieldErr) {
		return err
	}
	status, code := statusFor(err)
	if status == fiber.StatusInternalServerError {
		return err
	}
	return middleware.Fail(c, status, err.Error(), code)
}

func statusFor(err error) (int, string) {
	var wpErr *wordpress.Error
	var fieldErr *middleware.FieldError
	var fe *fiber.Error

	switch {
	case errors.As(err, &fe):
		return fe.Code, "request"
	case errors.As(err, &fieldErr),
		errors.Is(err, errBadRequest),
		wordpress.IsValidationError(err),
		errors.Is(err, content.ErrSyncDisabled),
		errors.Is(err, importer.ErrBidirectionalDisabled),
		errors.Is(err, autosync.ErrInvalidInterval):
		return fiber.StatusBadRequest, "validation"
	case errors.Is(err, content.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, content.ErrNoRemote):
		return fiber.StatusServiceUnavailable, "disabled"
	case wordpress.IsAuthError(err):
		if errors.As(err, &wpErr) && wpErr.StatusCode == fiber.StatusForbidden {
			return fiber.StatusForbidden, "auth"
		}
		return fiber.StatusUnauthorized, "auth"
	case errors.Is(err, wordpress.ErrUnreachable),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		return fiber.StatusBadGateway, "unreachable"
	case errors.As(err, &wpErr):
		return fiber.StatusBadGateway, "remote"
	}
	return fiber.StatusInternalServerError, "internal"
}
