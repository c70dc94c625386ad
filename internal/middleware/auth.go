package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrMissingKey = errors.New("missing API key")
	ErrInvalidKey = errors.New("invalid API key")
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Validator is a function to validate the API key.
	// Required.
	Validator func(key string) (bool, error)

	// ErrorHandler defines a function which is executed for an invalid API key.
	// Optional. Default: 401 with the error envelope
	ErrorHandler fiber.ErrorHandler

	// ContextKey is the key used to store the API key in the context.
	// Optional. Default: "apiKey"
	ContextKey string

	// Header is the header key where to get the API key from.
	// Optional. Default: "X-API-Key"
	Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
	Next: nil,
	ErrorHandler: func(c *fiber.Ctx, err error) error {
		logger.Get().Warn().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Err(err).
			Msg("Authentication failed")

		return Fail(c, fiber.StatusUnauthorized, "Invalid or missing API key", "unauthorized")
	},
	ContextKey: "apiKey",
	Header:     "X-API-Key",
}

// NewAuth creates a new API key middleware
func NewAuth(config ...AuthConfig) fiber.Handler {
	cfg := ConfigDefault

	if len(config) > 0 {
		cfg = config[0]

		if cfg.ErrorHandler == nil {
			cfg.ErrorHandler = ConfigDefault.ErrorHandler
		}
		if cfg.ContextKey == "" {
			cfg.ContextKey = ConfigDefault.ContextKey
		}
		if cfg.Header == "" {
			cfg.Header = ConfigDefault.Header
		}
	}
	if cfg.Validator == nil {
		panic("middleware: AuthConfig.Validator is required")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		// For "Bearer " prefixed tokens
		token := strings.TrimPrefix(c.Get(cfg.Header), "Bearer ")
		if token == "" {
			return cfg.ErrorHandler(c, ErrMissingKey)
		}

		valid, err := cfg.Validator(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		if !valid {
			return cfg.ErrorHandler(c, ErrInvalidKey)
		}

		c.Locals(cfg.ContextKey, token)
		return c.Next()
	}
}

// AdminOnly guards the admin, import and sync routes with a static key. A
// missing key is answered with 401, a wrong one with 403. An empty adminKey
// disables the check, which config validation only allows outside production.
func AdminOnly(adminKey string) fiber.Handler {
	if adminKey == "" {
		logger.Get().Warn().Msg("ADMIN_API_KEY is empty, admin routes are unprotected")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return NewAuth(AuthConfig{
		Validator: func(key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Err(err).
				Msg("Unauthorized admin access attempt")

			if errors.Is(err, ErrMissingKey) {
				return Fail(c, fiber.StatusUnauthorized, "API key is required", "unauthorized")
			}
			return Fail(c, fiber.StatusForbidden, "Admin access required", "forbidden")
		},
	})
}
