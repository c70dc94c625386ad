package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const bodyKey = "validated"

// Validator is a struct that holds the validator instance
type Validator struct {
	validate *validator.Validate
}

// FieldError maps each invalid request field to the rule it failed.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f, rule))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// NewValidator creates a validator that reports fields by their JSON name.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate validates s against its struct tags. Failures are returned as a
// *FieldError.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &FieldError{Fields: fields}
}

// Bind parses the request body into dst and validates it.
func (v *Validator) Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return v.Validate(dst)
}

// Body parses and validates a fresh T for every request and stores it for
// the handler. Use BodyOf to read it back.
func Body[T any](v *Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dst := new(T)
		if err := v.Bind(c, dst); err != nil {
			return err
		}
		c.Locals(bodyKey, dst)
		return c.Next()
	}
}

// BodyOf returns the body stored by Body.
func BodyOf[T any](c *fiber.Ctx) *T {
	dst, _ := c.Locals(bodyKey).(*T)
	return dst
}
