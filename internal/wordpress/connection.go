package wordpress

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultTimeout = 15 * time.Second

// Connection identifies a WordPress site and the account used against it.
// BaseURL is the REST root, e.g. https://example.org/wp-json.
type Connection struct {
	BaseURL     string        `validate:"required,url"`
	Username    string        `validate:"required"`
	AppPassword string        `validate:"required"`
	Timeout     time.Duration `validate:"gte=0"`
}

// Validate checks that the connection is usable.
func (c Connection) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return fmt.Errorf("invalid wordpress connection: %s", strings.Join(fields, ", "))
	}
	return nil
}

func (c Connection) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Connection) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
