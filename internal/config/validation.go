package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrMissingRedis  = errors.New("redis config is required")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml keys rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("redis_url", validateRedisURL); err != nil {
		panic(err)
	}
	return v
}

// validateRedisURL accepts the connection strings go-redis parses:
// redis:// and rediss:// with an optional host, and unix:// with a socket path.
func validateRedisURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "redis", "rediss":
		return true
	case "unix":
		return u.Path != ""
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Reset validated state
	c.validated = false

	if err := c.validateStruct(); err != nil {
		return err
	}

	if err := c.validateRedis(); err != nil {
		return err
	}

	// Mark as validated if we get here
	c.validated = true
	return nil
}

func (c *Config) validateStruct() error {
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Redis == nil {
		return ErrMissingRedis
	}
	return nil
}

// IsValidated reports whether the last Validate call succeeded.
func (c *Config) IsValidated() bool {
	return c.validated
}
