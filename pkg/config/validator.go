package config

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Rule checks one aspect of a Config
type Rule func(c *Config) error

// Validate runs every rule and combines all failures into one error
func Validate(c *Config, rules ...Rule) error {
	var err error
	for _, rule := range rules {
		err = multierr.Append(err, rule(c))
	}
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Positive requires an integer field greater than zero
func Positive(name string, get func(*Config) int) Rule {
	return func(c *Config) error {
		if v := get(c); v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
		return nil
	}
}

// NotEmpty requires a non-blank string field
func NotEmpty(name string, get func(*Config) string) Rule {
	return func(c *Config) error {
		if strings.TrimSpace(get(c)) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// OneOf requires a string field to be one of allowed
func OneOf(name string, get func(*Config) string, allowed ...string) Rule {
	return func(c *Config) error {
		v := get(c)
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("%s value %q is not one of: %s", name, v, strings.Join(allowed, ", "))
	}
}

// PathLike requires an absolute URL path
func PathLike(name string, get func(*Config) string) Rule {
	return func(c *Config) error {
		if v := get(c); !strings.HasPrefix(v, "/") {
			return fmt.Errorf("%s must start with /, got %q", name, v)
		}
		return nil
	}
}

// When applies rules only if cond holds
func When(cond func(*Config) bool, rules ...Rule) Rule {
	return func(c *Config) error {
		if !cond(c) {
			return nil
		}
		var err error
		for _, rule := range rules {
			err = multierr.Append(err, rule(c))
		}
		return err
	}
}
