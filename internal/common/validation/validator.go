package validation

import (
	"fmt"
	"net/url"
	"strings"

	"app-groups-sync/internal/common/errors"
)

// Validator accumulates configuration errors so every problem is reported at once.
type Validator struct {
	errors []error
	prefix string
}

// NewValidatorWithPrefix creates a validator whose messages are prefixed with the
// component name. An empty prefix leaves messages as they are.
func NewValidatorWithPrefix(prefix string) *Validator {
	return &Validator{
		errors: make([]error, 0),
		prefix: prefix,
	}
}

// RequireString validates that a string is not empty
func (v *Validator) RequireString(value, name string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.addError("%s is required", name)
	}
	return v
}

// RequirePositive validates that an integer is positive
func (v *Validator) RequirePositive(value int, name string) *Validator {
	if value <= 0 {
		v.addError("%s must be positive", name)
	}
	return v
}

// RequireURL validates that a string is an absolute URL with one of the given schemes.
// No schemes means any scheme is accepted.
func (v *Validator) RequireURL(value, name string, schemes ...string) *Validator {
	if value == "" {
		v.addError("%s is required", name)
		return v
	}

	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		v.addError("%s must be an absolute URL", name)
		return v
	}

	if len(schemes) == 0 {
		return v
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return v
		}
	}
	v.addError("%s must use one of the schemes: %s", name, strings.Join(schemes, ", "))
	return v
}

// RequireOneOf validates that a value is one of the allowed values
func (v *Validator) RequireOneOf(value string, allowed []string, name string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.addError("%s must be one of: %s", name, strings.Join(allowed, ", "))
	return v
}

// RequireRange validates that a value is within a range
func (v *Validator) RequireRange(value, min, max int, name string) *Validator {
	if value < min || value > max {
		v.addError("%s must be between %d and %d", name, min, max)
	}
	return v
}

// Validate runs a custom validation function
func (v *Validator) Validate(fn func() error) *Validator {
	if err := fn(); err != nil {
		v.addError("%s", err.Error())
	}
	return v
}

// ValidateIf runs a validation function only if the condition is true
func (v *Validator) ValidateIf(condition bool, fn func() error) *Validator {
	if condition {
		return v.Validate(fn)
	}
	return v
}

func (v *Validator) addError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if v.prefix != "" {
		msg = fmt.Sprintf("%s: %s", v.prefix, msg)
	}
	v.errors = append(v.errors, fmt.Errorf("%s", msg))
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a config error combining every failure, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	if len(v.errors) == 1 {
		return errors.ConfigError(v.errors[0].Error())
	}

	parts := make([]string, len(v.errors))
	for i, err := range v.errors {
		parts[i] = err.Error()
	}

	return errors.ConfigError(fmt.Sprintf("validation failed: %s", strings.Join(parts, "; ")))
}
