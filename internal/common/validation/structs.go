package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"app-groups-sync/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

var (
	snsTopicARN = regexp.MustCompile(`^arn:aws[a-zA-Z-]*:sns:[a-z0-9-]+:\d{12}:[A-Za-z0-9_-]{1,256}(\.fifo)?$`)
	gcpTopicID  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_.~+%]{2,254}$`)
)

var (
	defaultValidator *validator.Validate
	once             sync.Once
)

func structValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New()

		// Report env-style names from the `env` tag when present.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("env"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		registerNotifierValidators(v)
		defaultValidator = v
	})
	return defaultValidator
}

func registerNotifierValidators(v *validator.Validate) {
	_ = v.RegisterValidation("sns_topic_arn", func(fl validator.FieldLevel) bool {
		return snsTopicARN.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("gcp_topic_id", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return gcpTopicID.MatchString(id) && !strings.HasPrefix(strings.ToLower(id), "goog")
	})

	_ = v.RegisterValidation("amqp_url", func(fl validator.FieldLevel) bool {
		value := strings.ToLower(fl.Field().String())
		return strings.HasPrefix(value, "amqp://") || strings.HasPrefix(value, "amqps://")
	})
}

// ValidateStruct checks a struct against its `validate` tags and returns a config error
// listing every failed field.
func ValidateStruct(s interface{}) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ConfigError(err.Error())
	}

	messages := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		messages[i] = formatFieldError(fe)
	}
	if len(messages) == 1 {
		return errors.ConfigError(messages[0])
	}
	return errors.ConfigError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "sns_topic_arn":
		return fmt.Sprintf("%s must be an SNS topic ARN", err.Field())
	case "gcp_topic_id":
		return fmt.Sprintf("%s must be a valid Pub/Sub topic id", err.Field())
	case "amqp_url":
		return fmt.Sprintf("%s must be an amqp:// or amqps:// URL", err.Field())
	default:
		return fmt.Sprintf("%s failed validation: %s", err.Field(), err.Tag())
	}
}
