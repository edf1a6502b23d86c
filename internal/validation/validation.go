package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/fedutinova/drivescribe/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json field names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateProcessRequest returns the first problem with req as a
// common.ValidationError, in field declaration order.
func ValidateProcessRequest(req *models.ProcessRequest) error {
	err := instance().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return common.ValidationError{Field: "request", Message: err.Error()}
	}

	fe := fieldErrs[0]
	return common.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: %s", fe.Field())
	case "url":
		return fmt.Sprintf("Invalid field: %s must be a valid URL", fe.Field())
	case "http_url":
		return fmt.Sprintf("Invalid field: %s must be a valid http(s) URL", fe.Field())
	default:
		return fmt.Sprintf("Invalid field: %s", fe.Field())
	}
}
