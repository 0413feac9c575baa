package middleware

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/bakery-platform/inventory/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var customValidators = map[string]validator.Func{
	"qty":            validateQuantity,
	"primary_unit":   validatePrimaryUnit,
	"secondary_unit": validateSecondaryUnit,
	"iso_date":       validateISODate,
}

// InitValidator initializes the validator with custom validators and
// installs the same rules on gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})

	return validate
}

func register(v *validator.Validate) {
	for tag, fn := range customValidators {
		_ = v.RegisterValidation(tag, fn)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

var (
	primaryUnits   = map[string]bool{"kg": true, "lit": true, "piece": true, "custom": true}
	secondaryUnits = map[string]bool{"": true, "none": true, "bag": true, "carton": true, "tin": true, "packets": true}
)

// validateQuantity accepts finite, non-negative numbers
func validateQuantity(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
	case reflect.Int, reflect.Int32, reflect.Int64:
		return fl.Field().Int() >= 0
	default:
		return false
	}
}

func validatePrimaryUnit(fl validator.FieldLevel) bool {
	return primaryUnits[strings.ToLower(fl.Field().String())]
}

func validateSecondaryUnit(fl validator.FieldLevel) bool {
	return secondaryUnits[strings.ToLower(fl.Field().String())]
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when " + strings.ReplaceAll(e.Param(), " ", " = ")
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "qty":
		return "must be a non-negative number"
	case "primary_unit":
		return "must be one of: kg, lit, piece, custom"
	case "secondary_unit":
		return "must be one of: none, bag, carton, tin, packets"
	case "iso_date":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// BindQueryAndValidate binds query parameters and validates them
func BindQueryAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest(fmt.Sprintf("invalid query parameters: %v", err))
	}
	return nil
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer middleware sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware ensures proper content type for POST/PUT
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" {
			contentType := c.GetHeader("Content-Type")
			if !strings.HasPrefix(contentType, "application/json") && c.Request.ContentLength > 0 {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json",
					HTTPStatus: 415,
				})
				return
			}
		}
		c.Next()
	}
}
