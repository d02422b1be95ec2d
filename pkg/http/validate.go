package http

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

// symbolPattern accepts exchange tickers such as MSFT, BRK-B, ^GSPC and EURUSD=X.
var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=]{1,20}$`)

// choices holds the option lists of tags added with RegisterChoice.
var (
	choicesMu sync.RWMutex
	choices   = map[string][]string{}
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})
}

// RegisterChoice adds a validation tag accepting exactly the given options,
// so catalogues such as look-back periods live in one place instead of being
// repeated in oneof tags. Call it from init.
func RegisterChoice(tag string, options []string) {
	opts := append([]string(nil), options...)
	choicesMu.Lock()
	choices[tag] = opts
	choicesMu.Unlock()
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, o := range opts {
			if o == v {
				return true
			}
		}
		return false
	})
}

func choiceOptions(tag string) ([]string, bool) {
	choicesMu.RLock()
	defer choicesMu.RUnlock()
	opts, ok := choices[tag]
	return opts, ok
}

// ValidateVar validates a single value against a tag, e.g. for path params.
func ValidateVar(field string, v interface{}, tag string) []ValidationError {
	err := validate.Var(v, tag)
	if err == nil {
		return nil
	}
	ve := toValidationErrors(err)
	for i := range ve {
		ve[i].Field = field
		ve[i].Message = field + ve[i].Message
	}
	return ve
}

// ReadAndValidateRequest binds the body, applies defaults and validates.
// It returns nil or a []ValidationError.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		errs := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: errorMessage(fe),
				Params:  errorParams(fe),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_UNKNOWN", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	if opts, ok := choiceOptions(fe.Tag()); ok {
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(opts, ", "))
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "symbol":
		return fmt.Sprintf("%s must be a ticker symbol of at most 20 characters", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func errorParams(fe validator.FieldError) map[string]interface{} {
	if opts, ok := choiceOptions(fe.Tag()); ok {
		return map[string]interface{}{"options": opts}
	}
	if fe.Tag() == "oneof" {
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
