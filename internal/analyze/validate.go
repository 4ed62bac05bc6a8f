package analyze

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json names (rsi, macd_hist) instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
}

func isFinite(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		v := field.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	return true
}

// ValidateSnapshot checks that every required reading is present and inside
// its domain. Missing fields yield *ValidationError, out-of-domain values
// yield *RangeError; several problems are joined into one error.
func ValidateSnapshot(s models.IndicatorSnapshot) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Field: "snapshot", Reason: err.Error()}
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fromFieldError(fe))
	}
	return errors.Join(errs...)
}

func fromFieldError(fe validator.FieldError) error {
	if fe.Tag() == "required" {
		return &ValidationError{Field: fe.Field(), Reason: "is required"}
	}

	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}

	value := fe.Value()
	if v := reflect.ValueOf(value); v.Kind() == reflect.Ptr && !v.IsNil() {
		value = v.Elem().Interface()
	}

	return &RangeError{Field: fe.Field(), Value: value, Rule: rule}
}
