// Package validator wraps go-playground/validator with the field naming and
// custom rules shared by request payloads and service inputs.
package validator

import (
	stdErrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PasswordRule bounds staff passwords. bcrypt ignores input past 72 bytes.
const PasswordRule = "required,min=6,max=72"

var (
	once     sync.Once
	validate *validator.Validate

	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-.]{5,19}$`)
)

// FieldError is one failed rule on one field, keyed by the JSON field name.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// ValidationErrors collects every rule a value failed.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	for i, fe := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field)
		b.WriteString(" failed on ")
		b.WriteString(fe.Tag)
		if fe.Param != "" {
			b.WriteString("=")
			b.WriteString(fe.Param)
		}
	}
	return b.String()
}

// Has reports whether field failed tag.
func (v ValidationErrors) Has(field, tag string) bool {
	for _, fe := range v {
		if fe.Field == field && fe.Tag == tag {
			return true
		}
	}
	return false
}

// ValidateStruct applies the validate tags of s.
func ValidateStruct(s any) error {
	return convert(instance().Struct(s))
}

// ValidateVar checks a single value against a tag expression such as "required,email".
func ValidateVar(field any, tag string) error {
	return convert(instance().Var(field, tag))
}

// RegisterValidation adds a custom rule under tag.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

func convert(err error) error {
	var ve validator.ValidationErrors
	if !stdErrors.As(err, &ve) {
		return err
	}

	failures := make(ValidationErrors, len(ve))
	for i, fe := range ve {
		failures[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return failures
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		// notblank rejects values made only of whitespace.
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		// phone accepts loosely formatted numbers; an empty value is left to omitempty.
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	})
	return validate
}
