package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	emailSimple = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpCode     = regexp.MustCompile(`^[0-9]{6}$`)
	hasLower    = regexp.MustCompile(`[a-z]`)
	hasUpper    = regexp.MustCompile(`[A-Z]`)
	hasDigit    = regexp.MustCompile(`[0-9]`)
	hasSpecial  = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Errors maps a JSON field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns one message, preferring the given field order.
func (e Errors) First(order ...string) string {
	for _, f := range order {
		if msg, ok := e[f]; ok {
			return msg
		}
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return ""
	}
	return e[fields[0]]
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) bool {
	var verr Errors
	return errors.As(err, &verr)
}

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		mustRegister(v, "email_simple", emailSimple)
		mustRegister(v, "otp", otpCode)
		mustRegister(v, "lower", hasLower)
		mustRegister(v, "upper", hasUpper)
		mustRegister(v, "digit", hasDigit)
		mustRegister(v, "special", hasSpecial)
		if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		}); err != nil {
			panic(err)
		}

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// Struct validates s and returns Errors (or nil). Only the first failing
// rule of each field is reported.
func Struct(s interface{}) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

// IsEmail applies the simple email pattern used by the admin console.
func IsEmail(s string) bool {
	return emailSimple.MatchString(s)
}
