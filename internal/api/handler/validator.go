package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// passwordSpecials are the symbols accepted by the password strength rule.
const passwordSpecials = "#$%&*@"

// birthdateLayouts are tried in order when parsing a birthdate.
var birthdateLayouts = []string{time.DateOnly, time.RFC3339}

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v      *validator.Validate
	region string
}

// NewValidator returns an echoValidator ready to be assigned to
// echo.Echo.Validator. region is the default region used to parse phone
// numbers written without an international prefix.
func NewValidator(region string) *echoValidator {
	ev := &echoValidator{v: validator.New(), region: strings.ToUpper(region)}
	ev.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = ev.v.RegisterValidation("password", validatePassword)
	_ = ev.v.RegisterValidation("phone", ev.validatePhone)
	_ = ev.v.RegisterValidation("birthdate", validateBirthdate)
	return ev
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// NormalisePhone formats a valid phone number as E.164. It returns the input
// unchanged when it cannot be parsed.
func (ev *echoValidator) NormalisePhone(raw string) string {
	num, err := phonenumbers.Parse(raw, ev.region)
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func (ev *echoValidator) validatePhone(fl validator.FieldLevel) bool {
	num, err := phonenumbers.Parse(fl.Field().String(), ev.region)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}

// validatePassword requires at least 8 characters drawn from letters, digits
// and passwordSpecials, including one upper-case letter, one digit and one
// special symbol.
func validatePassword(fl validator.FieldLevel) bool {
	pwd := fl.Field().String()
	if len(pwd) < 8 {
		return false
	}
	var upper, digit, special bool
	for _, r := range pwd {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		case unicode.IsLower(r):
		default:
			return false
		}
	}
	return upper && digit && special
}

func validateBirthdate(fl validator.FieldLevel) bool {
	_, err := parseBirthdate(fl.Field().String())
	return err == nil
}

// parseBirthdate accepts YYYY-MM-DD or RFC 3339. Dates in the future are
// rejected.
func parseBirthdate(s string) (time.Time, error) {
	for _, layout := range birthdateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.After(time.Now()) {
			return time.Time{}, errors.New("birthdate is in the future")
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised birthdate %q", s)
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "password":
		return field + " must have at least 8 characters, an upper-case letter, a digit and one of " + passwordSpecials
	case "phone":
		return field + " must be a valid phone number"
	case "birthdate":
		return field + " must be a past date formatted as YYYY-MM-DD"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
