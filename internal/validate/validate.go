// Package validate checks service input against validator struct tags and
// converts failures to *sms.ValidationError with English messages that name
// fields by their JSON names.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dekarrin/sms"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once       sync.Once
	v          *validator.Validate
	translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
	isoDateTag  = "isodate"
	monthTag    = "month"
)

func setup() {
	once.Do(func() {
		v = validator.New()

		// english error messages
		_en := en.New()
		uni := ut.New(_en, _en)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, translator)

		// use JSON tag names for errors instead of Go struct names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation(notBlankTag, notBlankValidation)
		_ = v.RegisterValidation(isoDateTag, isoDateValidation)
		_ = v.RegisterValidation(monthTag, monthValidation)

		registerCustomTranslation(notBlankTag, "{0} cannot be blank")
		registerCustomTranslation(isoDateTag, "{0} must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
		registerCustomTranslation(monthTag, "{0} must be a month in the form YYYY-MM")
	})
}

// RegisterValidation adds a custom validation tag with the English message
// shown when it fails. In text, "{0}" is replaced with the field name.
func RegisterValidation(tag string, fn validator.Func, text string) error {
	setup()
	if err := v.RegisterValidation(tag, fn); err != nil {
		return err
	}
	registerCustomTranslation(tag, text)
	return nil
}

// RegisterStructValidation adds a struct-level validation for the types of the
// given values.
func RegisterStructValidation(fn validator.StructLevelFunc, types ...any) {
	setup()
	v.RegisterStructValidation(fn, types...)
}

func registerCustomTranslation(tag, text string) {
	registerFn := func(trans ut.Translator) error {
		return trans.Add(tag, text, true)
	}
	translateFn := func(trans ut.Translator, fe validator.FieldError) string {
		msg, err := trans.T(fe.Tag(), fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}
	_ = v.RegisterTranslation(tag, translator, registerFn, translateFn)
}

// Struct validates s. It returns nil if s passes, or a *sms.ValidationError
// with one FieldError per failed field otherwise.
func Struct(s any) error {
	setup()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return sms.NewValidationError(err)
	}

	fields := make([]sms.FieldError, len(vErrs))
	msgs := make([]string, len(vErrs))
	for i, fe := range vErrs {
		fields[i] = sms.FieldError{
			Field: fieldPath(fe),
			Error: fe.Translate(translator),
		}
		msgs[i] = fields[i].Error
	}

	return sms.NewValidationError(errors.New(strings.Join(msgs, "; ")), fields...)
}

// NotBlank checks a patch field: it returns a *sms.ValidationError if v is set
// to a blank string. A nil v passes.
func NotBlank(field string, v *string) error {
	if v != nil && strings.TrimSpace(*v) == "" {
		return sms.Validationf(field, "cannot be blank")
	}
	return nil
}

// fieldPath gives the namespace of the field without the name of the top-level
// struct, e.g. "items[0].amount".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func isoDateValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if str == "" {
		return true
	}
	_, err := parseDate(str)
	return err == nil
}

func monthValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := parseMonth(str)
	return err == nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func parseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", s)
}
