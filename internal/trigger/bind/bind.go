// Package bind decodes and validates trigger request bodies.
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 64 << 10

var (
	// ErrInvalidJSON is returned for bodies that are empty, oversized or not JSON.
	ErrInvalidJSON = errors.New("bind: invalid JSON")
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("bind: validation failed")
)

// ValidationError names the first invalid field with a translated message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func get() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShortMax(v, trans)

		vSvc = &validatorSvc{validate: v, translator: trans}
	})
	return vSvc
}

// Validate checks v against its validate tags.
func Validate(v any) error {
	err := get().validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: fe.Translate(get().translator)}
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Decode unmarshals raw into T and validates it. Unknown fields are ignored because the
// identity provider may add attributes.
func Decode[T any](raw []byte) (T, error) {
	var dst T
	if len(bytes.TrimSpace(raw)) == 0 {
		return dst, fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}
	if err := json.Unmarshal(raw, &dst); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := Validate(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

// ParseJSON reads at most MaxBodyBytes from r and decodes it with Decode.
func ParseJSON[T any](r *http.Request) (T, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(raw) > MaxBodyBytes {
		var zero T
		return zero, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidJSON, MaxBodyBytes)
	}
	return Decode[T](raw)
}

func registerShortMax(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("max", trans,
		func(ut ut.Translator) error {
			return ut.Add("max", "{0} must be at most {1} characters", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("max", fe.Field(), fe.Param())
			return msg
		},
	)
}
