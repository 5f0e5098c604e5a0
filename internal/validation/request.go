package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/temcen/copyink/pkg/models"
)

// NewRequestValidator returns a validator that reports JSON field names
// and knows the enum tags used by models.GenerationRequest.
func NewRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonTagName)

	enums := map[string]func(string) bool{
		"goal":     func(s string) bool { return models.Goal(s).Valid() },
		"industry": func(s string) bool { return models.Industry(s).Valid() },
		"tone":     func(s string) bool { return models.Tone(s).Valid() },
		"path":     func(s string) bool { return models.Path(s).Valid() },
		"length":   func(s string) bool { return models.Length(s).Valid() },
		"deadline": models.ValidDeadline,

		"reply_tone": func(s string) bool { return models.ReplyTone(s).Valid() },
	}
	for tag, valid := range enums {
		valid := valid
		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}

	return v
}

// ValidateGenerationRequest checks only the fields the content type needs.
// The returned details map field names to messages.
func ValidateGenerationRequest(v *validator.Validate, req models.GenerationRequest) (map[string]string, error) {
	if !req.ContentType.Valid() {
		return map[string]string{"contentType": "unknown content type"}, fmt.Errorf("unknown content type %q", req.ContentType)
	}

	err := v.StructPartial(req, req.RequiredFields()...)
	if err == nil {
		return nil, nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	details := make(map[string]string, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fieldPath(fe)
		details[field] = describe(fe)
		messages = append(messages, field+": "+details[field])
	}
	return details, fmt.Errorf("invalid request: %s", strings.Join(messages, "; "))
}

func jsonTagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath drops the root struct name, so nested fields read
// "userKnowledge.services".
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		return path
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "deadline":
		return "must be なし, 今週中 or YYYY/MM/DD"
	case "reply_tone":
		return "must be polite, casual or firm"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("has an unrecognized value %q", fe.Value())
	}
}
