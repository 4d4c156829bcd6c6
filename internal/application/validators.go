package application

import (
	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-chateval/infrastructure/llm"
	"github.com/ahrav/go-chateval/internal/domain"
)

// validate checks configuration structs. It carries the custom tags below.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("modelspec", validateModelSpec)
	_ = v.RegisterValidation("language", validateLanguage)
	return v
}

// validateModelSpec accepts "provider" or "provider/model" for a known
// provider.
func validateModelSpec(fl validator.FieldLevel) bool {
	_, _, err := llm.ParseModelSpec(fl.Field().String())
	return err == nil
}

// validateLanguage accepts the prompt languages, case-insensitively, and
// the empty string.
func validateLanguage(fl validator.FieldLevel) bool {
	_, err := domain.ParseLanguage(fl.Field().String())
	return err == nil
}
