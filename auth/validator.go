package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

// validate carries the account schema vocabulary. The custom complexity
// tag demands at least one uppercase, lowercase, digit and symbol rune.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("complexity", func(fl validator.FieldLevel) bool {
		var upper, lower, digit, symbol bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsNumber(r):
				digit = true
			case unicode.IsPunct(r), unicode.IsSymbol(r):
				symbol = true
			}
		}
		return upper && lower && digit && symbol
	})
	return v
}

// RegisterRequest is the account-creation schema.
type RegisterRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=12,max=72,complexity"`
}

func ValidateRegister(req RegisterRequest) error {
	return validate.Struct(req)
}
