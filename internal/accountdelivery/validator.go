package accountdelivery

import (
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxAccountNumberLen is the longest account number accepted in requests.
const MaxAccountNumberLen = 34

// ValidAccountNumber validates that the field holds a plausible account number.
// Numbers are opaque: any non-empty string of up to MaxAccountNumberLen runes
// without spaces or control characters.
var ValidAccountNumber validator.Func = func(fl validator.FieldLevel) bool {
	n, ok := fl.Field().Interface().(string)
	if !ok || n == "" || !utf8.ValidString(n) || utf8.RuneCountInString(n) > MaxAccountNumberLen {
		return false
	}

	for _, r := range n {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}

	return true
}
