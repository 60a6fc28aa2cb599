package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrModelIDEmpty is returned when the model ID is empty or whitespace-only after trim.
var ErrModelIDEmpty = errors.New("model id is required")

// ErrModelIDTooLong is returned when the model ID exceeds the maximum length.
var ErrModelIDTooLong = errors.New("model id too long")

// ErrModelIDInvalidChars is returned when the model ID contains disallowed characters.
var ErrModelIDInvalidChars = errors.New("model id contains invalid characters")

// ValidateModelID trims the input, enforces maxLen (in runes, 0 = unlimited) and restricts
// it to letters, digits and the separators upstreams use in model IDs
// ("llama3.2:3b", "openai/gpt-4o", "org/model@rev", "model_v1+q4").
func ValidateModelID(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrModelIDEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrModelIDTooLong
	}
	for _, c := range r {
		if !isAllowedIDRune(c) {
			return "", ErrModelIDInvalidChars
		}
	}
	return s, nil
}

func isAllowedIDRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-', '_', '.', ':', '/', '@', '+':
		return true
	}
	return false
}
