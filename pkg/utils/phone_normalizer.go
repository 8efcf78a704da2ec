package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizedPhone contains the normalization output for a contact number
type NormalizedPhone struct {
	E164     string
	Original string
	Valid    bool
}

// PhoneNormalizer converts user-supplied contact numbers into the international
// format the signing provider expects. Normalization is best-effort: an input
// that cannot be normalized is passed through unchanged with Valid=false.
type PhoneNormalizer struct {
	defaultCountryCode string
}

// NewPhoneNormalizer creates a normalizer with a default country code
// (digits only, e.g. "966") applied to national-format numbers.
func NewPhoneNormalizer(defaultCountryCode string) *PhoneNormalizer {
	return &PhoneNormalizer{
		defaultCountryCode: strings.TrimPrefix(defaultCountryCode, "+"),
	}
}

// Normalize performs all normalization steps on a phone number
func (p *PhoneNormalizer) Normalize(original string) *NormalizedPhone {
	result := &NormalizedPhone{
		E164:     original,
		Original: original,
		Valid:    false,
	}

	trimmed := strings.TrimSpace(original)
	if trimmed == "" {
		return result
	}

	hasPlus := strings.HasPrefix(trimmed, "+")
	digits := keepDigits(trimmed)
	if digits == "" {
		return result
	}

	// 00-prefixed numbers are already international
	if !hasPlus && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		hasPlus = true
	}

	if !hasPlus {
		// National format: strip the trunk zero and apply the default country code
		digits = strings.TrimPrefix(digits, "0")
		if p.defaultCountryCode == "" {
			return result
		}
		digits = p.defaultCountryCode + digits
	}

	if len(digits) < 8 || len(digits) > 15 {
		return result
	}

	result.E164 = fmt.Sprintf("+%s", digits)
	result.Valid = true
	return result
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
