// Package phone turns free-form buyer phone numbers into the fixed set of
// representations the order store has used over time.
package phone

import (
	"strings"
	"unicode"
)

const countryCode = "62"

// formats lists stored representations in lookup order. The first one is the
// canonical form used for writes.
var formats = []func(national string) string{
	func(n string) string { return countryCode + n },
	func(n string) string { return "0" + n },
	func(n string) string { return "+" + countryCode + n },
}

// Digits strips everything but ASCII digits.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// National drops one leading country code or trunk zero.
func National(digits string) string {
	switch {
	case strings.HasPrefix(digits, countryCode):
		return digits[len(countryCode):]
	case strings.HasPrefix(digits, "0"):
		return digits[1:]
	}
	return digits
}

// Forms returns the ordered, de-duplicated lookup forms for raw, ending with the
// trimmed input itself. Input without digits comes back unchanged as the only form.
// A bare prefix such as "0" or "62" has no national part; its digits lead instead.
func Forms(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	digits := Digits(trimmed)
	if digits == "" {
		return []string{raw}
	}
	national := National(digits)

	out := make([]string, 0, len(formats)+1)
	seen := make(map[string]struct{}, len(formats)+1)
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if national == "" {
		add(digits)
	} else {
		for _, format := range formats {
			add(format(national))
		}
	}
	add(trimmed)
	return out
}

// Canonical is the single form written to the store.
func Canonical(raw string) string {
	return Forms(raw)[0]
}

// FirstMatch tries each form of raw in order and stops at the first hit or the first error.
func FirstMatch[T any](raw string, try func(form string) (T, bool, error)) (T, bool, error) {
	var zero T
	for _, form := range Forms(raw) {
		v, ok, err := try(form)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return zero, false, nil
}
