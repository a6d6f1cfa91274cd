package quarry

import (
	"strings"
	"unicode"
)

// Masker applies content-aware partial masking to outbound text.
type Masker interface {
	Mask(value string) string
}

// MaskerFunc adapts a function to the Masker interface.
type MaskerFunc func(value string) string

// Mask calls f.
func (f MaskerFunc) Mask(value string) string {
	return f(value)
}

// SSNMasker keeps the last four digits: 123-45-6789 -> ***-**-6789.
func SSNMasker() Masker {
	return MaskerFunc(func(v string) string {
		last, ok := lastDigits(v, 4)
		if !ok {
			return stars(v)
		}
		return "***-**-" + last
	})
}

// EmailMasker keeps the first character and the domain:
// alice@example.com -> a***@example.com.
func EmailMasker() Masker {
	return MaskerFunc(func(v string) string {
		at := strings.LastIndex(v, "@")
		if at < 1 {
			return stars(v)
		}
		return v[:1] + "***" + v[at:]
	})
}

// PhoneMasker keeps the last four digits: (555) 123-4567 -> (***) ***-4567.
func PhoneMasker() Masker {
	return MaskerFunc(func(v string) string {
		last, ok := lastDigits(v, 4)
		if !ok {
			return stars(v)
		}
		switch n := countDigits(v); {
		case strings.HasPrefix(v, "(") && n >= 10:
			return "(***) ***-" + last
		case n >= 10:
			return "***-***-" + last
		}
		return "***-" + last
	})
}

// CardMasker keeps the last four digits of a card number, preserving
// grouping separators: 4111-1111-1111-1111 -> ****-****-****-1111.
func CardMasker() Masker {
	return MaskerFunc(func(v string) string {
		n := countDigits(v)
		if n < 4 {
			return stars(v)
		}
		var b strings.Builder
		seen := 0
		for _, r := range v {
			if !unicode.IsDigit(r) {
				if r == ' ' || r == '-' {
					b.WriteRune(r)
				}
				continue
			}
			seen++
			if seen > n-4 {
				b.WriteRune(r)
			} else {
				b.WriteByte('*')
			}
		}
		return b.String()
	})
}

// NameMasker keeps the first letter of each word: John Smith -> J*** S****.
func NameMasker() Masker {
	return MaskerFunc(func(v string) string {
		words := strings.Fields(v)
		for i, w := range words {
			r := []rune(w)
			words[i] = string(r[0]) + strings.Repeat("*", len(r)-1)
		}
		return strings.Join(words, " ")
	})
}

func builtinMaskers() map[MaskType]Masker {
	return map[MaskType]Masker{
		MaskSSN:   SSNMasker(),
		MaskEmail: EmailMasker(),
		MaskPhone: PhoneMasker(),
		MaskCard:  CardMasker(),
		MaskName:  NameMasker(),
	}
}

func stars(v string) string {
	return strings.Repeat("*", len([]rune(v)))
}

func countDigits(v string) int {
	n := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// lastDigits returns the final n digits of v, or false if v has fewer.
func lastDigits(v string, n int) (string, bool) {
	var digits []rune
	for _, r := range v {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < n {
		return "", false
	}
	return string(digits[len(digits)-n:]), true
}
