// Package normalize cleans raw query text before spelling correction.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Options controls which characters survive normalization.
type Options struct {
	// StripDisallowed replaces every rune outside the allow-list with a space.
	StripDisallowed bool
	// AllowUnicodeLetters keeps letters and digits from any script. When false
	// only ASCII alphanumerics are allowed.
	AllowUnicodeLetters bool
	// ExtraAllowed lists punctuation that is kept alongside alphanumerics.
	ExtraAllowed string
}

func DefaultOptions() Options {
	return Options{
		StripDisallowed: true,
		ExtraAllowed:    "-_",
	}
}

// Normalize lowercases text, optionally strips characters outside the
// allow-list, collapses whitespace runs and trims. It is idempotent.
func Normalize(raw string, opts Options) string {
	if raw == "" {
		return ""
	}

	text := norm.NFC.String(strings.ToLower(norm.NFC.String(raw)))

	if opts.StripDisallowed {
		text = strings.Map(func(r rune) rune {
			if opts.allowed(r) {
				return r
			}
			return ' '
		}, text)
	}

	return strings.Join(strings.Fields(text), " ")
}

func (o Options) allowed(r rune) bool {
	switch {
	case unicode.IsSpace(r):
		return true
	case r < unicode.MaxASCII && (('a' <= r && r <= 'z') || ('0' <= r && r <= '9')):
		return true
	case o.AllowUnicodeLetters && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)):
		return true
	case strings.ContainsRune(o.ExtraAllowed, r):
		return true
	}
	return false
}
