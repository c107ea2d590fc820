// Package spelling applies token-level misspelling substitutions.
package spelling

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"query-router/internal/models"
)

var ErrMalformedEntry = errors.New("MALFORMED_SPELLING_ENTRY")

// Dictionary maps a misspelling key to its canonical token. It is read-only
// once built.
type Dictionary struct {
	entries map[string]string
}

// NewDictionary copies entries, lowercasing and stripping keys the same way
// lookup keys are formed.
func NewDictionary(entries map[string]string) Dictionary {
	d := Dictionary{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		key := lookupKey(k)
		v = strings.TrimSpace(v)
		if key == "" || v == "" {
			continue
		}
		d.entries[key] = v
	}
	return d
}

// ParseDictionary reads `misspelling=canonical` lines. Blank lines and lines
// starting with # are ignored.
func ParseDictionary(r io.Reader) (Dictionary, error) {
	entries := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return Dictionary{}, fmt.Errorf("%w: line %d: %q", ErrMalformedEntry, lineNo, line)
		}
		entries[key] = value
	}
	if err := scanner.Err(); err != nil {
		return Dictionary{}, fmt.Errorf("read spelling dictionary: %w", err)
	}
	return NewDictionary(entries), nil
}

// ParseLines is ParseDictionary over already split lines.
func ParseLines(lines []string) (Dictionary, error) {
	return ParseDictionary(strings.NewReader(strings.Join(lines, "\n")))
}

func (d Dictionary) Len() int {
	return len(d.entries)
}

func (d Dictionary) Lookup(token string) (string, bool) {
	v, ok := d.entries[lookupKey(token)]
	return v, ok
}

type Result struct {
	Text    string
	Applied []models.Correction
}

// Correct substitutes every whitespace-delimited token whose lookup key is in
// the dictionary. Each substitution depends only on its own token.
func Correct(text string, dict Dictionary) Result {
	tokens := strings.Fields(text)
	applied := []models.Correction{}
	if len(tokens) == 0 || dict.Len() == 0 {
		return Result{Text: strings.Join(tokens, " "), Applied: applied}
	}

	seen := make(map[models.Correction]bool)
	for i, tok := range tokens {
		canonical, ok := dict.Lookup(tok)
		if !ok {
			continue
		}
		replaced := replaceCore(tok, matchCase(tok, canonical))
		if replaced == tok {
			continue
		}
		tokens[i] = replaced
		c := models.Correction{Original: tok, Corrected: replaced}
		if !seen[c] {
			seen[c] = true
			applied = append(applied, c)
		}
	}

	return Result{Text: strings.Join(tokens, " "), Applied: applied}
}

func lookupKey(token string) string {
	var b strings.Builder
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// replaceCore swaps the alphanumeric core of token, keeping leading and
// trailing punctuation.
func replaceCore(token, replacement string) string {
	start := strings.IndexFunc(token, isAlnum)
	end := strings.LastIndexFunc(token, isAlnum)
	if start < 0 {
		return token
	}
	_, size := utf8.DecodeRuneInString(token[end:])
	return token[:start] + replacement + token[end+size:]
}

func matchCase(original, replacement string) string {
	first, _ := utf8.DecodeRuneInString(strings.TrimLeftFunc(original, func(r rune) bool { return !isAlnum(r) }))
	if !unicode.IsUpper(first) || replacement == "" {
		return replacement
	}
	r, size := utf8.DecodeRuneInString(replacement)
	return string(unicode.ToUpper(r)) + replacement[size:]
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
