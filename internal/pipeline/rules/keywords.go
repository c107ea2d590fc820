package rules

import (
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

// Tokens splits text into lowercase letter runs and digit runs, so
// "contract123" yields "contract" and "123".
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// KeywordSet is an immutable vocabulary of single words and multi-word phrases.
type KeywordSet struct {
	words   map[string]struct{}
	phrases [][]string
}

func NewKeywordSet(entries []string) KeywordSet {
	ks := KeywordSet{words: make(map[string]struct{})}
	seenPhrase := make(map[string]bool)
	for _, e := range entries {
		toks := Tokens(e)
		switch len(toks) {
		case 0:
			continue
		case 1:
			ks.words[toks[0]] = struct{}{}
		default:
			key := strings.Join(toks, " ")
			if !seenPhrase[key] {
				seenPhrase[key] = true
				ks.phrases = append(ks.phrases, toks)
			}
		}
	}
	sort.Slice(ks.phrases, func(i, j int) bool {
		return strings.Join(ks.phrases[i], " ") < strings.Join(ks.phrases[j], " ")
	})
	return ks
}

// ParseKeywordLines builds a set from configuration lines. Lines starting
// with # are comments; a line may hold several comma separated entries.
func ParseKeywordLines(lines []string) KeywordSet {
	var entries []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				entries = append(entries, part)
			}
		}
	}
	return NewKeywordSet(entries)
}

func (k KeywordSet) Len() int {
	return len(k.words) + len(k.phrases)
}

// Count returns how many tokens are covered by keyword occurrences.
func (k KeywordSet) Count(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if _, ok := k.words[t]; ok {
			n++
		}
	}
	for _, p := range k.phrases {
		for i := 0; i+len(p) <= len(tokens); i++ {
			if equalTokens(tokens[i:i+len(p)], p) {
				n += len(p)
			}
		}
	}
	return n
}

func (k KeywordSet) Contains(tokens []string) bool {
	return k.Count(tokens) > 0
}

// Entries lists the vocabulary in sorted order.
func (k KeywordSet) Entries() []string {
	out := make([]string, 0, k.Len())
	for w := range k.words {
		out = append(out, w)
	}
	for _, p := range k.phrases {
		out = append(out, strings.Join(p, " "))
	}
	sort.Strings(out)
	return out
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Default vocabularies used when a source does not provide a list.
var (
	DefaultPartsKeywords = []string{
		"part", "parts", "component", "components", "item", "items",
		"part number", "bom", "inventory", "sku",
	}
	DefaultCreateKeywords = []string{
		"create", "add", "generate", "make", "build", "insert", "register", "set up",
	}
	DefaultContractKeywords = []string{
		"contract", "contracts", "agreement", "agreements", "award", "awards",
	}
	DefaultPastTenseMarkers = []string{
		"created", "added", "made", "generated",
	}
)
