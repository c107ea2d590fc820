// Package snapshot holds the immutable routing configuration and the store
// that swaps it atomically on reload.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"query-router/internal/pipeline/extract"
	"query-router/internal/pipeline/intent"
	"query-router/internal/pipeline/normalize"
	"query-router/internal/pipeline/rules"
	"query-router/internal/pipeline/spelling"
)

// Configuration keys read from a Source.
const (
	KeyPartsKeywords    = "parts_keywords"
	KeyCreateKeywords   = "create_keywords"
	KeyContractKeywords = "contract_keywords"
	KeyPastTenseMarkers = "past_tense_markers"
	KeySpelling         = "spelling_corrections"
)

// Keys lists every key a loader reads.
var Keys = []string{KeyPartsKeywords, KeyCreateKeywords, KeyContractKeywords, KeyPastTenseMarkers, KeySpelling}

var ErrKeyNotFound = errors.New("CONFIG_KEY_NOT_FOUND")

// Snapshot is never mutated after construction.
type Snapshot struct {
	Version    string
	LoadedAt   time.Time
	Source     string
	Rules      rules.RuleSet
	Vocabulary intent.Vocabulary
	Dictionary spelling.Dictionary
	Normalize  normalize.Options

	extractor *extract.Extractor
}

func New(rs rules.RuleSet, vocab intent.Vocabulary, dict spelling.Dictionary, norm normalize.Options) *Snapshot {
	return &Snapshot{
		Version:    uuid.NewString(),
		LoadedAt:   time.Now().UTC(),
		Source:     "static",
		Rules:      rs,
		Vocabulary: vocab,
		Dictionary: dict,
		Normalize:  norm,
		extractor:  extract.New(rs),
	}
}

// Default builds a snapshot from the built-in vocabularies with an empty
// spelling dictionary.
func Default() *Snapshot {
	return New(rules.Default(), DefaultVocabulary(), spelling.NewDictionary(nil), normalize.DefaultOptions())
}

func DefaultVocabulary() intent.Vocabulary {
	return intent.Vocabulary{
		Parts:     rules.NewKeywordSet(rules.DefaultPartsKeywords),
		Create:    rules.NewKeywordSet(rules.DefaultCreateKeywords),
		Contract:  rules.NewKeywordSet(rules.DefaultContractKeywords),
		PastTense: rules.NewKeywordSet(rules.DefaultPastTenseMarkers),
	}
}

// Extractor returns the extractor compiled for this snapshot's rule set.
func (s *Snapshot) Extractor() *extract.Extractor {
	return s.extractor
}

// Source provides the raw lines of one configuration key.
type Source interface {
	Name() string
	ReadLines(ctx context.Context, key string) ([]string, error)
}

// Loader builds snapshots from a Source.
type Loader struct {
	Source    Source
	RuleSet   string
	Normalize normalize.Options
}

// Load reads every key and builds a new snapshot. Parts, create and spelling
// keys are required; contract keywords and past-tense markers fall back to
// built-in lists.
func (l Loader) Load(ctx context.Context) (*Snapshot, error) {
	if l.Source == nil {
		return nil, fmt.Errorf("snapshot loader has no source")
	}
	rs, err := rules.Lookup(l.RuleSet)
	if err != nil {
		return nil, err
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	parts, err := l.readKeywords(ctx, KeyPartsKeywords, nil)
	if err != nil {
		return nil, err
	}
	create, err := l.readKeywords(ctx, KeyCreateKeywords, nil)
	if err != nil {
		return nil, err
	}
	contract, err := l.readKeywords(ctx, KeyContractKeywords, rules.DefaultContractKeywords)
	if err != nil {
		return nil, err
	}
	past, err := l.readKeywords(ctx, KeyPastTenseMarkers, rules.DefaultPastTenseMarkers)
	if err != nil {
		return nil, err
	}

	lines, err := l.Source.ReadLines(ctx, KeySpelling)
	if err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", KeySpelling, l.Source.Name(), err)
	}
	dict, err := spelling.ParseLines(lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s from %s: %w", KeySpelling, l.Source.Name(), err)
	}

	snap := New(rs, intent.Vocabulary{
		Parts:     parts,
		Create:    create,
		Contract:  contract,
		PastTense: past,
	}, dict, l.Normalize)
	snap.Source = l.Source.Name()
	return snap, nil
}

func (l Loader) readKeywords(ctx context.Context, key string, fallback []string) (rules.KeywordSet, error) {
	lines, err := l.Source.ReadLines(ctx, key)
	if errors.Is(err, ErrKeyNotFound) && fallback != nil {
		return rules.NewKeywordSet(fallback), nil
	}
	if err != nil {
		return rules.KeywordSet{}, fmt.Errorf("read %s from %s: %w", key, l.Source.Name(), err)
	}
	set := rules.ParseKeywordLines(lines)
	if set.Len() == 0 && fallback == nil {
		return rules.KeywordSet{}, fmt.Errorf("%s from %s is empty", key, l.Source.Name())
	}
	return set, nil
}
