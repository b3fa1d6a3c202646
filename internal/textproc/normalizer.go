// Package textproc turns raw message text into the cleaned token stream the vocabulary was fitted on.
//
// The same Profile must drive both vocabulary fitting and serving: any drift between the two
// silently changes the integer sequences the model sees.
package textproc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ASCIIPunctuation is the punctuation set of the fitting procedure.
const ASCIIPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

const (
	// PunctuationPure drops tokens made only of punctuation characters.
	PunctuationPure = "pure"
	// PunctuationSubstring drops tokens that occur as a substring of the punctuation string.
	PunctuationSubstring = "substring"
)

// ProfileConfig is the serializable form of a Profile.
type ProfileConfig struct {
	Language        string
	PunctuationRule string
	Lemmatizer      string
	LexiconPath     string
}

// Profile is the normalization contract shared by vocabulary fitting and serving.
type Profile struct {
	language        string
	stopwords       map[string]struct{}
	punctuation     string
	punctuationRule string
	lemmatizer      Lemmatizer
	fingerprint     string
}

// NewProfile builds a profile from configuration, loading the lemma lexicon when one is configured.
func NewProfile(cfg ProfileConfig) (*Profile, error) {
	var lexicon map[string]struct{}
	if cfg.LexiconPath != "" {
		var err error
		lexicon, err = LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
	}
	return NewProfileWithLexicon(cfg, lexicon)
}

// NewProfileWithLexicon is NewProfile with an already loaded lexicon.
func NewProfileWithLexicon(cfg ProfileConfig, lexicon map[string]struct{}) (*Profile, error) {
	language := cfg.Language
	if language == "" {
		language = "english"
	}
	stopwords, ok := Stopwords(language)
	if !ok {
		return nil, fmt.Errorf("no stopword list for language %q", language)
	}

	rule := cfg.PunctuationRule
	switch rule {
	case "":
		rule = PunctuationPure
	case PunctuationPure, PunctuationSubstring:
	default:
		return nil, fmt.Errorf("unknown punctuation rule %q", rule)
	}

	lem, err := NewLemmatizer(cfg.Lemmatizer, lexicon)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		language:        language,
		stopwords:       stopwords,
		punctuation:     ASCIIPunctuation,
		punctuationRule: rule,
		lemmatizer:      lem,
	}
	p.fingerprint = p.computeFingerprint(lexicon)
	return p, nil
}

// Normalize lower-cases, tokenizes, drops stopwords and punctuation, then lemmatizes.
// Token order is preserved. Empty input yields an empty, non-nil slice.
func (p *Profile) Normalize(raw string) []string {
	tokens := Tokenize(strings.ToLower(raw))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if p.IsStopword(t) {
			continue
		}
		if p.IsPunctuation(t) {
			continue
		}
		out = append(out, p.lemmatizer.Lemmatize(t))
	}
	return out
}

func (p *Profile) IsStopword(token string) bool {
	_, ok := p.stopwords[token]
	return ok
}

func (p *Profile) IsPunctuation(token string) bool {
	if token == "" {
		return false
	}
	if p.punctuationRule == PunctuationSubstring {
		return strings.Contains(p.punctuation, token)
	}
	for _, r := range token {
		if !strings.ContainsRune(p.punctuation, r) {
			return false
		}
	}
	return true
}

// Fingerprint identifies the profile. Vocabularies fitted under a different fingerprint are rejected.
func (p *Profile) Fingerprint() string { return p.fingerprint }

func (p *Profile) String() string {
	return fmt.Sprintf("%s/%s/%s", p.language, p.punctuationRule, p.lemmatizer.Name())
}

func (p *Profile) computeFingerprint(lexicon map[string]struct{}) string {
	h := sha256.New()
	fmt.Fprintf(h, "lang=%s\npunct=%s\nrule=%s\nlemma=%s\n", p.language, p.punctuation, p.punctuationRule, p.lemmatizer.Name())
	for _, w := range sortedKeys(p.stopwords) {
		fmt.Fprintf(h, "stop=%s\n", w)
	}
	for _, w := range sortedKeys(lexicon) {
		fmt.Fprintf(h, "lex=%s\n", w)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
