// Package vocab holds the token to integer mapping the model was trained with.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/artifact"
)

// DefaultFilters are the characters the Keras tokenizer replaces with the split character.
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

const artifactName = "vocabulary"

// Vocabulary maps normalized tokens to positive IDs. ID 0 is never assigned.
// A loaded Vocabulary is read-only and safe for concurrent use.
type Vocabulary struct {
	index         map[string]int
	filters       string
	lower         bool
	split         string
	numWords      int
	normalization string
}

type tokenizerDocument struct {
	ClassName     string          `json:"class_name"`
	Config        tokenizerConfig `json:"config"`
	Normalization string          `json:"normalization,omitempty"`
}

type tokenizerConfig struct {
	NumWords      *int    `json:"num_words"`
	Filters       *string `json:"filters"`
	Lower         *bool   `json:"lower"`
	Split         *string `json:"split"`
	CharLevel     bool    `json:"char_level"`
	OOVToken      *string `json:"oov_token"`
	DocumentCount int     `json:"document_count"`
	WordCounts    string  `json:"word_counts,omitempty"`
	WordDocs      string  `json:"word_docs,omitempty"`
	IndexDocs     string  `json:"index_docs,omitempty"`
	IndexWord     string  `json:"index_word,omitempty"`
	WordIndex     string  `json:"word_index"`
}

// Load reads a Keras tokenizer document. Any defect is reported as a ModelLoadError.
func Load(path string) (*Vocabulary, error) {
	r, err := artifact.Open(path)
	if err != nil {
		return nil, apperrors.NewModelLoadError(artifactName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewModelLoadError(artifactName, fmt.Errorf("failed to read %s: %w", path, err))
	}
	return Parse(data)
}

// Parse decodes a tokenizer document held in memory.
func Parse(data []byte) (*Vocabulary, error) {
	var doc tokenizerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewModelLoadError(artifactName, err)
	}
	v, err := fromDocument(&doc)
	if err != nil {
		return nil, apperrors.NewModelLoadError(artifactName, err)
	}
	return v, nil
}

func fromDocument(doc *tokenizerDocument) (*Vocabulary, error) {
	if doc.ClassName != "" && doc.ClassName != "Tokenizer" {
		return nil, fmt.Errorf("unexpected class_name %q", doc.ClassName)
	}
	cfg := doc.Config
	if cfg.CharLevel {
		return nil, errors.New("char_level tokenizers are not supported")
	}
	if cfg.OOVToken != nil {
		return nil, fmt.Errorf("oov_token %q is set, unknown words must be dropped", *cfg.OOVToken)
	}
	if cfg.WordIndex == "" {
		return nil, errors.New("word_index is missing")
	}

	var index map[string]int
	if err := json.Unmarshal([]byte(cfg.WordIndex), &index); err != nil {
		return nil, fmt.Errorf("failed to decode word_index: %w", err)
	}

	seen := make(map[int]string, len(index))
	for word, id := range index {
		if id <= 0 {
			return nil, fmt.Errorf("word %q has non-positive id %d", word, id)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("id %d assigned to both %q and %q", id, prev, word)
		}
		seen[id] = word
	}

	v := &Vocabulary{
		index:         index,
		filters:       DefaultFilters,
		lower:         true,
		split:         " ",
		normalization: doc.Normalization,
	}
	if cfg.Filters != nil {
		v.filters = *cfg.Filters
	}
	if cfg.Lower != nil {
		v.lower = *cfg.Lower
	}
	if cfg.Split != nil {
		if *cfg.Split == "" {
			return nil, errors.New("split must not be empty")
		}
		v.split = *cfg.Split
	}
	if cfg.NumWords != nil {
		if *cfg.NumWords < 0 {
			return nil, fmt.Errorf("num_words must not be negative, got %d", *cfg.NumWords)
		}
		v.numWords = *cfg.NumWords
	}
	return v, nil
}

// ID returns the id of word. Unknown words report false; ID 0 is never returned for a known word.
func (v *Vocabulary) ID(word string) (int, bool) {
	id, ok := v.index[word]
	return id, ok
}

func (v *Vocabulary) Contains(word string) bool {
	_, ok := v.index[word]
	return ok
}

// Size is the number of known words. The embedding table of a compatible model has Size()+1 rows.
func (v *Vocabulary) Size() int { return len(v.index) }

// Normalization is the normalization fingerprint recorded when the vocabulary was fitted, if any.
func (v *Vocabulary) Normalization() string { return v.normalization }

// TextToWordSequence splits text the way the tokenizer did when it was fitted.
func (v *Vocabulary) TextToWordSequence(text string) []string {
	return textToWordSequence(text, v.filters, v.lower, v.split)
}

// TextToSequence maps text to ids. Unknown words and ids beyond num_words are dropped.
func (v *Vocabulary) TextToSequence(text string) []int {
	words := v.TextToWordSequence(text)
	ids := make([]int, 0, len(words))
	for _, w := range words {
		id, ok := v.index[w]
		if !ok {
			continue
		}
		if v.numWords > 0 && id >= v.numWords {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func textToWordSequence(text, filters string, lower bool, split string) []string {
	if lower {
		text = strings.ToLower(text)
	}
	if filters != "" {
		var b strings.Builder
		b.Grow(len(text))
		for _, r := range text {
			if strings.ContainsRune(filters, r) {
				b.WriteString(split)
				continue
			}
			b.WriteRune(r)
		}
		text = b.String()
	}
	parts := strings.Split(text, split)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
