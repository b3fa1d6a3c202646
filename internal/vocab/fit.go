package vocab

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"spam-detector/internal/artifact"
)

// Fitter accumulates word statistics over a corpus and produces a Vocabulary.
// Ordering matches the Keras tokenizer: count descending, ties in first-seen order, ids from 1.
type Fitter struct {
	filters       string
	lower         bool
	split         string
	counts        map[string]int
	docs          map[string]int
	order         []string
	documentCount int
}

func NewFitter() *Fitter {
	return &Fitter{
		filters: DefaultFilters,
		lower:   true,
		split:   " ",
		counts:  make(map[string]int),
		docs:    make(map[string]int),
	}
}

// FitText adds one document to the statistics.
func (f *Fitter) FitText(text string) {
	f.documentCount++
	words := textToWordSequence(text, f.filters, f.lower, f.split)
	inDoc := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, ok := f.counts[w]; !ok {
			f.order = append(f.order, w)
		}
		f.counts[w]++
		inDoc[w] = struct{}{}
	}
	for w := range inDoc {
		f.docs[w]++
	}
}

// Fit adds every text as a document.
func (f *Fitter) Fit(texts []string) {
	for _, t := range texts {
		f.FitText(t)
	}
}

// DocumentCount is the number of documents fitted so far.
func (f *Fitter) DocumentCount() int { return f.documentCount }

func (f *Fitter) ranked() []string {
	words := make([]string, len(f.order))
	copy(words, f.order)
	sort.SliceStable(words, func(i, j int) bool {
		return f.counts[words[i]] > f.counts[words[j]]
	})
	return words
}

// Vocabulary returns the fitted vocabulary tagged with the given normalization fingerprint.
func (f *Fitter) Vocabulary(normalization string) *Vocabulary {
	words := f.ranked()
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i + 1
	}
	return &Vocabulary{
		index:         index,
		filters:       f.filters,
		lower:         f.lower,
		split:         f.split,
		normalization: normalization,
	}
}

// Save writes the fitted vocabulary as a Keras tokenizer document.
func (f *Fitter) Save(path, normalization string) error {
	doc, err := f.document(normalization)
	if err != nil {
		return err
	}
	return artifact.EncodeJSON(path, doc)
}

func (f *Fitter) document(normalization string) (*tokenizerDocument, error) {
	words := f.ranked()
	wordIndex := make(map[string]int, len(words))
	indexWord := make(map[string]string, len(words))
	indexDocs := make(map[string]int, len(words))
	for i, w := range words {
		id := i + 1
		wordIndex[w] = id
		indexWord[strconv.Itoa(id)] = w
		indexDocs[strconv.Itoa(id)] = f.docs[w]
	}

	encoded := make([]string, 0, 5)
	for _, v := range []any{f.counts, f.docs, indexDocs, indexWord, wordIndex} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tokenizer state: %w", err)
		}
		encoded = append(encoded, string(data))
	}

	filters, lower, split := f.filters, f.lower, f.split
	return &tokenizerDocument{
		ClassName: "Tokenizer",
		Config: tokenizerConfig{
			Filters:       &filters,
			Lower:         &lower,
			Split:         &split,
			DocumentCount: f.documentCount,
			WordCounts:    encoded[0],
			WordDocs:      encoded[1],
			IndexDocs:     encoded[2],
			IndexWord:     encoded[3],
			WordIndex:     encoded[4],
		},
		Normalization: normalization,
	}, nil
}
