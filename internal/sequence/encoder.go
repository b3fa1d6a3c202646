// Package sequence converts normalized tokens into the fixed-length integer input of the model.
package sequence

import (
	"strconv"
	"strings"

	"spam-detector/internal/apperrors"
)

const (
	// MaxLen is the input length the model was trained with.
	MaxLen = 100
	// KeywordLimit caps the keywords reported per message.
	KeywordLimit = 6
)

// Encoded is a padded id sequence. Position i holds the id of the i-th known token or 0 as padding.
type Encoded []int

// Key identifies the sequence for caching.
func (e Encoded) Key() string {
	buf := make([]byte, 0, len(e)*3)
	for i, id := range e {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}

// Vocabulary is the lookup side of a fitted tokenizer.
type Vocabulary interface {
	TextToSequence(text string) []int
	Contains(word string) bool
}

// Encode joins tokens with a space, maps them to ids and pads or truncates at the end to maxLen.
// Tokens unknown to the vocabulary are omitted rather than mapped to 0.
func Encode(tokens []string, vocab Vocabulary, maxLen int) (Encoded, error) {
	if maxLen <= 0 {
		return nil, apperrors.ErrInvalidMaxLen
	}
	ids := vocab.TextToSequence(strings.Join(tokens, " "))
	out := make(Encoded, maxLen)
	copy(out, ids)
	return out, nil
}

// Keywords returns the tokens known to the vocabulary in their original order, at most limit of them.
func Keywords(tokens []string, vocab Vocabulary, limit int) []string {
	out := make([]string, 0, min(len(tokens), max(limit, 0)))
	for _, t := range tokens {
		if len(out) >= limit {
			break
		}
		if vocab.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}
