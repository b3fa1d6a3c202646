package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNounLemmatizer_WithoutLexicon(t *testing.T) {
	lem, err := NewLemmatizer(LemmatizerWordNet, nil)
	require.NoError(t, err)

	tests := map[string]string{
		// Regular forms are left alone: no suffix is stripped without a lexicon to confirm it.
		"always":   "always",
		"news":     "news",
		"series":   "series",
		"perhaps":  "perhaps",
		"towards":  "towards",
		"offers":   "offers",
		"glass":    "glass",
		"data":     "data",
		"children": "child",
		"men":      "man",
		"mice":     "mouse",
		"wives":    "wife",
		"win":      "win",
	}
	for input, expected := range tests {
		require.Equal(t, expected, lem.Lemmatize(input), "input=%s", input)
	}
}

func TestNounLemmatizer_Lexicon(t *testing.T) {
	lexicon, err := ReadLexicon(strings.NewReader(
		"# nouns\ncookie\ncooky\noffer\n\nBox\ndata\ndatum\nmouse\nnews\nseries\nclass\n"))
	require.NoError(t, err)
	require.Len(t, lexicon, 11)

	lem, err := NewLemmatizer(LemmatizerWordNet, lexicon)
	require.NoError(t, err)

	tests := map[string]string{
		// NLTK keeps the shortest lexicon candidate, so "cookies" gives "cooky" rather than "cookie".
		"cookies": "cooky",
		"offers":  "offer",
		"offer":   "offer",
		"boxes":   "box",
		"classes": "class",
		// Both the exception form and the token are lemmas: the shorter wins.
		"data":    "data",
		// Detached forms that are not lemmas are discarded.
		"news":    "news",
		"series":  "series",
		"mice":    "mouse",
		// Not in the lexicon in any form.
		"glasses": "glasses",
		"always":  "always",
		"perhaps": "perhaps",
		"oxen":    "oxen",
	}
	for input, expected := range tests {
		require.Equal(t, expected, lem.Lemmatize(input), "input=%s", input)
	}
}

func TestPorterAndIdentityLemmatizers(t *testing.T) {
	porter, err := NewLemmatizer(LemmatizerPorter, nil)
	require.NoError(t, err)
	require.Equal(t, "run", porter.Lemmatize("running"))
	require.Equal(t, LemmatizerPorter, porter.Name())

	none, err := NewLemmatizer(LemmatizerNone, nil)
	require.NoError(t, err)
	require.Equal(t, "running", none.Lemmatize("running"))
}
