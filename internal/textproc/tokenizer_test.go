package textproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello, world!", []string{"hello", ",", "world", "!"}},
		{"i can't wait.", []string{"i", "ca", "n't", "wait", "."}},
		{"i'm here.", []string{"i", "'m", "here", "."}},
		{"cannot", []string{"can", "not"}},
		{"gonna win", []string{"gon", "na", "win"}},
		{"call (now)", []string{"call", "(", "now", ")"}},
		{"wait -- what", []string{"wait", "--", "what"}},
		{"price: $50", []string{"price", ":", "$", "50"}},
		{"1,000 dollars", []string{"1,000", "dollars"}},
		{"really...", []string{"really", "..."}},
		{`he said "win" now`, []string{"he", "said", "``", "win", "''", "now"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, TokenizeWords(tt.input))
		})
	}
}

func TestSplitSentences(t *testing.T) {
	require.Equal(t,
		[]string{"Hi there.", "How are you?", "Fine!"},
		SplitSentences("Hi there. How are you? Fine!"))
	require.Equal(t, []string{"no terminal punctuation"}, SplitSentences("  no terminal punctuation  "))
	require.Equal(t,
		[]string{"win now.", "call me!", `he said "go."`, "e.g.", "this"},
		SplitSentences(`win now. call me! he said "go." e.g. this`))
	require.Equal(t, []string{"3.5 percent"}, SplitSentences("3.5 percent"))
	require.Empty(t, SplitSentences(""))
	require.Empty(t, SplitSentences("   "))
}

func TestTokenize_AcrossSentences(t *testing.T) {
	require.Equal(t,
		[]string{"win", "now", ".", "call", "me", "!"},
		Tokenize("win now. call me!"))
	require.Empty(t, Tokenize(""))
}
