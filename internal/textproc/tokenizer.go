package textproc

import (
	"strings"

	"github.com/dlclark/regexp2"
)

type rewrite struct {
	re   *regexp2.Regexp
	with string
}

func rule(pattern, with string) rewrite {
	return rewrite{re: regexp2.MustCompile(pattern, regexp2.None), with: with}
}

// Penn Treebank word tokenization rules. The order matters.
var (
	startingQuotes = []rewrite{
		rule("([«“‘„]|[`]+)", " ${1} "),
		rule(`^"`, "``"),
		rule("(``)", " ${1} "),
		rule(`([ (\[{<])("|'{2})`, "${1} `` "),
		rule(`(?i)(')(?!re|ve|ll|m|t|s|d|n)(\w)\b`, "${1} ${2}"),
	}

	punctuation = []rewrite{
		rule(`([^.])(\.)([\])}>"']*)\s*$`, "${1} ${2} ${3} "),
		rule(`([:,])([^\d])`, " ${1} ${2}"),
		rule(`([:,])$`, " ${1} "),
		rule(`\.{2,}`, " ${0} "),
		rule(`[;@#$%&]`, " ${0} "),
		rule(`[?!]`, " ${0} "),
		rule(`([^'])' `, "${1} ' "),
		rule(`[*]`, " ${0} "),
	}

	parensBrackets = rule(`[\]\[(){}<>]`, " ${0} ")
	doubleDashes   = rule(`--`, " -- ")

	endingQuotes = []rewrite{
		rule("([»”’])", " ${1} "),
		rule(`''`, " '' "),
		rule(`"`, " '' "),
		rule(`([^' ])('[sS]|'[mM]|'[dD]|') `, "${1} ${2} "),
		rule(`([^' ])('ll|'LL|'re|'RE|'ve|'VE|n't|N'T) `, "${1} ${2} "),
	}

	contractions = []rewrite{
		rule(`(?i)\b(can)(not)\b`, " ${1} ${2} "),
		rule(`(?i)\b(d)('ye)\b`, " ${1} ${2} "),
		rule(`(?i)\b(gim)(me)\b`, " ${1} ${2} "),
		rule(`(?i)\b(gon)(na)\b`, " ${1} ${2} "),
		rule(`(?i)\b(got)(ta)\b`, " ${1} ${2} "),
		rule(`(?i)\b(lem)(me)\b`, " ${1} ${2} "),
		rule(`(?i)\b(more)('n)\b`, " ${1} ${2} "),
		rule(`(?i)\b(wan)(na)(?=\s)`, " ${1} ${2} "),
		rule(`(?i) ('t)(is)\b`, " ${1} ${2} "),
		rule(`(?i) ('t)(was)\b`, " ${1} ${2} "),
	}

	sentenceBoundary = regexp2.MustCompile(`(?<=[.!?]["')\]]*)\s+`, regexp2.None)
)

func apply(text string, rules ...rewrite) string {
	for _, r := range rules {
		out, err := r.re.Replace(text, r.with, -1, -1)
		if err != nil {
			// Only a match timeout can fail here and none is configured.
			continue
		}
		text = out
	}
	return text
}

// SplitSentences cuts text after terminal punctuation, optionally closed by quotes or brackets, followed
// by whitespace. The next word's case is not consulted since callers pass lower-cased text.
func SplitSentences(text string) []string {
	// regexp2 reports match positions in runes, not bytes.
	runes := []rune(text)
	var sentences []string
	start := 0
	m, _ := sentenceBoundary.FindRunesMatch(runes)
	for m != nil {
		if s := strings.TrimSpace(string(runes[start:m.Index])); s != "" {
			sentences = append(sentences, s)
		}
		start = m.Index + m.Length
		m, _ = sentenceBoundary.FindNextMatch(m)
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// TokenizeWords splits one sentence into Treebank word tokens.
func TokenizeWords(sentence string) []string {
	text := apply(sentence, startingQuotes...)
	text = apply(text, punctuation...)
	text = apply(text, parensBrackets, doubleDashes)
	text = " " + text + " "
	text = apply(text, endingQuotes...)
	text = apply(text, contractions...)
	return strings.Fields(text)
}

// Tokenize runs sentence splitting then word tokenization over the whole text.
func Tokenize(text string) []string {
	var tokens []string
	for _, s := range SplitSentences(text) {
		tokens = append(tokens, TokenizeWords(s)...)
	}
	return tokens
}
