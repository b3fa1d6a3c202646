package textproc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// Lemmatizer reduces a token to its base form.
type Lemmatizer interface {
	Lemmatize(token string) string
	Name() string
}

const (
	LemmatizerWordNet = "wordnet"
	LemmatizerPorter  = "porter"
	LemmatizerNone    = "none"
)

// NewLemmatizer returns the lemmatizer registered under name. lexicon is only used by "wordnet".
func NewLemmatizer(name string, lexicon map[string]struct{}) (Lemmatizer, error) {
	switch name {
	case LemmatizerWordNet, "":
		return &nounLemmatizer{lexicon: lexicon}, nil
	case LemmatizerPorter:
		return porterLemmatizer{}, nil
	case LemmatizerNone:
		return identityLemmatizer{}, nil
	default:
		return nil, fmt.Errorf("unknown lemmatizer %q", name)
	}
}

// Noun detachment rules in WordNet morphy order.
var nounSuffixes = []struct{ suffix, replace string }{
	{"s", ""},
	{"ses", "s"},
	{"ves", "f"},
	{"xes", "x"},
	{"zes", "z"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"men", "man"},
	{"ies", "y"},
}

// Irregular plurals from the WordNet noun exception list, mapped to their WordNet lemma.
var irregularNouns = map[string]string{
	"children":  "child",
	"men":       "man",
	"women":     "woman",
	"feet":      "foot",
	"teeth":     "tooth",
	"geese":     "goose",
	"mice":      "mouse",
	"lice":      "louse",
	"oxen":      "ox",
	"data":      "datum",
	"criteria":  "criterion",
	"phenomena": "phenomenon",
	"indices":   "index",
	"matrices":  "matrix",
	"analyses":  "analysis",
	"crises":    "crisis",
	"theses":    "thesis",
	"wives":     "wife",
	"knives":    "knife",
	"lives":     "life",
	"leaves":    "leaf",
	"halves":    "half",
	"wolves":    "wolf",
	"shelves":   "shelf",
	"thieves":   "thief",
}

// Exception forms that are WordNet lemmas themselves. Morphy keeps the shorter of the two.
var lemmaExceptions = map[string]struct{}{
	"data": {},
}

// nounLemmatizer follows WordNet noun morphology. With a lexicon every candidate form is checked
// against known lemmas and the shortest is kept. Without one only irregular plurals are mapped.
type nounLemmatizer struct {
	lexicon map[string]struct{}
}

func (l *nounLemmatizer) Name() string { return LemmatizerWordNet }

func (l *nounLemmatizer) Lemmatize(token string) string {
	if len(l.lexicon) > 0 {
		return l.fromLexicon(token)
	}
	if _, ok := lemmaExceptions[token]; ok {
		return token
	}
	if base, ok := irregularNouns[token]; ok {
		return base
	}
	return token
}

func (l *nounLemmatizer) fromLexicon(token string) string {
	forms := []string{token}
	if base, ok := irregularNouns[token]; ok {
		// Exception entries replace the detachment rules.
		forms = append(forms, base)
	} else {
		for _, r := range nounSuffixes {
			if strings.HasSuffix(token, r.suffix) {
				forms = append(forms, strings.TrimSuffix(token, r.suffix)+r.replace)
			}
		}
	}

	best := ""
	for _, f := range forms {
		if _, ok := l.lexicon[f]; !ok {
			continue
		}
		if best == "" || len(f) < len(best) {
			best = f
		}
	}
	if best == "" {
		return token
	}
	return best
}

type porterLemmatizer struct{}

func (porterLemmatizer) Name() string { return LemmatizerPorter }

func (porterLemmatizer) Lemmatize(token string) string {
	return porterstemmer.StemString(token)
}

type identityLemmatizer struct{}

func (identityLemmatizer) Name() string { return LemmatizerNone }

func (identityLemmatizer) Lemmatize(token string) string { return token }

// LoadLexicon reads one lemma per line. Blank lines and '#' comments are skipped.
func LoadLexicon(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon: %w", err)
	}
	defer f.Close()
	return ReadLexicon(f)
}

func ReadLexicon(r io.Reader) (map[string]struct{}, error) {
	lexicon := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lexicon[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return lexicon, nil
}
