package main

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"spam-detector/internal/textproc"
	"spam-detector/internal/vocab"
)

const corpus = `,label,text,label_num
0,ham,"Subject: lunch at noon?",0
1,spam,"Subject: FREE prizes, call now!",1
2,ham,"Subject: see you at the office",0
3,Spam,"Subject: claim your free prize",1
`

func TestReadCorpus(t *testing.T) {
	examples, err := readCorpus(strings.NewReader(corpus))
	require.NoError(t, err)
	require.Len(t, examples, 4)
	require.Equal(t, example{label: "spam", text: "Subject: FREE prizes, call now!"}, examples[1])
	require.Equal(t, "spam", examples[3].label)

	_, err = readCorpus(strings.NewReader("id,body\n1,hello\n"))
	require.Error(t, err)

	_, err = readCorpus(strings.NewReader(""))
	require.Error(t, err)
}

func TestBalanceLabels(t *testing.T) {
	examples := []example{
		{"ham", "a"}, {"ham", "b"}, {"ham", "c"}, {"spam", "d"},
	}
	got := balanceLabels(examples, rand.New(rand.NewSource(42)))
	require.Len(t, got, 2)
	require.Equal(t, "spam", got[1].label)
	require.Equal(t, "ham", got[0].label)

	onlySpam := []example{{"spam", "x"}, {"spam", "y"}}
	require.Len(t, balanceLabels(onlySpam, rand.New(rand.NewSource(1))), 2)
}

func TestFit_WritesLoadableVocabulary(t *testing.T) {
	examples, err := readCorpus(strings.NewReader(corpus))
	require.NoError(t, err)
	profile, err := textproc.NewProfile(textproc.ProfileConfig{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tokenizer.json.gz")
	fitter := fit(examples, profile)
	require.NoError(t, fitter.Save(path, profile.Fingerprint()))

	v, err := vocab.Load(path)
	require.NoError(t, err)
	require.Equal(t, profile.Fingerprint(), v.Normalization())

	id, ok := v.ID("subject")
	require.True(t, ok)
	require.Equal(t, 1, id)
	require.True(t, v.Contains("free"))
	require.False(t, v.Contains("now"))
}
