// Command vocabfit fits a Keras-compatible tokenizer vocabulary from a labelled CSV corpus.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"spam-detector/internal/config"
	"spam-detector/internal/logger"
	"spam-detector/internal/service"
	"spam-detector/internal/textproc"
	"spam-detector/internal/vocab"
)

type example struct {
	label string
	text  string
}

func main() {
	var (
		configPath = flag.String("config", "configs/config.yml", "config file providing the normalization profile")
		input      = flag.String("input", "spam_ham_dataset.csv", "CSV corpus with label and text columns")
		output     = flag.String("output", "", "vocabulary file to write, .gz compresses (default: model.vocabulary_path)")
		balance    = flag.Bool("balance", true, "downsample ham to the number of spam examples")
		seed       = flag.Int64("seed", 42, "sampling seed used by -balance")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if *output == "" {
		*output = cfg.Model.VocabularyPath
	}

	profile, err := service.NewProfile(cfg.Model.Normalization)
	if err != nil {
		log.Fatal("Invalid normalization profile", zap.Error(err))
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal("Failed to open corpus", zap.Error(err))
	}
	examples, err := readCorpus(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read corpus", zap.String("input", *input), zap.Error(err))
	}
	if *balance {
		examples = balanceLabels(examples, rand.New(rand.NewSource(*seed)))
	}

	fitter := fit(examples, profile)
	if err := fitter.Save(*output, profile.Fingerprint()); err != nil {
		log.Fatal("Failed to write vocabulary", zap.Error(err))
	}

	log.Info("Vocabulary written",
		zap.String("output", *output),
		zap.Int("documents", fitter.DocumentCount()),
		zap.Int("words", fitter.Vocabulary("").Size()),
		zap.String("normalization", profile.String()),
		zap.String("fingerprint", profile.Fingerprint()))
}

// readCorpus reads a CSV whose header names a label and a text column. Other columns are ignored.
func readCorpus(r io.Reader) ([]example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	labelCol, textCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "label":
			labelCol = i
		case "text":
			textCol = i
		}
	}
	if labelCol < 0 || textCol < 0 {
		return nil, errors.New("header must contain label and text columns")
	}

	var out []example
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if labelCol >= len(row) || textCol >= len(row) {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, max(labelCol, textCol)+1, len(row))
		}
		out = append(out, example{
			label: strings.ToLower(strings.TrimSpace(row[labelCol])),
			text:  row[textCol],
		})
	}
	return out, nil
}

// balanceLabels keeps every spam example and a random sample of ham of the same size.
func balanceLabels(examples []example, rng *rand.Rand) []example {
	var spam, ham []example
	for _, e := range examples {
		if e.label == "spam" {
			spam = append(spam, e)
		} else {
			ham = append(ham, e)
		}
	}
	if len(ham) > len(spam) {
		rng.Shuffle(len(ham), func(i, j int) { ham[i], ham[j] = ham[j], ham[i] })
		ham = ham[:len(spam)]
	}
	return append(ham, spam...)
}

func fit(examples []example, profile *textproc.Profile) *vocab.Fitter {
	fitter := vocab.NewFitter()
	for _, e := range examples {
		fitter.FitText(strings.Join(profile.Normalize(e.text), " "))
	}
	return fitter
}
