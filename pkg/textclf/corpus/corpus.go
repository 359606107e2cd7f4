// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package corpus loads labeled text corpora, tokenizes them into vocabulary ids and feeds them as
// right-padded batches to the textclf models.
//
// A corpus on disk is a directory with one sub-directory per class, each holding one "*.txt" file per
// example. The IMDB reviews dataset, with classes "neg" and "pos", can be downloaded with DownloadIMDB.
package corpus

import (
	"encoding/gob"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// IMDB dataset location and layout.
const (
	IMDBDownloadURL  = "https://ai.stanford.edu/~amaas/data/sentiment/aclImdb_v1.tar.gz"
	IMDBLocalTarFile = "aclImdb_v1.tar.gz"
	IMDBTarHash      = "c40f74a18d3b61f90feba1e17730e0d38e8b97c05fde7008942e91923d1658fe"
	IMDBLocalDir     = "aclImdb"
	BinaryFile       = "textclf_corpus.bin"
)

// IMDBClasses are the labeled sub-directories of the IMDB train and test splits, in label order.
var IMDBClasses = []string{"neg", "pos"}

// Example is one labeled text, with its content already converted to vocabulary ids.
type Example struct {
	Label   int
	Content []int
}

// String renders the example content as tokens.
func (e *Example) String(vocab *Vocab) string {
	parts := make([]string, 0, len(e.Content))
	for _, id := range e.Content {
		parts = append(parts, vocab.Token(id))
	}
	return "[" + strings.Join(parts, "] [") + "]"
}

// Corpus holds the vocabulary and the train/test examples of a labeled text collection.
type Corpus struct {
	Tokenizer string
	Classes   []string
	Vocab     *Vocab
	Train     []*Example
	Test      []*Example
}

// Encode converts a text to vocabulary ids using tokenizer. Tokens not in the vocabulary are mapped to UnknownID.
func Encode(tokenizer Tokenizer, vocab *Vocab, text string) []int {
	tokens := tokenizer.Tokenize(text)
	ids := make([]int, len(tokens))
	for ii, token := range tokens {
		ids[ii] = vocab.Lookup(token)
	}
	return ids
}

// ListClasses returns the sorted names of the sub-directories of dir: each is one class.
func ListClasses(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list classes in %s", dir)
	}
	var classes []string
	for _, entry := range entries {
		if entry.IsDir() {
			classes = append(classes, entry.Name())
		}
	}
	slices.Sort(classes)
	if len(classes) == 0 {
		return nil, errors.Errorf("no class sub-directories found in %s", dir)
	}
	return classes, nil
}

// LoadDir reads the examples of dir: one "*.txt" file per example under the sub-directory of its class.
// The label of an example is the index of its class in classes. If classes is nil, the sorted list of
// sub-directories is used.
//
// Tokens are registered in vocab. Examples without any token are skipped.
func LoadDir(dir string, classes []string, tokenizer Tokenizer, vocab *Vocab) ([]*Example, error) {
	if classes == nil {
		var err error
		classes, err = ListClasses(dir)
		if err != nil {
			return nil, err
		}
	}
	var examples []*Example
	for label, class := range classes {
		classDir := path.Join(dir, class)
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read examples from %s", classDir)
		}
		var skipped int
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".txt") {
				continue
			}
			contents, err := os.ReadFile(path.Join(classDir, f.Name()))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read example %s from %s", f.Name(), classDir)
			}
			tokens := tokenizer.Tokenize(string(contents))
			if len(tokens) == 0 {
				skipped++
				continue
			}
			e := &Example{Label: label, Content: make([]int, len(tokens))}
			for ii, token := range tokens {
				e.Content[ii] = vocab.RegisterToken(token)
			}
			examples = append(examples, e)
		}
		if skipped > 0 {
			klog.V(1).Infof("skipped %d empty examples in %s", skipped, classDir)
		}
	}
	return examples, nil
}

// Load reads the "train" and "test" splits under baseDir, and sorts the vocabulary by frequency.
func Load(baseDir string, classes []string, tokenizer Tokenizer) (*Corpus, error) {
	if classes == nil {
		var err error
		classes, err = ListClasses(path.Join(baseDir, "train"))
		if err != nil {
			return nil, err
		}
	}
	c := &Corpus{
		Tokenizer: tokenizer.Name(),
		Classes:   classes,
		Vocab:     NewVocab(),
	}
	var err error
	c.Train, err = LoadDir(path.Join(baseDir, "train"), classes, tokenizer, c.Vocab)
	if err != nil {
		return nil, err
	}
	c.Test, err = LoadDir(path.Join(baseDir, "test"), classes, tokenizer, c.Vocab)
	if err != nil {
		return nil, err
	}

	oldIDToNewID := c.Vocab.SortByFrequency()
	for _, examples := range [][]*Example{c.Train, c.Test} {
		for _, e := range examples {
			for ii, oldID := range e.Content {
				e.Content[ii] = oldIDToNewID[oldID]
			}
		}
	}
	return c, nil
}

// LimitVocab keeps only the maxVocab most frequent entries of the vocabulary (see Vocab.Truncate), and
// replaces the ids of the dropped tokens in the examples by UnknownID. The vocabulary must be sorted by
// frequency, as Load does.
func (c *Corpus) LimitVocab(maxVocab int) {
	c.Vocab.Truncate(maxVocab)
	size := c.Vocab.Size()
	for _, examples := range [][]*Example{c.Train, c.Test} {
		for _, e := range examples {
			for ii, id := range e.Content {
				if id >= size {
					e.Content[ii] = UnknownID
				}
			}
		}
	}
}

// LoadCached is like Load, but it reuses the binary version of the corpus saved in baseDir if it was
// generated with the same tokenizer, and saves it otherwise.
func LoadCached(baseDir string, classes []string, tokenizer Tokenizer) (*Corpus, error) {
	binPath := path.Join(baseDir, BinaryFile)
	c, err := loadBinary(binPath, tokenizer.Name())
	if err != nil {
		return nil, err
	}
	if c != nil {
		logLoaded(binPath, c)
		return c, nil
	}
	c, err = Load(baseDir, classes, tokenizer)
	if err != nil {
		return nil, err
	}
	if err := saveBinary(binPath, c); err != nil {
		return nil, err
	}
	logLoaded(baseDir, c)
	return c, nil
}

// DownloadIMDB downloads the IMDB reviews dataset to baseDir, un-tars it, and loads its labeled
// "neg"/"pos" examples. The tokenized corpus is cached in a binary file, so later calls are fast.
func DownloadIMDB(baseDir string, tokenizer Tokenizer) (*Corpus, error) {
	baseDir, err := fsutil.ReplaceTildeInDir(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %q", baseDir)
	}
	imdbDir := path.Join(baseDir, IMDBLocalDir)
	c, err := loadBinary(path.Join(imdbDir, BinaryFile), tokenizer.Name())
	if err != nil {
		return nil, err
	}
	if c != nil {
		logLoaded(imdbDir, c)
		return c, nil
	}
	if err := DownloadAndUntarIfMissing(IMDBDownloadURL, baseDir, IMDBLocalTarFile, IMDBLocalDir, IMDBTarHash); err != nil {
		return nil, errors.WithMessage(err, "corpus.DownloadIMDB failed")
	}
	return LoadCached(imdbDir, IMDBClasses, tokenizer)
}

func logLoaded(from string, c *Corpus) {
	klog.Infof("Loaded corpus from %q: %s train and %s test examples, %s unique tokens, %s tokens in total.",
		from, humanize.Comma(int64(len(c.Train))), humanize.Comma(int64(len(c.Test))),
		humanize.Comma(int64(c.Vocab.Size())), humanize.Comma(int64(c.Vocab.TotalCount)))
}

// loadBinary returns nil if the file doesn't exist or was generated by a different tokenizer.
func loadBinary(binPath, tokenizerName string) (*Corpus, error) {
	f, err := os.Open(binPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", binPath)
	}
	defer func() { _ = f.Close() }()

	dec := gob.NewDecoder(f)
	var c Corpus
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", binPath)
	}
	if c.Tokenizer != tokenizerName {
		klog.V(1).Infof("ignoring %q: generated with tokenizer %q, want %q", binPath, c.Tokenizer, tokenizerName)
		return nil, nil
	}
	return &c, nil
}

func saveBinary(binPath string, c *Corpus) error {
	f, err := os.Create(binPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", binPath)
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
	}()
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrapf(err, "failed to write %q", binPath)
	}
	err = f.Close()
	closed = true
	return errors.Wrapf(err, "failed to close %q", binPath)
}
