// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer splits a text into tokens, which are later converted to ids by a Vocab.
type Tokenizer interface {
	// Name identifies the tokenizer and its configuration: cached corpora are only reused by a tokenizer
	// with the same name.
	Name() string

	// Tokenize splits text into tokens.
	Tokenize(text string) []string
}

// reWords captures what are considered word tokens.
var reWords = regexp.MustCompile("[[:word:]]+")

// WordTokenizer splits texts in words (sequences of letters, digits and underscores). HTML line breaks
// are treated as spaces.
type WordTokenizer struct {
	// IncludeSeparators indicates whether it should create tokens out of the separators (commas, dots, etc).
	IncludeSeparators bool

	// CaseSensitive indicates whether tokens should be case-sensitive.
	CaseSensitive bool
}

// Name implements Tokenizer.
func (w WordTokenizer) Name() string {
	var parts []string
	parts = append(parts, "words")
	if w.IncludeSeparators {
		parts = append(parts, "separators")
	}
	if w.CaseSensitive {
		parts = append(parts, "cased")
	}
	return strings.Join(parts, "+")
}

// Tokenize implements Tokenizer.
func (w WordTokenizer) Tokenize(text string) []string {
	contents := bytes.ReplaceAll([]byte(text), []byte("<br />"), []byte(" "))
	partsIndices := reWords.FindAllIndex(contents, -1)
	tokens := make([]string, 0, len(partsIndices))
	last := 0
	for _, indices := range partsIndices {
		start, end := indices[0], indices[1]
		if w.IncludeSeparators && start > last {
			sep := strings.TrimSpace(string(contents[last:start]))
			if sep != "" {
				tokens = append(tokens, sep)
			}
		}
		token := string(contents[start:end])
		if !w.CaseSensitive {
			token = strings.ToLower(token)
		}
		tokens = append(tokens, token)
		last = end
	}
	if w.IncludeSeparators && last < len(contents) {
		if sep := strings.TrimSpace(string(contents[last:])); sep != "" {
			tokens = append(tokens, sep)
		}
	}
	return tokens
}

// TikTokenizer splits texts in the sub-word pieces of a BPE encoding from tiktoken (e.g. "cl100k_base").
// The pieces are then registered in a Vocab like words, so only the pieces seen in the corpus use ids.
type TikTokenizer struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikTokenizer loads the tiktoken encoding named encodingName.
func NewTikTokenizer(encodingName string) (*TikTokenizer, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tiktoken encoding %q", encodingName)
	}
	return &TikTokenizer{encoding: encoding, name: encodingName}, nil
}

// Name implements Tokenizer.
func (t *TikTokenizer) Name() string { return "tiktoken:" + t.name }

// Tokenize implements Tokenizer.
func (t *TikTokenizer) Tokenize(text string) []string {
	text = strings.ReplaceAll(text, "<br />", " ")
	ids := t.encoding.Encode(text, nil, nil)
	pieces := make([]string, len(ids))
	for ii, id := range ids {
		pieces[ii] = t.encoding.Decode([]int{id})
	}
	return pieces
}

// TokenizerFromName creates a tokenizer from its configuration name: "words" (optionally followed by
// "+separators" and/or "+cased") or "tiktoken:<encoding>".
func TokenizerFromName(name string) (Tokenizer, error) {
	if encodingName, found := strings.CutPrefix(name, "tiktoken:"); found {
		return NewTikTokenizer(encodingName)
	}
	parts := strings.Split(name, "+")
	if parts[0] != "words" {
		return nil, errors.Errorf("unknown tokenizer %q: valid values are \"words[+separators][+cased]\" or \"tiktoken:<encoding>\"", name)
	}
	var w WordTokenizer
	for _, option := range parts[1:] {
		switch option {
		case "separators":
			w.IncludeSeparators = true
		case "cased":
			w.CaseSensitive = true
		default:
			return nil, errors.Errorf("unknown option %q for tokenizer %q", option, name)
		}
	}
	return w, nil
}
