// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTikTokenizer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping: tiktoken downloads its encoding on first use")
	}
	tok, err := TokenizerFromName("tiktoken:cl100k_base")
	if err != nil {
		t.Skipf("tiktoken encoding not available: %+v", err)
	}
	assert.Equal(t, "tiktoken:cl100k_base", tok.Name())
	text := "Tokenization of unbelievable reviews"
	pieces := tok.Tokenize(text + "<br />")
	require.NotEmpty(t, pieces)
	assert.Equal(t, text+" ", strings.Join(pieces, ""))

	vocab := NewVocab()
	for _, piece := range pieces {
		vocab.RegisterToken(piece)
	}
	ids := Encode(tok, vocab, text+"<br />")
	for _, id := range ids {
		assert.NotEqual(t, UnknownID, id)
	}
}
