// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package corpus

import "sort"

// Special token ids: they are always the first two entries of a Vocab.
const (
	PaddingID = 0
	UnknownID = 1
)

// VocabEntry include the Token and its count.
type VocabEntry struct {
	Token string
	Count int
}

// Vocab stores vocabulary information for the whole corpus.
type Vocab struct {
	ListEntries []VocabEntry
	MapTokens   map[string]int
	TotalCount  int
}

// NewVocab creates a new vocabulary, with the first token set to "<PAD>", used for padding, and the
// second token set to "<UNK>", used for tokens not in the vocabulary (or beyond the maximum vocabulary
// size used by a model).
func NewVocab() *Vocab {
	v := &Vocab{
		MapTokens:   make(map[string]int),
		ListEntries: []VocabEntry{{"<PAD>", 0}, {"<UNK>", 0}},
	}
	for ii, entry := range v.ListEntries {
		v.MapTokens[entry.Token] = ii
	}
	return v
}

// Size returns the number of entries, including the special tokens.
func (v *Vocab) Size() int { return len(v.ListEntries) }

// RegisterToken returns the index for the token, and increments the count for the token.
func (v *Vocab) RegisterToken(token string) (idx int) {
	v.TotalCount++
	var found bool
	idx, found = v.MapTokens[token]
	if !found {
		idx = len(v.ListEntries)
		v.MapTokens[token] = idx
		v.ListEntries = append(v.ListEntries, VocabEntry{token, 1})
	} else {
		v.ListEntries[idx].Count++
	}
	return idx
}

// Lookup returns the id of token, or UnknownID if it is not in the vocabulary.
func (v *Vocab) Lookup(token string) int {
	if idx, found := v.MapTokens[token]; found {
		return idx
	}
	return UnknownID
}

// Token returns the token for id, or "<UNK>" if id is out of range.
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.ListEntries) {
		return v.ListEntries[UnknownID].Token
	}
	return v.ListEntries[id].Token
}

// SortByFrequency sorts the vocabs by their frequency, and returns a map to convert the
// token ids from before the sorting to their new values.
//
// Special tokens "<PAD>" and "<UNK>" remain unchanged.
func (v *Vocab) SortByFrequency() (oldIDtoNewID map[int]int) {
	subSlice := v.ListEntries[2:]
	sort.SliceStable(subSlice, func(i, j int) bool {
		return subSlice[i].Count > subSlice[j].Count
	})

	newMapTokens := make(map[string]int, len(v.MapTokens))
	for ii, entry := range v.ListEntries {
		newMapTokens[entry.Token] = ii
	}

	oldIDtoNewID = make(map[int]int, len(v.MapTokens))
	for token, oldID := range v.MapTokens {
		oldIDtoNewID[oldID] = newMapTokens[token]
	}
	v.MapTokens = newMapTokens
	return
}

// Truncate keeps only the first maxVocab entries (including the special tokens): tokens dropped are
// looked up as UnknownID. It should be called after SortByFrequency, so the most frequent tokens are kept.
func (v *Vocab) Truncate(maxVocab int) {
	if maxVocab < 2 || maxVocab >= len(v.ListEntries) {
		return
	}
	for _, entry := range v.ListEntries[maxVocab:] {
		delete(v.MapTokens, entry.Token)
	}
	v.ListEntries = v.ListEntries[:maxVocab]
}
