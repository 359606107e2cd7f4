// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
)

// LSTMModel runs a (possibly stacked) forward LSTM over the embeddings and classifies the hidden state of
// the last real token of each example.
type LSTMModel struct {
	Base
}

// NewLSTMModel creates an LSTMModel. It uses Config.HiddenDim, Config.NumLayers and Config.Dropout.
func NewLSTMModel(cfg Config) *LSTMModel {
	return &LSTMModel{Base{cfg}}
}

// Name implements Model.
func (m *LSTMModel) Name() string { return ModelLSTM }

// Features implements Model: it returns the hidden state at position length-1 of each example, shaped
// [batchSize, HiddenDim].
//
// The hidden state at a position only depends on the tokens up to it, so the padding after the last
// real token never affects the result, with or without Config.MaskPadding. Examples made only of padding
// have no such position: see Model.Forward.
func (m *LSTMModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	lengths := SequenceLengths(tokens, cfg.PaddingID)
	embed, _ := m.Embed(ctx, tokens)
	encoder := RecurrentEncoder{HiddenDim: cfg.HiddenDim, NumLayers: cfg.NumLayers, Dropout: cfg.Dropout}
	hidden := encoder.Encode(ctx, embed, nil) // [batchSize, maxSeqLen, hiddenDim]
	return GatherLastPosition(hidden, lengths)
}

// Forward implements Model.
func (m *LSTMModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}

// GatherLastPosition selects, for each example b, x[b, lengths[b]-1, :].
//
//   - x: shaped [batchSize, seqLen, features].
//   - lengths: shaped [batchSize], values in [1, seqLen]. A length of 0 gathers index -1, which the
//     backend clamps to position 0: the result is then meaningless, but no error is raised.
//
// Output is shaped [batchSize, features].
func GatherLastPosition(x, lengths *Node) *Node {
	x.AssertRank(3)
	g := x.Graph()
	batchSize := x.Shape().Dim(0)
	lengths = ConvertDType(lengths, dtypes.Int32)
	batchIndices := Iota(g, shapes.Make(dtypes.Int32, batchSize, 1), 0)
	lastIndices := InsertAxes(AddScalar(lengths, -1), -1)
	indices := Concatenate([]*Node{batchIndices, lastIndices}, -1) // [batchSize, 2]
	return Gather(x, indices)
}
