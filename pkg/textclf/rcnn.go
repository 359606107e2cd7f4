// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
)

// RCNNModel concatenates the embeddings with contextual vectors from a bidirectional LSTM (EmbedDim/2
// per direction), projects them with a tanh dense layer to HiddenDim and max-pools over the sequence.
//
// It requires an even EmbedDim, see Config.ValidateFor.
type RCNNModel struct {
	Base
}

// NewRCNNModel creates an RCNNModel.
func NewRCNNModel(cfg Config) *RCNNModel {
	return &RCNNModel{Base{cfg}}
}

// Name implements Model.
func (m *RCNNModel) Name() string { return ModelRCNN }

// Features implements Model: output is shaped [batchSize, HiddenDim].
func (m *RCNNModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	word, mask := m.Embed(ctx, tokens)
	var lengths *Node
	if cfg.MaskPadding {
		lengths = SequenceLengths(tokens, cfg.PaddingID)
	}
	encoder := RecurrentEncoder{HiddenDim: cfg.EmbedDim / 2, NumLayers: 1, Bidirectional: true}
	contextual := encoder.Encode(ctx.In("bilstm"), word, lengths)
	if contextual.Shape().Dim(-1) != cfg.EmbedDim {
		panicf(ErrDimensionMismatch, "RCNN bidirectional encoder width %d != embed_dim %d",
			contextual.Shape().Dim(-1), cfg.EmbedDim)
	}
	x := Concatenate([]*Node{word, contextual}, -1) // [batchSize, maxSeqLen, 2*embedDim]
	x = Tanh(layers.Dense(ctx.In("encoder"), x, true, cfg.HiddenDim))
	return MaxOverTime(x, m.poolingMask(mask))
}

// Forward implements Model.
func (m *RCNNModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}
