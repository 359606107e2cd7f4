// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// BiLSTMAttnModel encodes the embeddings with a bidirectional LSTM (HiddenDim/2 per direction) and
// summarizes the positions with AttentionPooling.
type BiLSTMAttnModel struct {
	Base
}

// NewBiLSTMAttnModel creates a BiLSTMAttnModel. It requires an even HiddenDim, see Config.ValidateFor.
func NewBiLSTMAttnModel(cfg Config) *BiLSTMAttnModel {
	return &BiLSTMAttnModel{Base{cfg}}
}

// Name implements Model.
func (m *BiLSTMAttnModel) Name() string { return ModelBiLSTMAttn }

// Features implements Model: output is shaped [batchSize, HiddenDim].
func (m *BiLSTMAttnModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	embed, mask := m.Embed(ctx, tokens)
	var lengths *Node
	if cfg.MaskPadding {
		lengths = SequenceLengths(tokens, cfg.PaddingID)
	}
	encoder := RecurrentEncoder{HiddenDim: cfg.HiddenDim / 2, NumLayers: 1, Bidirectional: true}
	x := encoder.Encode(ctx.In("bilstm"), embed, lengths)
	return AttentionPooling(ctx, x, m.poolingMask(mask), cfg.AttnDim)
}

// Forward implements Model.
func (m *BiLSTMAttnModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}
