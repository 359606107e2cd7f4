// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// TextCNNModel applies parallel unpadded convolutions, one per window in Config.Windows (by default 2, 3
// and 4), each followed by a ReLU and a max-pool over the positions. The pooled vectors are concatenated.
//
// The padded sequence length must be at least Config.MaxWindow(), otherwise building the graph panics with
// ErrSequenceTooShort.
type TextCNNModel struct {
	Base
}

// NewTextCNNModel creates a TextCNNModel.
func NewTextCNNModel(cfg Config) *TextCNNModel {
	return &TextCNNModel{Base{cfg}}
}

// Name implements Model.
func (m *TextCNNModel) Name() string { return ModelTextCNN }

// Features implements Model: output is shaped [batchSize, len(Windows)*HiddenDim].
func (m *TextCNNModel) Features(ctx *context.Context, tokens *Node) *Node {
	cfg := &m.Config
	maxSeqLen := tokens.Shape().Dim(1)
	if maxSeqLen < cfg.MaxWindow() {
		panicf(ErrSequenceTooShort, "TextCNN needs sequences of at least %d tokens (windows %v), got max_seq_len=%d",
			cfg.MaxWindow(), cfg.Windows, maxSeqLen)
	}
	embed, _ := m.Embed(ctx, tokens)
	var lengths *Node
	if cfg.MaskPadding {
		lengths = SequenceLengths(tokens, cfg.PaddingID)
	}
	features := make([]*Node, 0, len(cfg.Windows))
	for ii, window := range cfg.Windows {
		// x: [batchSize, maxSeqLen-window+1, hiddenDim]
		x := Conv1D(ctx.Inf("%03d_conv%d", ii, window), embed, cfg.HiddenDim, window, false)
		x = activations.Relu(x)
		var mask *Node
		if lengths != nil {
			mask = windowsMask(lengths, window, x.Shape().Dim(1))
		}
		features = append(features, MaxOverTime(x, mask))
	}
	return Concatenate(features, -1)
}

// Forward implements Model.
func (m *TextCNNModel) Forward(ctx *context.Context, tokens *Node) *Node {
	return m.Classify(ctx, m.Features(ctx, tokens))
}

// windowsMask returns the mask of the windows (shaped [batchSize, numWindows]) that lie fully within the
// real tokens of each example. Examples shorter than the window keep their first window, which covers all
// their tokens.
func windowsMask(lengths *Node, window, numWindows int) *Node {
	numValid := MaxScalar(AddScalar(lengths, float64(1-window)), 1)
	return LengthsMask(numValid, numWindows)
}
