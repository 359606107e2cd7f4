// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
)

// Base holds the configuration and provides the embedding front-end and classification head shared by
// every model. It doesn't implement any encoder.
type Base struct {
	Config Config
}

// Embed creates embeddings for tokens and returns them along with the mask of used tokens -- set to false
// where padding was used.
//
//   - tokens: shaped [batchSize, maxSeqLen], right-padded with Config.PaddingID.
//
// Outputs:
//
//   - embed: shaped [batchSize, maxSeqLen, Config.EmbedDim]. The embedding of the padding id is always zero,
//     and receives no gradient.
//   - mask: shaped (Bool)[batchSize, maxSeqLen].
func (b *Base) Embed(ctx *context.Context, tokens *Node) (embed, mask *Node) {
	tokens.AssertRank(2)
	cfg := &b.Config
	mask = PaddingMask(tokens, cfg.PaddingID)
	embed = layers.Embedding(ctx.In("embedding"), tokens, cfg.DType, cfg.Vocab, cfg.EmbedDim)
	embed = zeroMasked(embed, mask)
	return
}

// Classify projects the pooled features shaped [batchSize, featuresDim] to the tag scores (logits),
// shaped [batchSize, Config.TagDim].
func (b *Base) Classify(ctx *context.Context, features *Node) *Node {
	features.AssertRank(2)
	return layers.Dense(ctx.In("linear"), features, true, b.Config.TagDim)
}

// poolingMask returns the mask to use for pooling, or nil if the configuration doesn't mask padding.
func (b *Base) poolingMask(mask *Node) *Node {
	if !b.Config.MaskPadding {
		return nil
	}
	return ensureNonEmpty(mask)
}

// zeroMasked sets x (shaped [batchSize, seqLen, features]) to zero where mask ([batchSize, seqLen]) is false.
func zeroMasked(x, mask *Node) *Node {
	if mask == nil {
		return x
	}
	mask = BroadcastToDims(InsertAxes(mask, -1), x.Shape().Dimensions...)
	return Where(mask, x, ZerosLike(x))
}
