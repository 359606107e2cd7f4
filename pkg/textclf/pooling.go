// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
)

// MaxOverTime reduces x shaped [batchSize, seqLen, features] to [batchSize, features] by taking the max
// over the sequence axis.
//
// If mask ([batchSize, seqLen]) is not nil, positions where it is false are ignored. Every row of the mask
// must have at least one true value.
func MaxOverTime(x, mask *Node) *Node {
	x.AssertRank(3)
	if mask == nil {
		return ReduceMax(x, 1)
	}
	mask = BroadcastToDims(InsertAxes(mask, -1), x.Shape().Dimensions...)
	return MaskedReduceMax(x, mask, 1)
}

// AttentionPooling summarizes x shaped [batchSize, seqLen, features] into one vector per example, shaped
// [batchSize, features], with a learned weighting of the positions:
//
//	u = tanh(W x + b), shaped [batchSize, seqLen, attnDim]
//	score = v · u
//	weights = softmax(score) over the sequence axis
//	output = Σ weights * x
//
// If mask ([batchSize, seqLen]) is not nil, positions where it is false get weight 0. Every row of the mask
// must have at least one true value.
//
// Variables are created in the "attention" scope of ctx.
func AttentionPooling(ctx *context.Context, x, mask *Node, attnDim int) *Node {
	x.AssertRank(3)
	ctx = ctx.In("attention")
	u := Tanh(layers.Dense(ctx.In("projection"), x, true, attnDim))
	scores := layers.Dense(ctx.In("score"), u, false, 1)
	scores = Squeeze(scores, -1) // [batchSize, seqLen]
	weights := sequenceSoftmax(scores, mask)
	return Einsum("bs,bsf->bf", weights, x)
}

// sequenceSoftmax takes the softmax of scores ([batchSize, seqLen]) over the last axis, giving zero
// probability where mask is false.
func sequenceSoftmax(scores, mask *Node) *Node {
	if mask == nil {
		maxScores := StopGradient(ReduceAndKeep(scores, ReduceMax, -1))
		expScores := Exp(Sub(scores, maxScores))
		return Div(expScores, ReduceAndKeep(expScores, ReduceSum, -1))
	}
	zeros := ZerosLike(scores)
	maxScores := StopGradient(InsertAxes(MaskedReduceMax(scores, mask, -1), -1))
	// Masked values are replaced before Exp, so no overflow reaches the gradient.
	shifted := Where(mask, Sub(scores, maxScores), zeros)
	expScores := Where(mask, Exp(shifted), zeros)
	return Div(expScores, ReduceAndKeep(expScores, ReduceSum, -1))
}
