// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

// SequenceLengths returns the number of non-padding tokens of each example: max_seq_len minus the number of
// positions equal to paddingID.
//
//   - tokens: shaped [batchSize, maxSeqLen], any integer dtype.
//
// Output is shaped (Int32)[batchSize].
func SequenceLengths(tokens *Node, paddingID int) *Node {
	tokens.AssertRank(2)
	g := tokens.Graph()
	maxLen := tokens.Shape().Dim(1)
	isPadding := Equal(tokens, Scalar(g, tokens.DType(), float64(paddingID)))
	numPadding := ReduceSum(ConvertDType(isPadding, dtypes.Int32), -1)
	return Sub(Scalar(g, dtypes.Int32, float64(maxLen)), numPadding)
}

// PaddingMask returns a boolean mask shaped [batchSize, maxSeqLen], set to true where tokens are not padding.
func PaddingMask(tokens *Node, paddingID int) *Node {
	return NotEqual(tokens, Scalar(tokens.Graph(), tokens.DType(), float64(paddingID)))
}

// LengthsMask converts lengths shaped [batchSize] to a mask shaped [batchSize, seqLen], true for the
// positions before each length.
func LengthsMask(lengths *Node, seqLen int) *Node {
	g := lengths.Graph()
	batchSize := lengths.Shape().Dim(0)
	positions := Iota(g, shapes.Make(lengths.DType(), batchSize, seqLen), 1)
	return LessThan(positions, BroadcastToDims(InsertAxes(lengths, -1), batchSize, seqLen))
}

// ensureNonEmpty marks every position of rows of mask that have no true value as valid, so that
// masked reductions of examples made only of padding stay finite.
func ensureNonEmpty(mask *Node) *Node {
	g := mask.Graph()
	counts := ReduceSum(ConvertDType(mask, dtypes.Int32), -1)
	empty := Equal(counts, Scalar(g, dtypes.Int32, 0))
	empty = BroadcastToDims(InsertAxes(empty, -1), mask.Shape().Dimensions...)
	return LogicalOr(mask, empty)
}

// LengthsOf is the host version of SequenceLengths: for each row of batch it returns
// len(row) minus the number of entries equal to paddingID.
func LengthsOf(batch [][]int32, paddingID int) []int {
	lengths := make([]int, len(batch))
	for ii, row := range batch {
		length := len(row)
		for _, id := range row {
			if int(id) == paddingID {
				length--
			}
		}
		lengths[ii] = length
	}
	return lengths
}
