// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import "github.com/pkg/errors"

// Errors reported by the text classifiers. Errors returned by this package (and the panics raised while
// building the computation graphs) wrap one of these, so they can be tested with errors.Is.
var (
	// ErrInvalidConfig is returned when a Config holds values out of range.
	ErrInvalidConfig = errors.New("invalid text classifier configuration")

	// ErrDimensionMismatch is returned when dimensions that a model requires to be equal (or divisible) are not.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSequenceTooShort is returned when the padded sequence length is smaller than a convolution window
	// that doesn't use padding.
	ErrSequenceTooShort = errors.New("sequence shorter than convolution window")

	// ErrEmptySequence is returned when an example holds only padding, and the model needs the position
	// of its last real token.
	ErrEmptySequence = errors.New("sequence has no tokens other than padding")

	// ErrTokenOutOfRange is returned for token ids outside [0, vocab).
	ErrTokenOutOfRange = errors.New("token id out of vocabulary range")

	// ErrInvalidBatch is returned for batches that are empty or not rectangular.
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrUnknownModel is returned when a model name is not registered.
	ErrUnknownModel = errors.New("unknown model")
)

// panicf raises err wrapped with the formatted message. It is used while building graphs, following the
// GoMLX convention of panicking on graph construction errors.
func panicf(err error, format string, args ...any) {
	panic(errors.Wrapf(err, format, args...))
}
