// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package textclf

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Hyperparameter keys used by Config.FromContext.
const (
	ParamVocab       = "textclf_vocab"
	ParamEmbedDim    = "textclf_embed_dim"
	ParamHiddenDim   = "textclf_hidden_dim"
	ParamTagDim      = "textclf_tag_dim"
	ParamPaddingID   = "textclf_padding_id"
	ParamNumLayers   = "textclf_n_layer"
	ParamDropout     = "textclf_dropout"
	ParamAttnDim     = "textclf_attn_dim"
	ParamNumBlocks   = "textclf_n_block"
	ParamMaskPadding = "textclf_mask_padding"
	ParamKernelSize  = "textclf_kernel_size"
	ParamDType       = "textclf_dtype"
)

// DPCNNWidth is the fixed number of channels used inside DPCNNModel, independent of Config.HiddenDim.
const DPCNNWidth = 250

// Config holds the configuration shared by all text classification models.
type Config struct {
	Vocab     int     // Number of token ids, including the padding id.
	EmbedDim  int     // Size of the token embeddings.
	HiddenDim int     // Width of the encoders' output.
	TagDim    int     // Number of classes: width of the output scores.
	PaddingID int     // Token id used for padding, in [0, Vocab).
	NumLayers int     // Depth of the LSTM in LSTMModel.
	Dropout   float64 // Dropout rate between stacked LSTM layers, only applied when training.
	AttnDim   int     // Size of the attention projection used by the attention pooling.
	NumBlocks int     // Number of pyramid blocks in DPCNNModel.

	// MaskPadding excludes padded positions from the max-pooling and gives them zero attention weight.
	// If false, padded positions participate like any other position.
	MaskPadding bool

	// KernelSize is the window of the "same" padded convolutions of CNNModel and CNNAttnModel.
	KernelSize int

	// Windows are the window sizes of the TextCNNModel branches.
	Windows []int

	DType dtypes.DType
}

// NewConfig creates a Config with the given dimensions and default values for everything else.
func NewConfig(vocab, embedDim, hiddenDim, tagDim int) Config {
	return Config{
		Vocab:       vocab,
		EmbedDim:    embedDim,
		HiddenDim:   hiddenDim,
		TagDim:      tagDim,
		PaddingID:   0,
		NumLayers:   1,
		Dropout:     0,
		AttnDim:     hiddenDim,
		NumBlocks:   1,
		MaskPadding: true,
		KernelSize:  3,
		Windows:     []int{2, 3, 4},
		DType:       dtypes.Float32,
	}
}

// FromContext overwrites the configuration with the hyperparameters set in ctx, keeping the current
// values as defaults.
func (c Config) FromContext(ctx *context.Context) Config {
	c.Vocab = context.GetParamOr(ctx, ParamVocab, c.Vocab)
	c.EmbedDim = context.GetParamOr(ctx, ParamEmbedDim, c.EmbedDim)
	c.HiddenDim = context.GetParamOr(ctx, ParamHiddenDim, c.HiddenDim)
	c.TagDim = context.GetParamOr(ctx, ParamTagDim, c.TagDim)
	c.PaddingID = context.GetParamOr(ctx, ParamPaddingID, c.PaddingID)
	c.NumLayers = context.GetParamOr(ctx, ParamNumLayers, c.NumLayers)
	c.Dropout = context.GetParamOr(ctx, ParamDropout, c.Dropout)
	c.AttnDim = context.GetParamOr(ctx, ParamAttnDim, c.AttnDim)
	c.NumBlocks = context.GetParamOr(ctx, ParamNumBlocks, c.NumBlocks)
	c.MaskPadding = context.GetParamOr(ctx, ParamMaskPadding, c.MaskPadding)
	c.KernelSize = context.GetParamOr(ctx, ParamKernelSize, c.KernelSize)
	if dtypeStr := context.GetParamOr(ctx, ParamDType, ""); dtypeStr != "" {
		dtype, err := dtypes.DTypeString(dtypeStr)
		if err != nil || !dtype.IsFloat() {
			panicf(ErrInvalidConfig, "invalid hyperparameter %s=%q", ParamDType, dtypeStr)
		}
		c.DType = dtype
	}
	return c
}

// Validate checks the values common to all models.
func (c Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"vocab", c.Vocab}, {"embed_dim", c.EmbedDim}, {"hidden_dim", c.HiddenDim},
		{"tag_dim", c.TagDim}, {"n_layer", c.NumLayers}, {"attn_dim", c.AttnDim},
		{"kernel_size", c.KernelSize},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "%s must be > 0, got %d", p.name, p.value)
		}
	}
	if c.PaddingID < 0 || c.PaddingID >= c.Vocab {
		return errors.Wrapf(ErrInvalidConfig, "padding_id must be in [0, %d), got %d", c.Vocab, c.PaddingID)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "dropout must be in [0, 1), got %g", c.Dropout)
	}
	if c.NumBlocks < 0 {
		return errors.Wrapf(ErrInvalidConfig, "n_block must be >= 0, got %d", c.NumBlocks)
	}
	if len(c.Windows) == 0 || slices.Min(c.Windows) <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "windows must be a non-empty list of positive sizes, got %v", c.Windows)
	}
	if !c.DType.IsFloat() {
		return errors.Wrapf(ErrInvalidConfig, "dtype must be a float, got %s", c.DType)
	}
	return nil
}

// ValidateFor runs Validate plus the checks specific to the model named modelName.
//
// The bidirectional encoders split their width between the two directions, so RCNN requires an even
// EmbedDim (its contextual vectors must be as wide as the embeddings) and BiLSTM+Attention requires an even
// HiddenDim.
func (c Config) ValidateFor(modelName string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch modelName {
	case ModelRCNN:
		if c.EmbedDim%2 != 0 {
			return errors.Wrapf(ErrDimensionMismatch,
				"model %q: bidirectional encoder width 2*(%d/2) != embed_dim %d", modelName, c.EmbedDim, c.EmbedDim)
		}
	case ModelBiLSTMAttn:
		if c.HiddenDim%2 != 0 {
			return errors.Wrapf(ErrDimensionMismatch,
				"model %q: hidden_dim (%d) must be even to be split between the two directions", modelName, c.HiddenDim)
		}
	}
	return nil
}

// MaxWindow returns the largest of the TextCNN windows: the minimum padded sequence length TextCNNModel accepts.
func (c Config) MaxWindow() int {
	return slices.Max(c.Windows)
}
