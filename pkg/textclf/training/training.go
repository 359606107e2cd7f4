// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package training trains and evaluates the textclf models on a labeled text corpus, with the
// hyperparameters stored in a context.Context.
package training

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/gomlx/ui/gonb/plotly"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/textclf/textclf/pkg/textclf"
	"github.com/textclf/textclf/pkg/textclf/corpus"
)

// Hyperparameters of the training, besides the textclf_* model configuration.
const (
	ParamModel          = "model"
	ParamTrainSteps     = "train_steps"
	ParamNumCheckpoints = "num_checkpoints"
	ParamBatchSize      = "batch_size"
	ParamEvalBatchSize  = "eval_batch_size"

	// ParamCorpusDir is the directory with the "train" and "test" splits, each with one sub-directory per class.
	// If empty, the IMDB reviews dataset is downloaded to the data directory and used.
	ParamCorpusDir = "corpus_dir"

	// ParamTokenizer selects the tokenizer, see corpus.TokenizerFromName.
	ParamTokenizer = "tokenizer"

	// ParamContentMaxLen is the maximum number of tokens taken from each example.
	ParamContentMaxLen = "content_max_len"
)

// ParamsExcludedFromLoading is the list of parameters (see CreateDefaultContext) that shouldn't be saved
// along on the models checkpoints, and may be overwritten in further training sessions.
var ParamsExcludedFromLoading = []string{
	ParamCorpusDir, ParamTrainSteps, ParamNumCheckpoints, plotly.ParamPlots,
}

// CreateDefaultContext sets the context with default hyperparameters to use with TrainModel.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		ParamModel:          textclf.ModelCNN, // One of textclf.ModelNames().
		ParamTrainSteps:     5000,
		ParamNumCheckpoints: 3,
		ParamBatchSize:      32,
		ParamEvalBatchSize:  200,
		ParamCorpusDir:      "",
		ParamTokenizer:      "words",
		ParamContentMaxLen:  200,

		// Model configuration: textclf_vocab also limits the vocabulary, the less frequent tokens
		// are mapped to "<UNK>".
		textclf.ParamVocab:       20_000,
		textclf.ParamEmbedDim:    64,
		textclf.ParamHiddenDim:   64,
		textclf.ParamTagDim:      2,
		textclf.ParamPaddingID:   corpus.PaddingID,
		textclf.ParamNumLayers:   1,
		textclf.ParamDropout:     0.0,
		textclf.ParamAttnDim:     64,
		textclf.ParamNumBlocks:   2,
		textclf.ParamMaskPadding: true,
		textclf.ParamKernelSize:  3,
		textclf.ParamDType:       "float32",

		// "plots" trigger generating intermediary eval data for plotting, and if running in GoNB, to actually
		// draw the plot with Plotly.
		plotly.ParamPlots: false,

		optimizers.ParamOptimizer:    "adamw",
		optimizers.ParamLearningRate: 1e-3,
		optimizers.ParamAdamEpsilon:  1e-7,
		optimizers.ParamAdamDType:    "",
	})
	return ctx
}

// ConfigFromContext returns the textclf.Config set in ctx's hyperparameters. If textclf_attn_dim
// is not set, it defaults to textclf_hidden_dim.
func ConfigFromContext(ctx *context.Context) (cfg textclf.Config, err error) {
	err = exceptions.TryCatch[error](func() {
		cfg = textclf.NewConfig(0, 0, 0, 0).FromContext(ctx)
	})
	if cfg.AttnDim == 0 {
		cfg.AttnDim = cfg.HiddenDim
	}
	return
}

// LoadCorpus loads the corpus configured in ctx: either ParamCorpusDir or the IMDB dataset downloaded
// to dataDir. The vocabulary is limited to textclf_vocab entries.
func LoadCorpus(ctx *context.Context, dataDir string) (*corpus.Corpus, corpus.Tokenizer, error) {
	tokenizer, err := corpus.TokenizerFromName(context.GetParamOr(ctx, ParamTokenizer, "words"))
	if err != nil {
		return nil, nil, err
	}
	corpusDir := context.GetParamOr(ctx, ParamCorpusDir, "")
	var c *corpus.Corpus
	if corpusDir == "" {
		c, err = corpus.DownloadIMDB(dataDir, tokenizer)
	} else {
		corpusDir, err = fsutil.ReplaceTildeInDir(corpusDir)
		if err == nil {
			c, err = corpus.LoadCached(corpusDir, nil, tokenizer)
		}
	}
	if err != nil {
		return nil, nil, err
	}
	c.LimitVocab(context.GetParamOr(ctx, textclf.ParamVocab, 0))
	return c, tokenizer, nil
}

// NewModel creates the model selected in ctx, checking its configuration against the corpus classes.
func NewModel(ctx *context.Context, c *corpus.Corpus) (textclf.Model, textclf.Config, error) {
	cfg, err := ConfigFromContext(ctx)
	if err != nil {
		return nil, cfg, err
	}
	if cfg.TagDim != len(c.Classes) {
		return nil, cfg, errors.Wrapf(textclf.ErrInvalidConfig, "%s=%d but the corpus has %d classes %v",
			textclf.ParamTagDim, cfg.TagDim, len(c.Classes), c.Classes)
	}
	if cfg.PaddingID != corpus.PaddingID {
		return nil, cfg, errors.Wrapf(textclf.ErrInvalidConfig, "%s=%d but the corpus pads with %d",
			textclf.ParamPaddingID, cfg.PaddingID, corpus.PaddingID)
	}
	modelName := context.GetParamOr(ctx, ParamModel, textclf.ModelCNN)
	model, err := textclf.NewModel(modelName, cfg)
	if err != nil {
		return nil, cfg, err
	}
	maxLen := context.GetParamOr(ctx, ParamContentMaxLen, 0)
	if modelName == textclf.ModelTextCNN && maxLen < cfg.MaxWindow() {
		return nil, cfg, errors.Wrapf(textclf.ErrSequenceTooShort, "%s=%d is smaller than the largest window %d",
			ParamContentMaxLen, maxLen, cfg.MaxWindow())
	}
	return model, cfg, nil
}

// TrainModel with hyperparameters given in ctx.
//
// paramsSet are the hyperparameters set from the command line: they are not overwritten by the values
// saved in the checkpoint.
func TrainModel(
	ctx *context.Context,
	dataDir, checkpointPath string,
	paramsSet []string,
	evaluateOnEnd bool,
	verbosity int,
) error {
	return exceptions.TryCatch[error](func() {
		trainModel(ctx, dataDir, checkpointPath, paramsSet, evaluateOnEnd, verbosity)
	})
}

func trainModel(
	ctx *context.Context,
	dataDir, checkpointPath string,
	paramsSet []string,
	evaluateOnEnd bool,
	verbosity int,
) {
	// Data directory: datasets and top-level directory holding checkpoints for different models.
	dataDir = fsutil.MustReplaceTildeInDir(dataDir)
	if !fsutil.MustFileExists(dataDir) {
		must.M(os.MkdirAll(dataDir, 0777))
	}

	// Checkpoints are loaded first, since they may carry the hyperparameters of the model.
	var checkpoint *checkpoints.Handler
	if checkpointPath != "" {
		numCheckpointsToKeep := context.GetParamOr(ctx, ParamNumCheckpoints, 3)
		checkpoint = must.M1(checkpoints.Build(ctx).
			DirFromBase(checkpointPath, dataDir).
			Keep(numCheckpointsToKeep).
			ExcludeParams(append(paramsSet, ParamsExcludedFromLoading...)...).
			Done())
		fmt.Printf("Checkpoint: %q\n", checkpoint.Dir())
	}
	if verbosity >= 2 {
		fmt.Println(commandline.SprintContextSettings(ctx))
	}

	c, _ := must.M2(LoadCorpus(ctx, dataDir))
	model, cfg := must.M2(NewModel(ctx, c))
	fmt.Printf("Model: %s\n", model.Name())

	// Backend handles creation of ML computation graphs, accelerator resources, etc.
	backend := backends.MustNew()
	if verbosity >= 1 {
		fmt.Printf("Backend %q:\t%s\n", backend.Name(), backend.Description())
	}

	// Create datasets used for training and evaluation.
	batchSize := context.GetParamOr(ctx, ParamBatchSize, 0)
	if batchSize <= 0 {
		exceptions.Panicf("%s must be > 0 (maybe it was not set?): %d", ParamBatchSize, batchSize)
	}
	evalBatchSize := context.GetParamOr(ctx, ParamEvalBatchSize, 0)
	if evalBatchSize <= 0 {
		evalBatchSize = batchSize
	}
	maxLen := context.GetParamOr(ctx, ParamContentMaxLen, 200)
	trainDS := must.M1(corpus.NewDataset("train", c.Train, maxLen, cfg.Vocab, batchSize))
	trainDS.Infinite(true).Shuffle(uint64(time.Now().UnixNano()))
	trainEvalDS := must.M1(corpus.NewDataset("train-eval", c.Train, maxLen, cfg.Vocab, min(evalBatchSize, len(c.Train))))
	testEvalDS := must.M1(corpus.NewDataset("test-eval", c.Test, maxLen, cfg.Vocab, min(evalBatchSize, len(c.Test))))

	// Parallelize generation of batches.
	var trainData, trainEvalData, testEvalData train.Dataset = trainDS, trainEvalDS, testEvalDS
	trainData = datasets.Parallel(trainData)
	trainEvalData = datasets.Parallel(trainEvalData)
	testEvalData = datasets.Parallel(testEvalData)

	// Metrics we are interested.
	meanAccuracyMetric := metrics.NewSparseCategoricalAccuracy("Mean Accuracy", "#acc")
	movingAccuracyMetric := metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)

	// Create a train.Trainer: this object will orchestrate running the model, feeding
	// results to the optimizer, evaluating the metrics, etc. (all happens in trainer.TrainStep)
	ctx = ctx.In("model") // Convention scope used for model creation.
	trainer := train.NewTrainer(backend, ctx, textclf.ModelFn(model),
		losses.SparseCategoricalCrossEntropyLogits,
		optimizers.FromContext(ctx),
		[]metrics.Interface{movingAccuracyMetric}, // trainMetrics
		[]metrics.Interface{meanAccuracyMetric})   // evalMetrics

	// Use standard training loop.
	loop := train.NewLoop(trainer)
	if verbosity >= 0 {
		commandline.AttachProgressBar(loop) // Attaches a progress bar to the loop.
	}

	// Checkpoint saving: every 3 minutes of training.
	if checkpoint != nil {
		period := time.Minute * 3
		train.PeriodicCallback(loop, period, true, "saving checkpoint", 100,
			func(loop *train.Loop, metrics []*tensors.Tensor) error {
				return checkpoint.Save()
			})
	}

	// Attach Plotly plots: plot points at exponential steps.
	// The points generated are saved along the checkpoint directory (if one is given).
	if context.GetParamOr(ctx, plotly.ParamPlots, false) {
		_ = plotly.New().
			WithCheckpoint(checkpoint).
			Dynamic().
			WithDatasets(trainEvalData, testEvalData).
			ScheduleExponential(loop, 200, 1.2)
	}

	// Loop for given number of steps.
	numTrainSteps := context.GetParamOr(ctx, ParamTrainSteps, 0)
	globalStep := int(optimizers.GetGlobalStep(ctx))
	if globalStep > 0 {
		trainer.SetContext(ctx.Reuse())
	}
	if globalStep < numTrainSteps {
		_ = must.M1(loop.RunSteps(trainData, numTrainSteps-globalStep))
		klog.V(1).Infof("model %q has %s parameters", model.Name(), humanize.Comma(int64(ctx.NumParameters())))
		if verbosity >= 1 {
			fmt.Printf("\t[Step %d] median train step: %d microseconds\n",
				loop.LoopStep, loop.MedianTrainStepDuration().Microseconds())
		}
	} else {
		fmt.Printf("\t - target train_steps=%d already reached. To train further, set a number additional "+
			"to current global step.\n", numTrainSteps)
	}

	// Finally, print an evaluation on train and test datasets.
	if evaluateOnEnd {
		if verbosity >= 1 {
			fmt.Println()
		}
		must.M(commandline.ReportEval(trainer, trainEvalData, testEvalData))
	}
}

var sampleStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(1, 4, 1, 4).
	Width(60)

// PrintSample of n examples of the test split of the corpus configured in ctx.
func PrintSample(ctx *context.Context, dataDir string, n int) error {
	c, _, err := LoadCorpus(ctx, dataDir)
	if err != nil {
		return err
	}
	maxLen := context.GetParamOr(ctx, ParamContentMaxLen, 200)
	ds, err := corpus.NewDataset("test-sample", c.Test, maxLen, 0, n)
	if err != nil {
		return err
	}
	ds.Shuffle(uint64(time.Now().UnixNano()))
	_, inputs, labels, err := ds.Yield()
	if err != nil {
		return err
	}
	tensors.ConstFlatData[int32](labels[0], func(labelsData []int32) {
		for ii := range n {
			fmt.Println(sampleStyle.Render(
				fmt.Sprintf("[Sample %d - %s]\n%s\n", ii, c.Classes[labelsData[ii]],
					corpus.InputToString(c.Vocab, inputs[0], ii))))
		}
	})
	fmt.Println()
	return nil
}
