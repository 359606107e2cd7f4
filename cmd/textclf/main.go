// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// textclf trains text classification models (LSTM, RCNN, BiLSTM+Attention, CNN, TextCNN, DPCNN and
// CNN+Attention) on a labeled corpus, and classifies texts with a trained checkpoint.
//
// By default, it downloads and trains on the IMDB reviews dataset:
//
//	$ textclf -checkpoint=cnn -set="model=cnn;train_steps=5000"
//
// To train on a corpus of your own, organized as "<dir>/{train,test}/<class>/*.txt":
//
//	$ textclf -checkpoint=my_model -set="corpus_dir=<dir>;textclf_tag_dim=<number of classes>"
//
// To classify texts with a trained model (one text per argument):
//
//	$ textclf -checkpoint=cnn -predict "A wonderful movie." "Two hours I will never get back."
//
// To print a sample of the test examples:
//
//	$ textclf -sample=5
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/textclf/textclf/pkg/textclf"
	"github.com/textclf/textclf/pkg/textclf/training"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagDataDir    = flag.String("data", "~/tmp/textclf", "Directory to cache downloaded and generated dataset files.")
	flagEval       = flag.Bool("eval", true, "Whether to evaluate the model on the validation data in the end.")
	flagVerbosity  = flag.Int("verbosity", 1, "Level of verbosity, the higher the more verbose.")
	flagCheckpoint = flag.String("checkpoint", "", "Directory save and load checkpoints from. If left empty, no checkpoints are created.")
	flagSample     = flag.Int("sample", 0, "If > 0, print this number of test examples and exit.")
	flagPredict    = flag.Bool("predict", false, "Classify the texts given as arguments with the model in -checkpoint, instead of training.")
)

func main() {
	ctx := training.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [texts to classify with -predict...]\n", flag.CommandLine.Name())
		fmt.Fprintf(flag.CommandLine.Output(), "Models (\"model\" hyperparameter): %s\n", strings.Join(textclf.ModelNames(), ", "))
		flag.PrintDefaults()
	}
	flag.Parse()
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))

	var err error
	switch {
	case *flagSample > 0:
		err = training.PrintSample(ctx, *flagDataDir, *flagSample)
	case *flagPredict:
		err = predict(ctx, flag.Args())
	default:
		err = training.TrainModel(ctx, *flagDataDir, *flagCheckpoint, paramsSet, *flagEval, *flagVerbosity)
	}
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func predict(ctx *context.Context, texts []string) error {
	if *flagCheckpoint == "" {
		return errors.New("-predict requires a trained model given by -checkpoint")
	}
	if len(texts) == 0 {
		return errors.New("-predict requires the texts to classify as arguments")
	}
	cl, err := training.LoadClassifier(backends.MustNew(), ctx, *flagDataDir, *flagCheckpoint)
	if err != nil {
		return err
	}
	labels, scores, err := cl.Classify(texts)
	if err != nil {
		return err
	}
	for ii, text := range texts {
		fmt.Printf("%s\t%v\t%q\n", labels[ii], scores[ii], text)
	}
	return nil
}
