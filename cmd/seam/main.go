// Package main provides the Seam CLI.
//
// Commands:
//
//	seam version
//	seam train [flags]
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/seam-ml/seam/autodiff"
	"github.com/seam-ml/seam/backend/cpu"
	"github.com/seam-ml/seam/internal/data"
	"github.com/seam-ml/seam/internal/train"
	"github.com/seam-ml/seam/nn"
	"github.com/seam-ml/seam/optim"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Seam %s\n", version)
	case "train":
		if err := runTrain(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "seam train: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("Seam - reverse-mode autodiff and training loops for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  train      Train a classifier (MNIST or synthetic data)")
}

func runTrain(args []string) error {
	flags := flag.NewFlagSet("train", flag.ExitOnError)
	dataDir := flags.String("data", "./data", "directory for MNIST data files (downloaded when missing)")
	configPath := flags.String("config", "", "YAML training config file")
	epochs := flags.Int("epochs", 0, "number of training epochs (overrides config)")
	batchSize := flags.Int("batch", 0, "batch size (overrides config)")
	lr := flags.Float64("lr", 0, "learning rate (overrides config)")
	optimizerName := flags.String("optimizer", "adam", "optimizer: sgd or adam")
	hidden := flags.Int("hidden", 128, "hidden layer width")
	synthetic := flags.Bool("synthetic", false, "use synthetic data instead of MNIST")
	klog.InitFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	config := train.DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = train.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	if *epochs > 0 {
		config.Epochs = *epochs
	}
	if *batchSize > 0 {
		config.BatchSize = *batchSize
	}
	if *lr > 0 {
		config.LearningRate = *lr
	}

	trainDS, evalDS, err := loadDatasets(*dataDir, *synthetic)
	if err != nil {
		return err
	}

	backend := autodiff.New(cpu.New())
	type B = *autodiff.Backend[*cpu.Backend]

	width := trainDS.FeatureWidth()
	classes := trainDS.NumClasses()
	model := nn.NewSequential[B](
		nn.NewLinear[B](width, *hidden, backend),
		nn.NewReLU[B](),
		nn.NewLinear[B](*hidden, *hidden, backend),
		nn.NewReLU[B](),
		nn.NewLinear[B](*hidden, classes, backend),
	)

	var optimizer optim.Optimizer
	switch *optimizerName {
	case "sgd":
		optimizer = optim.NewSGD(model.Parameters(), optim.SGDConfig{
			LR:       float32(config.LearningRate),
			Momentum: 0.9,
		})
	case "adam":
		optimizer = optim.NewAdam(model.Parameters(), optim.AdamConfig{
			LR: float32(config.LearningRate),
		})
	default:
		return fmt.Errorf("unknown optimizer %q (want sgd or adam)", *optimizerName)
	}

	loop, err := train.NewLoop(config, backend, model, optimizer)
	if err != nil {
		return err
	}
	loop.ShowProgress = true

	klog.Infof("training %d→%d→%d→%d classifier with %s, lr %v, batch %d, %d epochs",
		width, *hidden, *hidden, classes, *optimizerName,
		config.LearningRate, config.BatchSize, config.Epochs)

	results, err := loop.Run(trainDS, evalDS)
	if err != nil {
		return err
	}
	if len(results) > 0 {
		final := results[len(results)-1]
		fmt.Printf("final: eval loss %.4f, accuracy %.2f%%\n", final.EvalLoss, final.Accuracy*100)
	}
	return nil
}

func loadDatasets(dataDir string, synthetic bool) (trainDS, evalDS data.Dataset, err error) {
	if synthetic {
		return data.Synthetic(4096, 32, 10, 1), data.Synthetic(1024, 32, 10, 2), nil
	}
	mnistTrain, err := data.LoadMNIST(dataDir, true)
	if err != nil {
		return nil, nil, err
	}
	mnistTest, err := data.LoadMNIST(dataDir, false)
	if err != nil {
		return nil, nil, err
	}
	return mnistTrain, mnistTest, nil
}
