package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digitnet/config"
	"digitnet/dataset"
	"digitnet/model"
	"digitnet/nn"
	"digitnet/submission"
	"digitnet/trainer"
	"digitnet/utils"
)

var (
	trainPath   string
	testPath    string
	outPath     string
	weightsPath string

	flagVariant string
	flagEpochs  int
	flagBatch   int
	flagLR      float64
	flagSeed    int64
	flagAugment bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on train.csv and optionally predict test.csv",
	RunE:  runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringVar(&trainPath, "train", "train.csv", "labeled training CSV")
	f.StringVar(&testPath, "test", "", "unlabeled test CSV; when set, a submission is written")
	f.StringVar(&outPath, "out", "submission.csv", "submission output path")
	f.StringVar(&weightsPath, "weights", "", "save trained weights to this JSON file")
	f.StringVar(&flagVariant, "variant", "", `architecture: "baseline" or "batchnorm"`)
	f.IntVar(&flagEpochs, "epochs", 0, "training epochs")
	f.IntVar(&flagBatch, "batch-size", 0, "mini-batch size")
	f.Float64Var(&flagLR, "lr", 0, "Adam learning rate")
	f.Int64Var(&flagSeed, "seed", 0, "split and initialization seed")
	f.BoolVar(&flagAugment, "augment", false, "train on randomly perturbed images")
}

// resolveConfig layers CLI flags over the YAML file over the authored
// defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return cfg, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("variant") {
		cfg.Variant = flagVariant
	}
	if flags.Changed("epochs") {
		cfg.Epochs = flagEpochs
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = flagBatch
	}
	if flags.Changed("lr") {
		cfg.LearningRate = flagLR
	}
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	switch {
	case flags.Changed("augment"):
		cfg.Augment = flagAugment
	case configPath == "" && cfg.Variant == model.VariantBatchNorm:
		// The batchnorm recipe trains on augmented batches unless told
		// otherwise.
		cfg.Augment = true
	}
	return cfg, cfg.Validate()
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("configuration",
		zap.String("variant", cfg.Variant),
		zap.Int("epochs", cfg.Epochs),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Float64("learning_rate", cfg.LearningRate),
		zap.Int64("seed", cfg.Seed),
		zap.Bool("augment", cfg.Augment),
	)

	full, err := dataset.LoadTrain(trainPath)
	if err != nil {
		return err
	}
	train, val, err := dataset.Split(full, cfg.SplitFraction, cfg.Seed)
	if err != nil {
		return err
	}
	logger.Info("loaded training data",
		zap.String("path", trainPath),
		zap.Int("train", train.Len()),
		zap.Int("val", val.Len()),
	)

	m, loss, err := model.Build(cfg.Variant, cfg.Seed)
	if err != nil {
		return err
	}
	opt := nn.NewAdam(cfg.LearningRate)

	tcfg := trainer.Config{
		Epochs:         cfg.Epochs,
		BatchSize:      cfg.BatchSize,
		AugmentSeed:    cfg.Seed,
		AugmentWorkers: cfg.AugmentWorkers,
	}
	if cfg.Augment {
		aug := cfg.Augmentation
		tcfg.Augment = &aug
	}

	result, err := trainer.Run(cmd.Context(), logger, m, loss, opt, train, val, tcfg)
	if err != nil {
		return err
	}

	if verbose {
		steps := cfg.Epochs * ((train.Len() + cfg.BatchSize - 1) / cfg.BatchSize)
		utils.PrintTimingStats(&result.Timing, steps)
	}

	if weightsPath != "" {
		if err := utils.SaveWeights(weightsPath, utils.Snapshot(m)); err != nil {
			return err
		}
		logger.Info("weights saved", zap.String("path", weightsPath))
	}

	if testPath == "" {
		return nil
	}
	test, err := dataset.LoadTest(testPath)
	if err != nil {
		return err
	}
	labels, err := submission.Predict(m, test, cfg.BatchSize)
	if err != nil {
		return err
	}
	if err := submission.WriteFile(outPath, labels); err != nil {
		return err
	}
	logger.Info("submission written", zap.String("path", outPath), zap.Int("rows", len(labels)))
	return nil
}

