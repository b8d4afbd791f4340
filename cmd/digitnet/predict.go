package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digitnet/config"
	"digitnet/dataset"
	"digitnet/model"
	"digitnet/submission"
	"digitnet/utils"
)

var (
	predWeights string
	predTest    string
	predOut     string
	predVariant string
	predBatch   int
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run inference with saved weights and write a submission",
	RunE:  runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predWeights, "weights", "", "weights JSON file saved by train (required)")
	f.StringVar(&predTest, "test", "test.csv", "unlabeled test CSV")
	f.StringVar(&predOut, "out", "submission.csv", "submission output path")
	f.StringVar(&predVariant, "variant", "", "architecture the weights were trained with")
	f.IntVar(&predBatch, "batch-size", 0, "inference batch size")
}

func runPredict(cmd *cobra.Command, args []string) error {
	if predWeights == "" {
		return fmt.Errorf("--weights is required")
	}
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("variant") {
		cfg.Variant = predVariant
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = predBatch
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, _, err := model.Build(cfg.Variant, cfg.Seed)
	if err != nil {
		return err
	}
	weights, err := utils.LoadWeights(predWeights)
	if err != nil {
		return err
	}
	if err := utils.Restore(m, weights); err != nil {
		return err
	}
	logger.Info("weights restored", zap.String("path", predWeights), zap.String("variant", cfg.Variant))

	test, err := dataset.LoadTest(predTest)
	if err != nil {
		return err
	}
	labels, err := submission.Predict(m, test, cfg.BatchSize)
	if err != nil {
		return err
	}
	if err := submission.WriteFile(predOut, labels); err != nil {
		return err
	}
	logger.Info("submission written", zap.String("path", predOut), zap.Int("rows", len(labels)))
	return nil
}
