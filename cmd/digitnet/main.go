// digitnet: trains a small CNN on the Kaggle digit-recognizer CSVs and
// writes the submission file.
//
// Usage:
//
//	digitnet train --train=train.csv --test=test.csv --out=submission.csv
//	digitnet predict --weights=weights.json --test=test.csv --out=submission.csv
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "digitnet",
	Short: "digitnet - handwritten digit classifier for the Kaggle Digit Recognizer data",
	Long: `digitnet is a single-shot batch pipeline: it reads the labeled
train.csv and unlabeled test.csv pixel tables, trains a small
convolutional network, and writes a two-column submission file.

Two architectures are available: "baseline" (stacked conv/pool/dense,
one-hot cross-entropy) and "batchnorm" (batch-normalized convolutions
trained on augmented images with the sparse loss).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file overriding the authored defaults")
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
