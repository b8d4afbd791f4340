// Package trainer runs the mini-batch training loop and per-epoch
// validation for the digit classifier.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"digitnet/augment"
	"digitnet/dataset"
	"digitnet/nn"
	"digitnet/tensor"
	"digitnet/utils"
)

// ErrNumericDivergence reports a non-finite training loss. Training
// stops immediately; there is no retry.
var ErrNumericDivergence = errors.New("trainer: non-finite training loss")

// Config captures the knobs of the training loop.
type Config struct {
	Epochs    int
	BatchSize int

	// Augment, when non-nil, replaces in-order mini-batches with the
	// lazy augmented stream.
	Augment        *augment.Config
	AugmentSeed    int64
	AugmentWorkers int
}

// EpochStats is the per-epoch metric report.
type EpochStats struct {
	Epoch     int
	TrainLoss float64
	TrainAcc  float64
	ValLoss   float64
	ValAcc    float64
	Duration  time.Duration
}

// Result aggregates the run.
type Result struct {
	Epochs []EpochStats
	Timing utils.TimingStats
}

// Run trains the model for the fixed number of epochs, evaluating on
// the validation set after each. The model's parameters are mutated in
// place by the optimizer; the caller owns the trained model afterward.
func Run(ctx context.Context, logger *zap.Logger, m *nn.Sequential, loss nn.Loss, opt *nn.Adam,
	train, val *dataset.Set, cfg Config) (*Result, error) {

	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("trainer: epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("trainer: batch size must be positive, got %d", cfg.BatchSize)
	}
	if train.Len() == 0 {
		return nil, dataset.ErrEmptyDataset
	}

	var batches <-chan augment.Batch
	var augErr <-chan error
	if cfg.Augment != nil {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		var err error
		batches, augErr, err = augment.Stream(streamCtx, train, *cfg.Augment, cfg.BatchSize, cfg.AugmentSeed, cfg.AugmentWorkers)
		if err != nil {
			return nil, err
		}
	}

	steps := (train.Len() + cfg.BatchSize - 1) / cfg.BatchSize
	result := &Result{}
	params := m.Params()
	totalStart := time.Now()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochStart := time.Now()
		m.SetTraining(true)

		epochLoss := 0.0
		correct, seen := 0, 0
		for step := 0; step < steps; step++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			dataStart := time.Now()
			input, labels, err := nextBatch(ctx, train, batches, augErr, cfg, step)
			if err != nil {
				return nil, err
			}
			result.Timing.DataLoadingTime += time.Since(dataStart)

			forwardStart := time.Now()
			logits, err := m.Forward(input)
			if err != nil {
				return nil, err
			}
			result.Timing.ForwardPassTime += time.Since(forwardStart)

			lossStart := time.Now()
			batchLoss, grad, err := loss.Batch(logits, labels)
			if err != nil {
				return nil, err
			}
			result.Timing.LossComputationTime += time.Since(lossStart)

			if math.IsNaN(batchLoss) || math.IsInf(batchLoss, 0) {
				return nil, fmt.Errorf("%w: epoch %d step %d", ErrNumericDivergence, epoch, step)
			}

			backwardStart := time.Now()
			if _, err := m.Backward(grad); err != nil {
				return nil, err
			}
			result.Timing.BackwardPassTime += time.Since(backwardStart)

			updateStart := time.Now()
			opt.Step(params)
			result.Timing.UpdateTime += time.Since(updateStart)

			epochLoss += batchLoss
			correct += countCorrect(logits, labels)
			seen += len(labels)
		}

		valLoss, valAcc, err := Evaluate(m, loss, val, cfg.BatchSize)
		if err != nil {
			return nil, err
		}

		stats := EpochStats{
			Epoch:     epoch,
			TrainLoss: epochLoss / float64(steps),
			TrainAcc:  float64(correct) / float64(seen),
			ValLoss:   valLoss,
			ValAcc:    valAcc,
			Duration:  time.Since(epochStart),
		}
		result.Epochs = append(result.Epochs, stats)

		logger.Info("epoch complete",
			zap.Int("epoch", epoch),
			zap.Int("of", cfg.Epochs),
			zap.Float64("train_loss", stats.TrainLoss),
			zap.Float64("train_acc", stats.TrainAcc),
			zap.Float64("val_loss", stats.ValLoss),
			zap.Float64("val_acc", stats.ValAcc),
			zap.Duration("duration", stats.Duration),
		)
	}

	result.Timing.TotalTime = time.Since(totalStart)
	return result, nil
}

// nextBatch pulls either the in-order mini-batch or the next augmented
// batch from the stream.
func nextBatch(ctx context.Context, train *dataset.Set, batches <-chan augment.Batch, augErr <-chan error,
	cfg Config, step int) (input *tensor.Tensor, labels []int, err error) {

	if batches == nil {
		t, l, err := train.Batch(step*cfg.BatchSize, cfg.BatchSize)
		return t, l, err
	}
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case err, ok := <-augErr:
		if ok && err != nil {
			return nil, nil, err
		}
		return nil, nil, errors.New("trainer: augmentation stream closed")
	case batch, ok := <-batches:
		if !ok {
			return nil, nil, errors.New("trainer: augmentation stream closed")
		}
		return batch.Input, batch.Labels, nil
	}
}

// Evaluate computes mean loss and accuracy over a labeled set in
// inference mode.
func Evaluate(m *nn.Sequential, loss nn.Loss, set *dataset.Set, batchSize int) (meanLoss, acc float64, err error) {
	if set.Len() == 0 {
		return 0, 0, dataset.ErrEmptyDataset
	}
	m.SetTraining(false)
	defer m.SetTraining(true)

	totalLoss := 0.0
	correct := 0
	batchesSeen := 0
	for start := 0; start < set.Len(); start += batchSize {
		input, labels, err := set.Batch(start, batchSize)
		if err != nil {
			return 0, 0, err
		}
		logits, err := m.Forward(input)
		if err != nil {
			return 0, 0, err
		}
		batchLoss, _, err := loss.Batch(logits, labels)
		if err != nil {
			return 0, 0, err
		}
		totalLoss += batchLoss
		correct += countCorrect(logits, labels)
		batchesSeen++
	}
	return totalLoss / float64(batchesSeen), float64(correct) / float64(set.Len()), nil
}

func countCorrect(logits *tensor.Tensor, labels []int) int {
	b, c := logits.Shape[0], logits.Shape[1]
	correct := 0
	for i := 0; i < b && i < len(labels); i++ {
		best := 0
		for j := 1; j < c; j++ {
			if logits.Data[i*c+j] > logits.Data[i*c+best] {
				best = j
			}
		}
		if best == labels[i] {
			correct++
		}
	}
	return correct
}
