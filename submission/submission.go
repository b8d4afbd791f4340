// Package submission runs inference over the test set and writes the
// two-column Kaggle submission file.
package submission

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"digitnet/dataset"
	"digitnet/nn"
)

// Predict returns the arg-max class for every test image, in input
// order. The model is switched to inference mode; predictions on a
// frozen model are deterministic.
func Predict(m *nn.Sequential, set *dataset.Set, batchSize int) ([]int, error) {
	if set.Len() == 0 {
		return nil, dataset.ErrEmptyDataset
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("submission: batch size must be positive, got %d", batchSize)
	}
	m.SetTraining(false)

	labels := make([]int, 0, set.Len())
	for start := 0; start < set.Len(); start += batchSize {
		input, _, err := set.Batch(start, batchSize)
		if err != nil {
			return nil, err
		}
		logits, err := m.Forward(input)
		if err != nil {
			return nil, err
		}
		probs, err := nn.SoftmaxRows(logits)
		if err != nil {
			return nil, err
		}
		b, c := probs.Shape[0], probs.Shape[1]
		for i := 0; i < b; i++ {
			// Ties break toward the lowest class index.
			best := 0
			for j := 1; j < c; j++ {
				if probs.Data[i*c+j] > probs.Data[i*c+best] {
					best = j
				}
			}
			labels = append(labels, best)
		}
	}
	return labels, nil
}

// Write emits the submission table: header ImageId,Label and one row
// per prediction with 1-based sequential ids.
func Write(w io.Writer, labels []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ImageId", "Label"}); err != nil {
		return fmt.Errorf("submission: write header: %w", err)
	}
	for i, label := range labels {
		if label < 0 || label >= dataset.NumClasses {
			return fmt.Errorf("submission: row %d has label %d outside [0,%d]", i+1, label, dataset.NumClasses-1)
		}
		if err := cw.Write([]string{strconv.Itoa(i + 1), strconv.Itoa(label)}); err != nil {
			return fmt.Errorf("submission: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the submission to path.
func WriteFile(path string, labels []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("submission: create %s: %w", path, err)
	}
	defer f.Close()
	if err := Write(f, labels); err != nil {
		return err
	}
	return f.Close()
}
