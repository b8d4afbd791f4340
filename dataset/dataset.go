// Package dataset loads the Kaggle digit-recognizer CSV files into
// normalized image tensors and provides the deterministic
// train/validation split.
package dataset

import (
	"errors"
	"fmt"

	"digitnet/tensor"
)

// Fixed input geometry: 28x28 grayscale glyphs, ten classes.
const (
	ImageSize  = 28
	Pixels     = ImageSize * ImageSize
	NumClasses = 10
)

var (
	// ErrInputFormat reports a malformed CSV row or header.
	ErrInputFormat = errors.New("dataset: malformed input")
	// ErrEmptyDataset reports a file with a header but no data rows.
	ErrEmptyDataset = errors.New("dataset: no data rows")
	// ErrShapeMismatch reports an image tensor with unexpected dimensions.
	ErrShapeMismatch = errors.New("dataset: shape mismatch")
)

// Set is an in-memory collection of images with optional labels.
// Labels is nil for test sets.
type Set struct {
	Images []*tensor.Tensor // each [1, 28, 28], values in [0,1]
	Labels []int
}

// Len returns the number of examples.
func (s *Set) Len() int { return len(s.Images) }

// OneHot returns the 10-element one-hot target for example i.
func (s *Set) OneHot(i int) *tensor.Tensor {
	t := tensor.New(NumClasses)
	t.Data[s.Labels[i]] = 1
	return t
}

// Batch assembles examples [start, start+size) into a single
// [B, 1, 28, 28] tensor plus their labels (nil for unlabeled sets).
// The batch is truncated at the end of the set.
func (s *Set) Batch(start, size int) (*tensor.Tensor, []int, error) {
	end := start + size
	if end > s.Len() {
		end = s.Len()
	}
	if start < 0 || start >= end {
		return nil, nil, fmt.Errorf("%w: batch [%d,%d) of %d examples", ErrShapeMismatch, start, end, s.Len())
	}
	b := end - start
	out := tensor.New(b, 1, ImageSize, ImageSize)
	for i := start; i < end; i++ {
		img := s.Images[i]
		if len(img.Data) != Pixels {
			return nil, nil, fmt.Errorf("%w: image %d has %d values, want %d", ErrShapeMismatch, i, len(img.Data), Pixels)
		}
		copy(out.Data[(i-start)*Pixels:], img.Data)
	}
	var labels []int
	if s.Labels != nil {
		labels = append([]int(nil), s.Labels[start:end]...)
	}
	return out, labels, nil
}
