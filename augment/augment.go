// Package augment produces randomly perturbed copies of training
// images as a lazy, infinite stream of mini-batches. Augmented batches
// are consumed one per training step and never persisted.
package augment

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"digitnet/dataset"
	"digitnet/tensor"
)

// Config enumerates every perturbation and its extent. Digits are not
// flip-invariant, so HorizontalFlip stays false.
type Config struct {
	RotationDeg    float64 `yaml:"rotation_deg"`  // max rotation either way, degrees
	WidthShift     float64 `yaml:"width_shift"`   // max horizontal translation, fraction of width
	HeightShift    float64 `yaml:"height_shift"`  // max vertical translation, fraction of height
	Zoom           float64 `yaml:"zoom"`          // max zoom in/out, fraction
	Shear          float64 `yaml:"shear"`         // max shear factor either way
	HorizontalFlip bool    `yaml:"horizontal_flip"`
}

// DefaultConfig mirrors the authored augmentation range of ±10%.
func DefaultConfig() Config {
	return Config{
		RotationDeg: 10,
		WidthShift:  0.1,
		HeightShift: 0.1,
		Zoom:        0.1,
		Shear:       0.1,
	}
}

// Batch is one augmented mini-batch.
type Batch struct {
	Input  *tensor.Tensor // [B, 1, 28, 28]
	Labels []int
}

// Stream starts workers that emit augmented batches until ctx is
// cancelled. Each call starts a fresh generator; the sequence is
// infinite and consumed one batch per training step. The error channel
// receives at most one value, after all workers stop.
func Stream(ctx context.Context, set *dataset.Set, cfg Config, batchSize int, seed int64, workers int) (<-chan Batch, <-chan error, error) {
	if set.Len() == 0 {
		return nil, nil, dataset.ErrEmptyDataset
	}
	if set.Labels == nil {
		return nil, nil, fmt.Errorf("augment: training set has no labels")
	}
	if batchSize <= 0 {
		return nil, nil, fmt.Errorf("augment: batch size must be positive, got %d", batchSize)
	}
	if workers <= 0 {
		workers = 1
	}

	out := make(chan Batch, workers)
	errCh := make(chan error, 1)
	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		rng := rand.New(rand.NewSource(seed + int64(w)))
		g.Go(func() error {
			for {
				batch := makeBatch(set, cfg, batchSize, rng)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case out <- batch:
				}
			}
		})
	}

	go func() {
		err := g.Wait()
		close(out)
		if err != nil && err != context.Canceled {
			errCh <- err
		}
		close(errCh)
	}()

	return out, errCh, nil
}

func makeBatch(set *dataset.Set, cfg Config, batchSize int, rng *rand.Rand) Batch {
	input := tensor.New(batchSize, 1, dataset.ImageSize, dataset.ImageSize)
	labels := make([]int, batchSize)
	for i := 0; i < batchSize; i++ {
		idx := rng.Intn(set.Len())
		Apply(set.Images[idx], input.Data[i*dataset.Pixels:(i+1)*dataset.Pixels], cfg, rng)
		labels[i] = set.Labels[idx]
	}
	return Batch{Input: input, Labels: labels}
}

// uniform draws from [-extent, extent].
func uniform(rng *rand.Rand, extent float64) float64 {
	return (rng.Float64()*2 - 1) * extent
}

// Apply writes one randomly perturbed copy of img into dst (len 784).
// The perturbation composes rotation, shear, zoom, and translation
// about the image center; sampling is nearest-neighbor with
// out-of-bounds coordinates clamped to the nearest edge pixel.
func Apply(img *tensor.Tensor, dst []float64, cfg Config, rng *rand.Rand) {
	theta := uniform(rng, cfg.RotationDeg) * math.Pi / 180
	tx := uniform(rng, cfg.WidthShift) * dataset.ImageSize
	ty := uniform(rng, cfg.HeightShift) * dataset.ImageSize
	zoom := 1 + uniform(rng, cfg.Zoom)
	shear := uniform(rng, cfg.Shear)

	// Forward map M = R(theta)·Shear·Zoom; sample by the inverse.
	sin, cos := math.Sincos(theta)
	m00 := cos * zoom
	m01 := (cos*shear - sin) * zoom
	m10 := sin * zoom
	m11 := (sin*shear + cos) * zoom
	det := m00*m11 - m01*m10
	i00, i01 := m11/det, -m01/det
	i10, i11 := -m10/det, m00/det

	const size = dataset.ImageSize
	center := (float64(size) - 1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center - tx
			dy := float64(y) - center - ty
			sx := i00*dx + i01*dy + center
			sy := i10*dx + i11*dy + center
			// Nearest-neighbor sample, clamped to the image border.
			xi := clamp(int(math.Round(sx)), 0, size-1)
			yi := clamp(int(math.Round(sy)), 0, size-1)
			dst[y*size+x] = img.Data[yi*size+xi]
		}
	}

	if cfg.HorizontalFlip && rng.Intn(2) == 1 {
		for y := 0; y < size; y++ {
			row := dst[y*size : (y+1)*size]
			for i, j := 0, size-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
