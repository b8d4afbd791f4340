// Package model declares the two fixed digit-classifier architectures.
// The layer graphs are authored here and are not configurable at run
// time beyond the variant name.
package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"digitnet/nn"
	"digitnet/nn/layers"
)

// Variant names accepted by Build.
const (
	VariantBaseline  = "baseline"
	VariantBatchNorm = "batchnorm"
)

// Baseline is the plain stacked conv/pool network trained against
// one-hot targets:
// Conv(32,3x3)+ReLU > Pool2 > Conv(64,3x3)+ReLU > Pool2 >
// Conv(64,3x3)+ReLU > Flatten > Dense(64)+ReLU > Dense(10).
func Baseline(seed int64) *nn.Sequential {
	src := rand.NewSource(uint64(seed))
	return &nn.Sequential{Layers: []nn.Module{
		layers.NewConv2D(1, 32, 3, 3, layers.Valid, src),
		layers.NewReLU(),
		layers.NewMaxPool2D(2),
		layers.NewConv2D(32, 64, 3, 3, layers.Valid, src),
		layers.NewReLU(),
		layers.NewMaxPool2D(2),
		layers.NewConv2D(64, 64, 3, 3, layers.Valid, src),
		layers.NewReLU(),
		layers.NewFlatten(),
		layers.NewDense(64*3*3, 64, src),
		layers.NewReLU(),
		layers.NewDense(64, 10, src),
	}}
}

// BatchNormNet is the batch-normalized variant trained against integer
// targets, with same-padded convolutions:
// Conv(32,3x3,same) > BN > ReLU > Pool2 > Conv(64,3x3,same) > BN >
// ReLU > Pool2 > Flatten > Dense(128) > BN > ReLU > Dense(10).
func BatchNormNet(seed int64) *nn.Sequential {
	src := rand.NewSource(uint64(seed))
	return &nn.Sequential{Layers: []nn.Module{
		layers.NewConv2D(1, 32, 3, 3, layers.Same, src),
		layers.NewBatchNorm(32),
		layers.NewReLU(),
		layers.NewMaxPool2D(2),
		layers.NewConv2D(32, 64, 3, 3, layers.Same, src),
		layers.NewBatchNorm(64),
		layers.NewReLU(),
		layers.NewMaxPool2D(2),
		layers.NewFlatten(),
		layers.NewDense(64*7*7, 128, src),
		layers.NewBatchNorm(128),
		layers.NewReLU(),
		layers.NewDense(128, 10, src),
	}}
}

// Build maps a variant name to its network and loss. The baseline
// variant uses categorical cross-entropy over one-hot targets; the
// batchnorm variant keeps integer labels and uses the sparse loss.
func Build(variant string, seed int64) (*nn.Sequential, nn.Loss, error) {
	switch variant {
	case VariantBaseline:
		return Baseline(seed), nn.CategoricalCrossEntropy{}, nil
	case VariantBatchNorm:
		return BatchNormNet(seed), nn.SparseCategoricalCrossEntropy{}, nil
	default:
		return nil, nil, fmt.Errorf("model: unknown variant %q", variant)
	}
}
