package layers

import (
	"fmt"
	"math"

	"digitnet/nn"
	"digitnet/tensor"
)

// BatchNorm normalizes activations per feature. For [batch, chan, H, W]
// inputs the statistics pool over batch and spatial dims per channel;
// for [batch, features] inputs they pool over the batch per column.
// Training mode uses batch statistics and maintains running averages;
// inference mode uses the running averages.
type BatchNorm struct {
	features int
	eps      float64
	momentum float64

	gamma *nn.Param
	beta  *nn.Param

	runMean *tensor.Tensor
	runVar  *tensor.Tensor

	training bool

	lastXHat   *tensor.Tensor
	lastInvStd []float64
}

func NewBatchNorm(features int) *BatchNorm {
	bn := &BatchNorm{
		features: features,
		eps:      1e-3,
		momentum: 0.99,
		gamma: &nn.Param{
			Value: tensor.New(features),
			Grad:  tensor.New(features),
		},
		beta: &nn.Param{
			Value: tensor.New(features),
			Grad:  tensor.New(features),
		},
		runMean:  tensor.New(features),
		runVar:   tensor.New(features),
		training: true,
	}
	for i := 0; i < features; i++ {
		bn.gamma.Value.Data[i] = 1
		bn.runVar.Data[i] = 1
	}
	return bn
}

// SetTraining toggles between batch statistics and running averages.
func (bn *BatchNorm) SetTraining(training bool) { bn.training = training }

// dims extracts (batch, spatial) extents and validates the feature dim.
func (bn *BatchNorm) dims(shape []int) (batch, spatial int, err error) {
	switch len(shape) {
	case 2:
		batch, spatial = shape[0], 1
	case 4:
		batch, spatial = shape[0], shape[2]*shape[3]
	default:
		return 0, 0, fmt.Errorf("batchnorm: input must be 2D or 4D, got %v", shape)
	}
	if shape[1] != bn.features {
		return 0, 0, fmt.Errorf("batchnorm: expected %d features, got %d", bn.features, shape[1])
	}
	return batch, spatial, nil
}

func (bn *BatchNorm) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	batch, spatial, err := bn.dims(input.Shape)
	if err != nil {
		return nil, err
	}
	n := float64(batch * spatial)
	stride := bn.features * spatial

	mean := make([]float64, bn.features)
	variance := make([]float64, bn.features)
	if bn.training {
		for c := 0; c < bn.features; c++ {
			sum := 0.0
			for b := 0; b < batch; b++ {
				base := b*stride + c*spatial
				for s := 0; s < spatial; s++ {
					sum += input.Data[base+s]
				}
			}
			mean[c] = sum / n
		}
		for c := 0; c < bn.features; c++ {
			sum := 0.0
			for b := 0; b < batch; b++ {
				base := b*stride + c*spatial
				for s := 0; s < spatial; s++ {
					d := input.Data[base+s] - mean[c]
					sum += d * d
				}
			}
			variance[c] = sum / n
			bn.runMean.Data[c] = bn.momentum*bn.runMean.Data[c] + (1-bn.momentum)*mean[c]
			bn.runVar.Data[c] = bn.momentum*bn.runVar.Data[c] + (1-bn.momentum)*variance[c]
		}
	} else {
		copy(mean, bn.runMean.Data)
		copy(variance, bn.runVar.Data)
	}

	invStd := make([]float64, bn.features)
	for c := range invStd {
		invStd[c] = 1 / math.Sqrt(variance[c]+bn.eps)
	}

	output := tensor.New(input.Shape...)
	xhat := tensor.New(input.Shape...)
	for c := 0; c < bn.features; c++ {
		g, bt := bn.gamma.Value.Data[c], bn.beta.Value.Data[c]
		for b := 0; b < batch; b++ {
			base := b*stride + c*spatial
			for s := 0; s < spatial; s++ {
				xh := (input.Data[base+s] - mean[c]) * invStd[c]
				xhat.Data[base+s] = xh
				output.Data[base+s] = g*xh + bt
			}
		}
	}

	if bn.training {
		bn.lastXHat = xhat
		bn.lastInvStd = invStd
	}
	return output, nil
}

func (bn *BatchNorm) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if bn.lastXHat == nil {
		return nil, fmt.Errorf("batchnorm: no cached input for backward pass")
	}
	batch, spatial, err := bn.dims(gradOut.Shape)
	if err != nil {
		return nil, err
	}
	n := float64(batch * spatial)
	stride := bn.features * spatial

	gradIn := tensor.New(gradOut.Shape...)
	for c := 0; c < bn.features; c++ {
		sumDy := 0.0
		sumDyXHat := 0.0
		for b := 0; b < batch; b++ {
			base := b*stride + c*spatial
			for s := 0; s < spatial; s++ {
				dy := gradOut.Data[base+s]
				sumDy += dy
				sumDyXHat += dy * bn.lastXHat.Data[base+s]
			}
		}
		bn.gamma.Grad.Data[c] = sumDyXHat
		bn.beta.Grad.Data[c] = sumDy

		scale := bn.gamma.Value.Data[c] * bn.lastInvStd[c] / n
		for b := 0; b < batch; b++ {
			base := b*stride + c*spatial
			for s := 0; s < spatial; s++ {
				dy := gradOut.Data[base+s]
				xh := bn.lastXHat.Data[base+s]
				gradIn.Data[base+s] = scale * (n*dy - sumDy - xh*sumDyXHat)
			}
		}
	}
	return gradIn, nil
}

func (bn *BatchNorm) Params() []*nn.Param {
	return []*nn.Param{bn.gamma, bn.beta}
}

// State exposes the running statistics so they persist with saved
// weights without being touched by the optimizer.
func (bn *BatchNorm) State() []*tensor.Tensor {
	return []*tensor.Tensor{bn.runMean, bn.runVar}
}

func (bn *BatchNorm) Tag() string {
	return fmt.Sprintf("BatchNorm_%d", bn.features)
}
