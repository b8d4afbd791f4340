package layers

import (
	"fmt"

	"digitnet/nn"
	"digitnet/tensor"
)

// ReLU applies max(0, x) elementwise.
type ReLU struct {
	lastInput *tensor.Tensor
}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	r.lastInput = x
	out := tensor.New(x.Shape...)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return out, nil
}

func (r *ReLU) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if r.lastInput == nil {
		return nil, fmt.Errorf("relu: no cached input for backward pass")
	}
	if len(gradOut.Data) != len(r.lastInput.Data) {
		return nil, fmt.Errorf("relu: gradOut has %d values, want %d", len(gradOut.Data), len(r.lastInput.Data))
	}
	gradIn := tensor.New(gradOut.Shape...)
	for i, v := range r.lastInput.Data {
		if v > 0 {
			gradIn.Data[i] = gradOut.Data[i]
		}
	}
	return gradIn, nil
}

func (r *ReLU) Params() []*nn.Param { return nil }
func (r *ReLU) Tag() string         { return "ReLU" }
