package layers

import (
	"fmt"

	"digitnet/nn"
	"digitnet/tensor"
)

// Flatten reshapes [batch, ...] to [batch, rest] and restores the
// original shape in the backward pass.
type Flatten struct {
	lastShape []int
}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) < 2 {
		return nil, fmt.Errorf("flatten: input must have a batch dimension, got %v", x.Shape)
	}
	f.lastShape = x.Shape
	return x.Reshape(x.Shape[0], x.Size()/x.Shape[0])
}

func (f *Flatten) Backward(g *tensor.Tensor) (*tensor.Tensor, error) {
	if f.lastShape == nil {
		return nil, fmt.Errorf("flatten: no cached shape for backward pass")
	}
	return g.Reshape(f.lastShape...)
}

func (f *Flatten) Params() []*nn.Param { return nil }
func (f *Flatten) Tag() string         { return "Flatten" }
