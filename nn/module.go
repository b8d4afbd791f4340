// Package nn holds the layer contract, losses, and the optimizer used
// by the digit classifier.
package nn

import (
	"digitnet/tensor"
)

// Param is one learnable tensor together with its gradient. Layers own
// their Params; the optimizer mutates Value in place once per step.
type Param struct {
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	// Backward computes gradients and propagates them.
	// It takes the gradient of the loss with respect to the module's output,
	// and returns the gradient of the loss with respect to the module's input.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
	// Params returns the learnable parameters, empty for stateless layers.
	Params() []*Param
	Tag() string
}

// Trainable is implemented by layers that behave differently during
// training and inference (batch normalization).
type Trainable interface {
	SetTraining(training bool)
}

// Stateful is implemented by layers carrying non-learnable state that
// must survive a save/load round trip (running statistics) without
// being stepped by the optimizer.
type Stateful interface {
	State() []*tensor.Tensor
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for _, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Params collects the parameters of all layers.
func (s *Sequential) Params() []*Param {
	var params []*Param
	for _, layer := range s.Layers {
		params = append(params, layer.Params()...)
	}
	return params
}

// SetTraining switches every mode-dependent layer between training and
// inference behavior.
func (s *Sequential) SetTraining(training bool) {
	for _, layer := range s.Layers {
		if t, ok := layer.(Trainable); ok {
			t.SetTraining(training)
		}
	}
}
