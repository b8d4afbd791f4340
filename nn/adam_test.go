package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"digitnet/tensor"
)

func TestAdamMinimizesQuadratic(t *testing.T) {
	// Minimize f(x) = x² from x=3; gradient is 2x.
	p := &Param{
		Value: tensor.NewWithData([]float64{3}),
		Grad:  tensor.New(1),
	}
	opt := NewAdam(0.1)
	for i := 0; i < 500; i++ {
		p.Grad.Data[0] = 2 * p.Value.Data[0]
		opt.Step([]*Param{p})
	}
	assert.InDelta(t, 0, p.Value.Data[0], 1e-2)
}

func TestAdamFirstStepIsLR(t *testing.T) {
	// With bias correction, the very first update has magnitude close
	// to the learning rate regardless of gradient scale.
	p := &Param{
		Value: tensor.NewWithData([]float64{1}),
		Grad:  tensor.NewWithData([]float64{1000}),
	}
	opt := NewAdam(0.01)
	opt.Step([]*Param{p})
	assert.InDelta(t, 1-0.01, p.Value.Data[0], 1e-6)
}

func TestAdamKeepsPerParamState(t *testing.T) {
	a := &Param{Value: tensor.NewWithData([]float64{1}), Grad: tensor.NewWithData([]float64{1})}
	b := &Param{Value: tensor.NewWithData([]float64{1}), Grad: tensor.NewWithData([]float64{-1})}
	opt := NewAdam(0.01)
	opt.Step([]*Param{a, b})
	opt.Step([]*Param{a, b})
	// Opposite gradients move the values in opposite directions.
	assert.Less(t, a.Value.Data[0], 1.0)
	assert.Greater(t, b.Value.Data[0], 1.0)
}
