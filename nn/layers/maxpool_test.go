package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitnet/tensor"
)

func TestMaxPool2DForward(t *testing.T) {
	pool := NewMaxPool2D(2)
	input := tensor.New(1, 1, 4, 4)
	copy(input.Data, []float64{
		1, 2, 5, 6,
		3, 4, 7, 8,
		9, 1, 2, 3,
		1, 1, 4, 1,
	})

	output, err := pool.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, output.Shape)
	assert.Equal(t, []float64{4, 8, 9, 4}, output.Data)
}

func TestMaxPool2DDropsOddEdge(t *testing.T) {
	pool := NewMaxPool2D(2)
	input := tensor.New(1, 1, 5, 5)
	output, err := pool.Forward(input)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, output.Shape)
}

func TestMaxPool2DBackwardRoutesToArgmax(t *testing.T) {
	pool := NewMaxPool2D(2)
	input := tensor.New(1, 1, 2, 2)
	copy(input.Data, []float64{1, 9, 2, 3})

	_, err := pool.Forward(input)
	require.NoError(t, err)

	grad := tensor.New(1, 1, 1, 1)
	grad.Data[0] = 5
	gradIn, err := pool.Backward(grad)
	require.NoError(t, err)

	// Only the position of the max receives gradient.
	assert.Equal(t, []float64{0, 5, 0, 0}, gradIn.Data)
}

func TestMaxPool2DBackwardWithoutForward(t *testing.T) {
	pool := NewMaxPool2D(2)
	_, err := pool.Backward(tensor.New(1, 1, 1, 1))
	assert.Error(t, err)
}
