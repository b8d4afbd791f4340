package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape(t *testing.T) {
	x := New(2, 3, 4)
	assert.Equal(t, []int{2, 3, 4}, x.Shape)
	assert.Len(t, x.Data, 24)
	assert.Equal(t, 24, x.Size())
}

func TestAtSetRoundTrip(t *testing.T) {
	x := New(2, 2)
	x.Set(3.5, 1, 0)
	assert.Equal(t, 3.5, x.At(1, 0))
	assert.Equal(t, 0.0, x.At(0, 1))
}

func TestCloneIsDeep(t *testing.T) {
	x := NewWithData([]float64{1, 2, 3})
	y := x.Clone()
	y.Data[0] = 9
	assert.Equal(t, 1.0, x.Data[0])
}

func TestReshape(t *testing.T) {
	x := NewWithData([]float64{1, 2, 3, 4, 5, 6})

	y, err := x.Reshape(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, y.Shape)
	assert.Equal(t, 6.0, y.At(1, 2))

	_, err = x.Reshape(4, 2)
	assert.Error(t, err)
}

func TestArgMaxFirstOccurrence(t *testing.T) {
	x := NewWithData([]float64{0.1, 0.4, 0.4, 0.2})
	assert.Equal(t, 1, x.ArgMax())

	zero := New(10)
	assert.Equal(t, 0, zero.ArgMax())
}
