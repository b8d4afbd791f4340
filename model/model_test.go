package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitnet/nn"
	"digitnet/tensor"
)

func TestBuildVariants(t *testing.T) {
	m, loss, err := Build(VariantBaseline, 42)
	require.NoError(t, err)
	assert.IsType(t, nn.CategoricalCrossEntropy{}, loss)
	assert.Len(t, m.Layers, 12)

	m, loss, err = Build(VariantBatchNorm, 42)
	require.NoError(t, err)
	assert.IsType(t, nn.SparseCategoricalCrossEntropy{}, loss)
	assert.Len(t, m.Layers, 13)
}

func TestBuildUnknownVariant(t *testing.T) {
	_, _, err := Build("resnet", 42)
	assert.Error(t, err)
}

func TestBaselineOutputShape(t *testing.T) {
	m := Baseline(42)
	x := tensor.New(2, 1, 28, 28)
	out, err := m.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10}, out.Shape)
}

func TestBatchNormNetOutputShape(t *testing.T) {
	m := BatchNormNet(42)
	m.SetTraining(true)
	x := tensor.New(3, 1, 28, 28)
	for i := range x.Data {
		x.Data[i] = float64(i%9) / 8
	}
	out, err := m.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, out.Shape)
}

func TestBuildIsSeedDeterministic(t *testing.T) {
	a, _, err := Build(VariantBaseline, 42)
	require.NoError(t, err)
	b, _, err := Build(VariantBaseline, 42)
	require.NoError(t, err)

	pa, pb := a.Params(), b.Params()
	require.Equal(t, len(pa), len(pb))
	for i := range pa {
		assert.Equal(t, pa[i].Value.Data, pb[i].Value.Data)
	}
}
