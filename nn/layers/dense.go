package layers

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"digitnet/nn"
	"digitnet/tensor"
)

// Dense is a fully-connected layer computing y = x·Wᵀ + b over a
// [batch, in] tensor, backed by gonum matrices.
type Dense struct {
	inDim, outDim int

	w *nn.Param // [outDim, inDim]
	b *nn.Param // [outDim]

	lastInput *tensor.Tensor
}

// NewDense creates a fully-connected layer with He-normal weights.
func NewDense(inDim, outDim int, src rand.Source) *Dense {
	d := &Dense{
		inDim:  inDim,
		outDim: outDim,
		w: &nn.Param{
			Value: tensor.New(outDim, inDim),
			Grad:  tensor.New(outDim, inDim),
		},
		b: &nn.Param{
			Value: tensor.New(outDim),
			Grad:  tensor.New(outDim),
		},
	}
	normal := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(inDim)), Src: src}
	for i := range d.w.Value.Data {
		d.w.Value.Data[i] = normal.Rand()
	}
	return d
}

func (d *Dense) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 2 || x.Shape[1] != d.inDim {
		return nil, fmt.Errorf("dense: input must be [batch, %d], got %v", d.inDim, x.Shape)
	}
	batch := x.Shape[0]
	d.lastInput = x

	xm := mat.NewDense(batch, d.inDim, x.Data)
	wm := mat.NewDense(d.outDim, d.inDim, d.w.Value.Data)

	var ym mat.Dense
	ym.Mul(xm, wm.T())

	out := tensor.New(batch, d.outDim)
	copy(out.Data, ym.RawMatrix().Data)
	for i := 0; i < batch; i++ {
		for j := 0; j < d.outDim; j++ {
			out.Data[i*d.outDim+j] += d.b.Value.Data[j]
		}
	}
	return out, nil
}

func (d *Dense) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if d.lastInput == nil {
		return nil, fmt.Errorf("dense: no cached input for backward pass")
	}
	if len(gradOut.Shape) != 2 || gradOut.Shape[1] != d.outDim {
		return nil, fmt.Errorf("dense: gradOut must be [batch, %d], got %v", d.outDim, gradOut.Shape)
	}
	batch := gradOut.Shape[0]

	gm := mat.NewDense(batch, d.outDim, gradOut.Data)
	xm := mat.NewDense(batch, d.inDim, d.lastInput.Data)
	wm := mat.NewDense(d.outDim, d.inDim, d.w.Value.Data)

	// dW = dYᵀ·X
	var dw mat.Dense
	dw.Mul(gm.T(), xm)
	copy(d.w.Grad.Data, dw.RawMatrix().Data)

	// dB = column sums of dY
	for j := 0; j < d.outDim; j++ {
		sum := 0.0
		for i := 0; i < batch; i++ {
			sum += gradOut.Data[i*d.outDim+j]
		}
		d.b.Grad.Data[j] = sum
	}

	// dX = dY·W
	var dx mat.Dense
	dx.Mul(gm, wm)
	gradIn := tensor.New(batch, d.inDim)
	copy(gradIn.Data, dx.RawMatrix().Data)
	return gradIn, nil
}

func (d *Dense) Params() []*nn.Param {
	return []*nn.Param{d.w, d.b}
}

func (d *Dense) Tag() string {
	return fmt.Sprintf("Dense_%d_%d", d.inDim, d.outDim)
}
