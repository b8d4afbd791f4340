package layers

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"digitnet/nn"
	"digitnet/tensor"
)

// Padding selects the spatial padding mode of a convolution.
type Padding string

const (
	// Valid performs no padding; output shrinks by kernel-1.
	Valid Padding = "valid"
	// Same zero-pads so the output keeps the input's spatial size.
	Same Padding = "same"
)

// Conv2D is a 2D convolutional layer over [batch, channels, H, W]
// tensors.
type Conv2D struct {
	inChan, outChan int
	kh, kw          int
	padding         Padding

	w *nn.Param // weights: [outChan, inChan, kh, kw]
	b *nn.Param // bias: [outChan]

	// Cached padded input and original shape for the backward pass.
	lastPadded *tensor.Tensor
	lastShape  []int
}

// NewConv2D creates a convolution with He-normal initialized weights.
func NewConv2D(inChan, outChan, kh, kw int, padding Padding, src rand.Source) *Conv2D {
	c := &Conv2D{
		inChan:  inChan,
		outChan: outChan,
		kh:      kh,
		kw:      kw,
		padding: padding,
		w: &nn.Param{
			Value: tensor.New(outChan, inChan, kh, kw),
			Grad:  tensor.New(outChan, inChan, kh, kw),
		},
		b: &nn.Param{
			Value: tensor.New(outChan),
			Grad:  tensor.New(outChan),
		},
	}
	fanIn := inChan * kh * kw
	normal := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(fanIn)), Src: src}
	for i := range c.w.Value.Data {
		c.w.Value.Data[i] = normal.Rand()
	}
	return c
}

func (c *Conv2D) pad() (ph, pw int) {
	if c.padding == Same {
		return (c.kh - 1) / 2, (c.kw - 1) / 2
	}
	return 0, 0
}

// Forward performs the batched convolution.
func (c *Conv2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("conv2d: input must be [batch, chan, h, w], got %v", input.Shape)
	}
	batch, ch, height, width := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	if ch != c.inChan {
		return nil, fmt.Errorf("conv2d: expected %d input channels, got %d", c.inChan, ch)
	}

	ph, pw := c.pad()
	padded := input
	if ph > 0 || pw > 0 {
		padded = zeroPad(input, ph, pw)
	}
	pH, pW := height+2*ph, width+2*pw

	outHeight := pH - c.kh + 1
	outWidth := pW - c.kw + 1
	output := tensor.New(batch, c.outChan, outHeight, outWidth)

	c.lastPadded = padded
	c.lastShape = input.Shape

	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.outChan; oc++ {
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					sum := c.b.Value.Data[oc]
					for ic := 0; ic < c.inChan; ic++ {
						for dy := 0; dy < c.kh; dy++ {
							for dx := 0; dx < c.kw; dx++ {
								wIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
								inIdx := b*c.inChan*pH*pW + ic*pH*pW + (y+dy)*pW + (x + dx)
								sum += padded.Data[inIdx] * c.w.Value.Data[wIdx]
							}
						}
					}
					outIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + y*outWidth + x
					output.Data[outIdx] = sum
				}
			}
		}
	}
	return output, nil
}

// Backward computes weight, bias, and input gradients from gradOut.
func (c *Conv2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastPadded == nil {
		return nil, fmt.Errorf("conv2d: no cached input for backward pass")
	}
	if len(gradOut.Shape) != 4 {
		return nil, fmt.Errorf("conv2d: gradOut must be 4D, got %v", gradOut.Shape)
	}
	batch, outHeight, outWidth := gradOut.Shape[0], gradOut.Shape[2], gradOut.Shape[3]
	ph, pw := c.pad()
	pH, pW := c.lastShape[2]+2*ph, c.lastShape[3]+2*pw

	gradW := c.w.Grad
	gradB := c.b.Grad
	for i := range gradW.Data {
		gradW.Data[i] = 0
	}
	for i := range gradB.Data {
		gradB.Data[i] = 0
	}

	// Bias gradients: sum over batch and spatial positions.
	for oc := 0; oc < c.outChan; oc++ {
		for b := 0; b < batch; b++ {
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					gradB.Data[oc] += gradOut.Data[b*c.outChan*outHeight*outWidth+oc*outHeight*outWidth+y*outWidth+x]
				}
			}
		}
	}

	// Weight gradients.
	for oc := 0; oc < c.outChan; oc++ {
		for ic := 0; ic < c.inChan; ic++ {
			for dy := 0; dy < c.kh; dy++ {
				for dx := 0; dx < c.kw; dx++ {
					wGradIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
					for b := 0; b < batch; b++ {
						for y := 0; y < outHeight; y++ {
							for x := 0; x < outWidth; x++ {
								inIdx := b*c.inChan*pH*pW + ic*pH*pW + (y+dy)*pW + (x + dx)
								gradIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + y*outWidth + x
								gradW.Data[wGradIdx] += c.lastPadded.Data[inIdx] * gradOut.Data[gradIdx]
							}
						}
					}
				}
			}
		}
	}

	// Input gradients (transposed convolution) on the padded extent.
	paddedGrad := tensor.New(batch, c.inChan, pH, pW)
	for b := 0; b < batch; b++ {
		for ic := 0; ic < c.inChan; ic++ {
			for y := 0; y < pH; y++ {
				for x := 0; x < pW; x++ {
					sum := 0.0
					for oc := 0; oc < c.outChan; oc++ {
						for dy := 0; dy < c.kh; dy++ {
							for dx := 0; dx < c.kw; dx++ {
								oy := y - dy
								ox := x - dx
								if oy >= 0 && oy < outHeight && ox >= 0 && ox < outWidth {
									wIdx := oc*c.inChan*c.kh*c.kw + ic*c.kh*c.kw + dy*c.kw + dx
									gradIdx := b*c.outChan*outHeight*outWidth + oc*outHeight*outWidth + oy*outWidth + ox
									sum += c.w.Value.Data[wIdx] * gradOut.Data[gradIdx]
								}
							}
						}
					}
					paddedGrad.Data[b*c.inChan*pH*pW+ic*pH*pW+y*pW+x] = sum
				}
			}
		}
	}
	if ph == 0 && pw == 0 {
		return paddedGrad, nil
	}
	return cropPad(paddedGrad, ph, pw), nil
}

// Params returns the weight and bias parameters.
func (c *Conv2D) Params() []*nn.Param {
	return []*nn.Param{c.w, c.b}
}

func (c *Conv2D) Tag() string {
	return fmt.Sprintf("Conv2D_%d_%d_%d_%d", c.inChan, c.outChan, c.kh, c.kw)
}

// zeroPad copies x into a tensor with ph/pw zero rows/columns added on
// each spatial side.
func zeroPad(x *tensor.Tensor, ph, pw int) *tensor.Tensor {
	b, ch, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	pH, pW := h+2*ph, w+2*pw
	out := tensor.New(b, ch, pH, pW)
	for bi := 0; bi < b; bi++ {
		for ci := 0; ci < ch; ci++ {
			for y := 0; y < h; y++ {
				srcBase := bi*ch*h*w + ci*h*w + y*w
				dstBase := bi*ch*pH*pW + ci*pH*pW + (y+ph)*pW + pw
				copy(out.Data[dstBase:dstBase+w], x.Data[srcBase:srcBase+w])
			}
		}
	}
	return out
}

// cropPad removes ph/pw rows/columns from each spatial side.
func cropPad(x *tensor.Tensor, ph, pw int) *tensor.Tensor {
	b, ch, pH, pW := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	h, w := pH-2*ph, pW-2*pw
	out := tensor.New(b, ch, h, w)
	for bi := 0; bi < b; bi++ {
		for ci := 0; ci < ch; ci++ {
			for y := 0; y < h; y++ {
				srcBase := bi*ch*pH*pW + ci*pH*pW + (y+ph)*pW + pw
				dstBase := bi*ch*h*w + ci*h*w + y*w
				copy(out.Data[dstBase:dstBase+w], x.Data[srcBase:srcBase+w])
			}
		}
	}
	return out
}
