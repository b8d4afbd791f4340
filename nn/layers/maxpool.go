package layers

import (
	"fmt"

	"digitnet/nn"
	"digitnet/tensor"
)

// MaxPool2D downsamples [batch, chan, H, W] with a p×p window and
// stride p, keeping the maximum of each window.
type MaxPool2D struct {
	poolSize int

	lastShape []int
	argmax    []int // flat input index of each output's winning element
}

func NewMaxPool2D(p int) *MaxPool2D {
	return &MaxPool2D{poolSize: p}
}

func (m *MaxPool2D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 4 {
		return nil, fmt.Errorf("maxpool2d: input must be [batch, chan, h, w], got %v", input.Shape)
	}
	batch, ch, height, width := input.Shape[0], input.Shape[1], input.Shape[2], input.Shape[3]
	p := m.poolSize
	if height < p || width < p {
		return nil, fmt.Errorf("maxpool2d: input %dx%d smaller than pool %d", height, width, p)
	}
	outHeight := height / p
	outWidth := width / p

	output := tensor.New(batch, ch, outHeight, outWidth)
	m.lastShape = input.Shape
	m.argmax = make([]int, len(output.Data))

	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			for y := 0; y < outHeight; y++ {
				for x := 0; x < outWidth; x++ {
					bestIdx := -1
					bestVal := 0.0
					for dy := 0; dy < p; dy++ {
						for dx := 0; dx < p; dx++ {
							idx := b*ch*height*width + c*height*width + (y*p+dy)*width + (x*p + dx)
							if bestIdx < 0 || input.Data[idx] > bestVal {
								bestIdx = idx
								bestVal = input.Data[idx]
							}
						}
					}
					outIdx := b*ch*outHeight*outWidth + c*outHeight*outWidth + y*outWidth + x
					output.Data[outIdx] = bestVal
					m.argmax[outIdx] = bestIdx
				}
			}
		}
	}
	return output, nil
}

// Backward routes each output gradient to the input position that won
// the forward max.
func (m *MaxPool2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if m.argmax == nil {
		return nil, fmt.Errorf("maxpool2d: no cached input for backward pass")
	}
	if len(gradOut.Data) != len(m.argmax) {
		return nil, fmt.Errorf("maxpool2d: gradOut has %d values, want %d", len(gradOut.Data), len(m.argmax))
	}
	gradIn := tensor.New(m.lastShape...)
	for outIdx, inIdx := range m.argmax {
		gradIn.Data[inIdx] += gradOut.Data[outIdx]
	}
	return gradIn, nil
}

func (m *MaxPool2D) Params() []*nn.Param { return nil }

func (m *MaxPool2D) Tag() string {
	return fmt.Sprintf("MaxPool2D_%d", m.poolSize)
}
