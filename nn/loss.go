package nn

import (
	"fmt"
	"math"

	"digitnet/tensor"
)

// Loss scores a batch of logits [B, classes] against integer labels
// and returns the mean loss plus the gradient with respect to the
// logits.
type Loss interface {
	Batch(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error)
}

// Softmax applies the softmax function to a 1-D tensor.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(logits.Shape...)
	softmaxRow(logits.Data, out.Data)
	return out
}

// SoftmaxRows applies softmax independently to each row of a
// [B, classes] tensor.
func SoftmaxRows(logits *tensor.Tensor) (*tensor.Tensor, error) {
	if len(logits.Shape) != 2 {
		return nil, fmt.Errorf("nn: softmax expects [batch, classes], got %v", logits.Shape)
	}
	b, c := logits.Shape[0], logits.Shape[1]
	out := tensor.New(b, c)
	for i := 0; i < b; i++ {
		softmaxRow(logits.Data[i*c:(i+1)*c], out.Data[i*c:(i+1)*c])
	}
	return out, nil
}

func softmaxRow(in, out []float64) {
	maxLogit := in[0]
	for _, v := range in {
		if v > maxLogit {
			maxLogit = v
		}
	}
	expSum := 0.0
	for i, v := range in {
		e := math.Exp(v - maxLogit)
		out[i] = e
		expSum += e
	}
	for i := range out {
		out[i] /= expSum
	}
}

// CategoricalCrossEntropy scores softmax probabilities against one-hot
// targets built from the integer labels.
type CategoricalCrossEntropy struct{}

// Batch returns mean -sum(t*log p) over the batch and
// grad = (softmax - one_hot) / B.
func (CategoricalCrossEntropy) Batch(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	probs, err := SoftmaxRows(logits)
	if err != nil {
		return 0, nil, err
	}
	b, c := logits.Shape[0], logits.Shape[1]
	if len(labels) != b {
		return 0, nil, fmt.Errorf("nn: %d labels for batch of %d", len(labels), b)
	}
	grad := tensor.New(b, c)
	loss := 0.0
	for i := 0; i < b; i++ {
		if labels[i] < 0 || labels[i] >= c {
			return 0, nil, fmt.Errorf("nn: label %d outside [0,%d)", labels[i], c)
		}
		oneHot := make([]float64, c)
		oneHot[labels[i]] = 1
		for j := 0; j < c; j++ {
			p := probs.Data[i*c+j]
			if oneHot[j] > 0 {
				loss -= oneHot[j] * math.Log(math.Max(p, 1e-12))
			}
			grad.Data[i*c+j] = (p - oneHot[j]) / float64(b)
		}
	}
	return loss / float64(b), grad, nil
}

// SparseCategoricalCrossEntropy scores softmax probabilities against
// integer class indices directly, without materializing one-hot
// targets.
type SparseCategoricalCrossEntropy struct{}

// Batch returns mean -log p[label] over the batch and
// grad = (softmax - one_hot) / B.
func (SparseCategoricalCrossEntropy) Batch(logits *tensor.Tensor, labels []int) (float64, *tensor.Tensor, error) {
	probs, err := SoftmaxRows(logits)
	if err != nil {
		return 0, nil, err
	}
	b, c := logits.Shape[0], logits.Shape[1]
	if len(labels) != b {
		return 0, nil, fmt.Errorf("nn: %d labels for batch of %d", len(labels), b)
	}
	grad := tensor.New(b, c)
	loss := 0.0
	for i := 0; i < b; i++ {
		if labels[i] < 0 || labels[i] >= c {
			return 0, nil, fmt.Errorf("nn: label %d outside [0,%d)", labels[i], c)
		}
		loss -= math.Log(math.Max(probs.Data[i*c+labels[i]], 1e-12))
		for j := 0; j < c; j++ {
			grad.Data[i*c+j] = probs.Data[i*c+j] / float64(b)
		}
		grad.Data[i*c+labels[i]] -= 1 / float64(b)
	}
	return loss / float64(b), grad, nil
}
