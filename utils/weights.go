package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"digitnet/nn"
	"digitnet/tensor"
)

// WeightData represents one serializable tensor of a layer.
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// LayerWeight contains the parameters and non-learnable state of a layer.
type LayerWeight struct {
	Params []*WeightData `json:"params,omitempty"`
	State  []*WeightData `json:"state,omitempty"`
}

// ModelWeights represents all weights in a model, keyed by layer
// position and tag.
type ModelWeights struct {
	Version string                 `json:"version"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// SaveWeights saves model weights to a JSON file.
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file.
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// layerKey disambiguates layers sharing a tag by position.
func layerKey(i int, m nn.Module) string {
	return fmt.Sprintf("%02d_%s", i, m.Tag())
}

// Snapshot captures every parameter and state tensor of the model.
func Snapshot(m *nn.Sequential) *ModelWeights {
	w := &ModelWeights{Version: "1", Layers: map[string]LayerWeight{}}
	for i, layer := range m.Layers {
		lw := LayerWeight{}
		for j, p := range layer.Params() {
			lw.Params = append(lw.Params, tensorToWeightData(fmt.Sprintf("param%d", j), p.Value))
		}
		if s, ok := layer.(nn.Stateful); ok {
			for j, st := range s.State() {
				lw.State = append(lw.State, tensorToWeightData(fmt.Sprintf("state%d", j), st))
			}
		}
		if lw.Params != nil || lw.State != nil {
			w.Layers[layerKey(i, layer)] = lw
		}
	}
	return w
}

// Restore copies saved tensors back into a freshly built model of the
// same architecture.
func Restore(m *nn.Sequential, w *ModelWeights) error {
	for i, layer := range m.Layers {
		params := layer.Params()
		var state []*tensor.Tensor
		if s, ok := layer.(nn.Stateful); ok {
			state = s.State()
		}
		if len(params) == 0 && len(state) == 0 {
			continue
		}
		lw, ok := w.Layers[layerKey(i, layer)]
		if !ok {
			return fmt.Errorf("weights missing for layer %s", layerKey(i, layer))
		}
		if len(lw.Params) != len(params) || len(lw.State) != len(state) {
			return fmt.Errorf("layer %s: saved %d params/%d state, model has %d/%d",
				layerKey(i, layer), len(lw.Params), len(lw.State), len(params), len(state))
		}
		for j, p := range params {
			if err := copyInto(p.Value, lw.Params[j]); err != nil {
				return fmt.Errorf("layer %s: %w", layerKey(i, layer), err)
			}
		}
		for j, st := range state {
			if err := copyInto(st, lw.State[j]); err != nil {
				return fmt.Errorf("layer %s: %w", layerKey(i, layer), err)
			}
		}
	}
	return nil
}

func copyInto(dst *tensor.Tensor, src *WeightData) error {
	if len(src.Data) != len(dst.Data) {
		return fmt.Errorf("%s: saved %d values, want %d", src.Name, len(src.Data), len(dst.Data))
	}
	copy(dst.Data, src.Data)
	return nil
}

func tensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float64(nil), t.Data...),
	}
}
