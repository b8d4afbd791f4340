package nn

import "math"

// Adam is a first-order adaptive gradient optimizer with a fixed
// learning rate. Moment estimates are kept per parameter across steps.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	step  int
	state map[*Param]*adamState
}

type adamState struct {
	m, v []float64
}

// NewAdam returns an Adam optimizer with the usual defaults for the
// moment decay rates.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-7,
		state: make(map[*Param]*adamState),
	}
}

// Step applies one bias-corrected update to every parameter using the
// gradients left by the last backward pass.
func (a *Adam) Step(params []*Param) {
	if a.state == nil {
		a.state = make(map[*Param]*adamState)
	}
	a.step++
	c1 := 1 - math.Pow(a.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.Beta2, float64(a.step))

	for _, p := range params {
		st, ok := a.state[p]
		if !ok {
			st = &adamState{
				m: make([]float64, len(p.Value.Data)),
				v: make([]float64, len(p.Value.Data)),
			}
			a.state[p] = st
		}
		for i, g := range p.Grad.Data {
			st.m[i] = a.Beta1*st.m[i] + (1-a.Beta1)*g
			st.v[i] = a.Beta2*st.v[i] + (1-a.Beta2)*g*g
			mHat := st.m[i] / c1
			vHat := st.v[i] / c2
			p.Value.Data[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
		}
	}
}
