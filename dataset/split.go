package dataset

import (
	"fmt"
	"math/rand"
)

// Split partitions s into disjoint train/validation subsets. The
// validation set receives floor(fraction*N) examples chosen by a
// seeded shuffle, so the partition is reproducible across runs given
// the same seed and input order.
func Split(s *Set, fraction float64, seed int64) (train, val *Set, err error) {
	if s.Len() == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("dataset: split fraction %v outside (0,1)", fraction)
	}

	n := s.Len()
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	nVal := int(float64(n) * fraction)
	val = subset(s, perm[:nVal])
	train = subset(s, perm[nVal:])
	return train, val, nil
}

func subset(s *Set, idx []int) *Set {
	out := &Set{}
	if s.Labels != nil {
		out.Labels = make([]int, 0, len(idx))
	}
	for _, i := range idx {
		out.Images = append(out.Images, s.Images[i])
		if s.Labels != nil {
			out.Labels = append(out.Labels, s.Labels[i])
		}
	}
	return out
}
