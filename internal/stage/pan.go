package stage

import (
	"math/rand/v2"
	"sync"

	"clipforge/internal/media"
)

var panChoices = []media.Pan{
	{X: -1, Y: -1},
	{X: -1, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
}

// PanSequencer hands out pan directions so consecutive renders never drift
// the same way twice in a row. It is safe for concurrent use.
type PanSequencer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	last    media.Pan
	started bool
}

// NewPanSequencer seeds a sequencer. Equal seeds yield equal sequences.
func NewPanSequencer(seed uint64) *PanSequencer {
	return &PanSequencer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns a pan that differs from the previous one.
func (s *PanSequencer) Next() media.Pan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		s.last = panChoices[s.rng.IntN(len(panChoices))]
		return s.last
	}
	candidates := make([]media.Pan, 0, len(panChoices)-1)
	for _, p := range panChoices {
		if p != s.last {
			candidates = append(candidates, p)
		}
	}
	s.last = candidates[s.rng.IntN(len(candidates))]
	return s.last
}
