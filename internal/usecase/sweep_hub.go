package usecase

import (
	"sync"

	"TwQuant/internal/domain/models"
)

// SweepHub fans sweep progress out to subscribers. Slow subscribers
// lose intermediate updates rather than blocking the sweep.
type SweepHub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.SweepProgress]struct{}
}

func NewSweepHub() *SweepHub {
	return &SweepHub{subs: make(map[string]map[chan models.SweepProgress]struct{})}
}

// Subscribe registers for updates on one sweep id. The returned cancel
// function must be called when the subscriber goes away.
func (h *SweepHub) Subscribe(id string) (<-chan models.SweepProgress, func()) {
	ch := make(chan models.SweepProgress, 16)

	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan models.SweepProgress]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[id]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, id)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an update to every subscriber of its sweep.
func (h *SweepHub) Publish(p models.SweepProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[p.ID] {
		select {
		case ch <- p:
		default:
			// drop on backpressure
		}
	}
}
