package evo

import "sync"

// statsHub fans PopulationStats out to every subscriber of one run. Late
// subscribers get the retained history first. A subscriber that does not
// keep up loses values instead of stalling the generation loop.
type statsHub struct {
	mu       sync.Mutex
	capacity int
	history  []PopulationStats
	subs     []chan PopulationStats
	closed   bool
	observer Observer
}

func newStatsHub(capacity int, observer Observer) *statsHub {
	return &statsHub{capacity: capacity, observer: observer}
}

func (h *statsHub) subscribe() <-chan PopulationStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan PopulationStats, h.capacity)
	for _, s := range h.history {
		h.offer(ch, s)
	}
	if h.closed {
		close(ch)
		return ch
	}
	h.subs = append(h.subs, ch)
	return ch
}

func (h *statsHub) publish(s PopulationStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.history = append(h.history, s)
	if len(h.history) > h.capacity {
		h.history = h.history[len(h.history)-h.capacity:]
	}
	for _, ch := range h.subs {
		h.offer(ch, s)
	}
}

func (h *statsHub) offer(ch chan PopulationStats, s PopulationStats) {
	select {
	case ch <- s:
	default:
		h.observer.StatsDropped()
	}
}

// close ends every subscription. Safe to call more than once.
func (h *statsHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}

func closedStats() <-chan PopulationStats {
	ch := make(chan PopulationStats)
	close(ch)
	return ch
}
