package engine

import (
	"github.com/talgya/gridworld/internal/calendar"
)

// TickResult aggregates the outcome of one or more ticks.
type TickResult struct {
	Births       int           `json:"births"`
	Deaths       int           `json:"deaths"`
	Marriages    int           `json:"marriages"`
	Pregnancies  int           `json:"pregnancies"`
	Dissolutions int           `json:"dissolutions"`
	Population   int           `json:"population"`
	Date         calendar.Date `json:"date"`
}

func (r *TickResult) add(o TickResult) {
	r.Births += o.Births
	r.Deaths += o.Deaths
	r.Marriages += o.Marriages
	r.Pregnancies += o.Pregnancies
	r.Dissolutions += o.Dissolutions
	r.Population = o.Population
	r.Date = o.Date
}

// Tick advances the world by one day.
func (w *World) Tick() TickResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick()
}

// TickN advances the world by n days under a single lock and returns the
// summed counts with the final population and date.
func (w *World) TickN(n int) TickResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := TickResult{Population: w.pop.Len(), Date: w.date}
	for range n {
		res.add(w.tick())
	}
	return res
}

// tick runs the daily pipeline. The caller holds w.mu.
//
// Order matters: dissolution runs after matchmaking, so someone widowed today
// stays unavailable for marriage until tomorrow.
func (w *World) tick() TickResult {
	w.date.Advance()

	var res TickResult
	res.Deaths = w.processDeaths()
	res.Marriages = w.processMatchmaking()
	res.Dissolutions = w.processDissolutions()
	res.Pregnancies = w.processConceptions()
	res.Births = w.processDeliveries()
	res.Population = w.pop.Len()
	res.Date = w.date
	return res
}
