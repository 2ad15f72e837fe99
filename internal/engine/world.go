// Package engine owns the simulated world: the calendar, the population store,
// the event history, and the daily pipeline that mutates them.
package engine

import (
	"sync"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/entropy"
	"github.com/talgya/gridworld/internal/events"
)

// Options configures a new World. Zero values select defaults.
type Options struct {
	Start         calendar.Date  // zero means calendar.Start()
	EventCapacity int            // zero means events.DefaultCapacity
	Names         agents.Names   // nil means the embedded lists
	Rand          entropy.Source // nil means a crypto-seeded source
}

// World is the shared simulation state. Every exported method takes the
// world lock for its full duration, so a World may be used from the host and
// a Runner at the same time.
type World struct {
	mu sync.Mutex

	start   calendar.Date
	date    calendar.Date
	pop     *agents.Population
	byID    map[agents.PersonID]ecs.Entity
	log     *events.Log
	spawner *agents.Spawner
	rng     entropy.Source
}

// NewWorld creates an empty world at the configured start date.
func NewWorld(opts Options) *World {
	if opts.Start == (calendar.Date{}) {
		opts.Start = calendar.Start()
	}
	if opts.EventCapacity <= 0 {
		opts.EventCapacity = events.DefaultCapacity
	}
	if opts.Rand == nil {
		opts.Rand = entropy.NewSystemSource()
	}
	return &World{
		start:   opts.Start,
		date:    opts.Start,
		pop:     agents.NewPopulation(),
		byID:    make(map[agents.PersonID]ecs.Entity),
		log:     events.NewLog(opts.EventCapacity),
		spawner: agents.NewSpawner(opts.Names),
		rng:     opts.Rand,
	}
}

// SetRand replaces the random source used by seeding and the pipeline.
func (w *World) SetRand(rng entropy.Source) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rng = rng
}

// Date returns the current calendar date.
func (w *World) Date() calendar.Date {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.date
}

// Population returns the number of living people.
func (w *World) Population() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pop.Len()
}

// NextPersonID returns the id the next spawned person will receive.
func (w *World) NextPersonID() agents.PersonID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawner.NextID()
}

// SeedPopulation adds n founders at location 0.
func (w *World) SeedPopulation(n int) {
	w.SeedPopulationAt(n, 0)
}

// SeedPopulationAt adds n founders at loc.
func (w *World) SeedPopulationAt(n int, loc agents.LocationID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seed(n, loc)
}

// SeedPopulationRange adds a uniformly chosen number of founders in
// [lo, hi] at loc and returns how many were added. Reversed bounds are
// swapped.
func (w *World) SeedPopulationRange(lo, hi int, loc agents.LocationID) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seedRange(lo, hi, loc)
}

func (w *World) seedRange(lo, hi int, loc agents.LocationID) int {
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		lo, hi = hi, lo
		if lo < 0 {
			lo = 0
		}
	}
	n := lo + w.rng.IntN(hi-lo+1)
	w.seed(n, loc)
	return n
}

func (w *World) seed(n int, loc agents.LocationID) {
	for range n {
		p := w.spawner.SpawnFounder(w.date, loc, w.rng)
		e := w.spawn(p)
		if p.Sex == agents.SexFemale {
			w.pop.SetFertility(e, agents.Fertility{})
		}
	}
}

// spawn adds p to the store and the id index.
func (w *World) spawn(p agents.Person) ecs.Entity {
	e := w.pop.Spawn(p)
	w.byID[p.ID] = e
	return e
}

// despawn removes e from the store and the id index. Links held by other
// people are left pointing at the dead handle.
func (w *World) despawn(e ecs.Entity) {
	if p, ok := w.pop.Person(e); ok {
		delete(w.byID, p.ID)
	}
	w.pop.Despawn(e)
}

// reset empties the world and moves the calendar to date.
func (w *World) reset(date calendar.Date) {
	w.pop.Clear()
	clear(w.byID)
	w.log.Clear()
	w.date = date
	w.spawner.SetNextID(1)
}

// personID resolves a live entity to its stable id.
func (w *World) personID(e ecs.Entity) (agents.PersonID, bool) {
	p, ok := w.pop.Person(e)
	if !ok {
		return 0, false
	}
	return p.ID, true
}
