package engine

import (
	"math"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/events"
)

// mortalityBracket maps a minimum age to an annual probability of death.
type mortalityBracket struct {
	minAge uint32
	annual float64
}

// mortalityTable is ordered by ascending minimum age.
var mortalityTable = []mortalityBracket{
	{0, 0.05},   // infant
	{5, 0.005},  // child
	{15, 0.002}, // teen
	{30, 0.003}, // young adult
	{50, 0.01},  // middle age
	{60, 0.025}, // senior
	{70, 0.05},  // elderly
	{80, 0.12},  // very old
	{90, 0.25},  // ancient
	{100, 0.5},  // centenarian
}

const defaultAnnualMortality = 0.002

// annualMortality returns the rate of the highest bracket age reaches.
func annualMortality(age uint32) float64 {
	for i := len(mortalityTable) - 1; i >= 0; i-- {
		if age >= mortalityTable[i].minAge {
			return mortalityTable[i].annual
		}
	}
	return defaultAnnualMortality
}

// dailyMortality converts the annual bracket rate into a per-day probability.
func dailyMortality(age uint32) float64 {
	return 1 - math.Pow(1-annualMortality(age), 1.0/calendar.DaysPerYear)
}

// processDeaths draws one sample per person and removes everyone who falls
// under their daily rate. Partners of the dead keep a stale link until
// dissolution runs.
func (w *World) processDeaths() int {
	all := w.pop.Query(0, 0)
	dead := make([]ecs.Entity, 0, len(all)/64+1)
	for _, e := range all {
		p, _ := w.pop.Person(e)
		if w.rng.Float64() < dailyMortality(calendar.AgeYears(p.Birth, w.date)) {
			dead = append(dead, e)
		}
	}

	for _, e := range dead {
		id, _ := w.personID(e)
		w.despawn(e)
		w.record(events.Death, id)
	}
	return len(dead)
}

// record appends an event stamped with the current date.
func (w *World) record(t events.Type, id agents.PersonID) {
	w.log.Push(events.Event{Type: t, Date: w.date, PersonID: uint64(id)})
}
