package engine

import (
	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/events"
)

// BaseConceptionRate is the daily conception probability for a fully fertile
// partnered woman.
const BaseConceptionRate = 0.004

// processDissolutions clears partner links whose target has died. Only the
// survivor holds a link by then, so each clear is one dissolution.
func (w *World) processDissolutions() int {
	var widowed []ecs.Entity
	for _, e := range w.pop.Query(agents.HasPartner, 0) {
		partner, _ := w.pop.Partner(e)
		if !w.pop.Contains(partner) {
			widowed = append(widowed, e)
		}
	}

	for _, e := range widowed {
		w.pop.ClearPartner(e)
		id, _ := w.personID(e)
		w.record(events.Dissolution, id)
	}
	return len(widowed)
}

// conceptionRate returns the daily probability for a woman of age with the
// given history, or 0 when she is outside the window or too soon after her
// last birth.
func conceptionRate(birth calendar.Date, f agents.Fertility, now calendar.Date) float64 {
	if !agents.CanHaveChildren(agents.SexFemale, birth, now) || !f.CanGiveBirth(now) {
		return 0
	}
	ageFactor := 1.0
	if age := calendar.AgeYears(birth, now); age > 28 {
		ageFactor = max(0.1, 1-0.15*float64(age-28))
	}
	return BaseConceptionRate * ageFactor * f.ReductionFactor()
}

// processConceptions starts pregnancies among partnered women who are not
// already expecting.
func (w *World) processConceptions() int {
	var conceived []ecs.Entity
	for _, e := range w.pop.Query(agents.HasPartner, agents.HasPregnancy) {
		p, _ := w.pop.Person(e)
		if p.Sex != agents.SexFemale {
			continue
		}
		var history agents.Fertility
		if f, ok := w.pop.Fertility(e); ok {
			history = *f
		}
		rate := conceptionRate(p.Birth, history, w.date)
		if rate <= 0 {
			continue
		}
		if w.rng.Float64() < rate {
			conceived = append(conceived, e)
		}
	}

	for _, e := range conceived {
		w.pop.SetPregnancy(e, agents.NewPregnancy(w.date))
		id, _ := w.personID(e)
		w.record(events.PregnancyStarted, id)
	}
	return len(conceived)
}

// processDeliveries resolves every pregnancy whose due month has arrived and
// spawns the newborn next to the mother.
func (w *World) processDeliveries() int {
	var due []ecs.Entity
	for _, e := range w.pop.Query(agents.HasPregnancy, 0) {
		preg, _ := w.pop.Pregnancy(e)
		if preg.IsDue(w.date) {
			due = append(due, e)
		}
	}

	for _, mother := range due {
		w.pop.ClearPregnancy(mother)

		history := agents.Fertility{}
		if f, ok := w.pop.Fertility(mother); ok {
			history = *f
		}
		history.RecordBirth(w.date)
		w.pop.SetFertility(mother, history)

		mp, _ := w.pop.Person(mother)
		child := w.spawner.SpawnChild(w.date, mp, w.rng)
		ce := w.spawn(child)
		w.pop.SetMother(ce, mother)
		if child.Sex == agents.SexFemale {
			w.pop.SetFertility(ce, agents.Fertility{})
		}
		w.record(events.Birth, child.ID)
	}
	return len(due)
}
