package engine

import (
	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/entropy"
)

func newTestWorld(rng entropy.Source) *World {
	return NewWorld(Options{Rand: rng})
}

// addPerson places someone aged exactly age (in whole years) at loc.
func addPerson(w *World, sex agents.Sex, age uint32, loc agents.LocationID) ecs.Entity {
	id := w.spawner.NextID()
	w.spawner.SetNextID(id + 1)
	return w.spawn(agents.Person{
		ID:        id,
		FirstName: "Test",
		LastName:  "Family",
		Sex:       sex,
		Birth:     calendar.Date{Year: w.date.Year - age, Month: 1, Day: 1},
		Location:  loc,
	})
}

func marry(w *World, a, b ecs.Entity) {
	w.pop.SetPartner(a, b)
	w.pop.SetPartner(b, a)
}

func idOf(w *World, e ecs.Entity) uint64 {
	id, _ := w.personID(e)
	return uint64(id)
}
