package engine

import (
	"maps"
	"slices"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/events"
)

const (
	// MarriageAge is the minimum age in whole years for matchmaking.
	MarriageAge = 16
	// MaxAgeGap is the largest age difference a couple may have.
	MaxAgeGap = 15
)

type single struct {
	e   ecs.Entity
	age uint32
}

type singles struct {
	men, women []single
}

// processMatchmaking pairs unpartnered adults who share a location. Both
// lists are shuffled, then each man in turn takes the first woman within
// MaxAgeGap years of him.
func (w *World) processMatchmaking() int {
	byLoc := make(map[agents.LocationID]*singles)
	for _, e := range w.pop.Query(0, agents.HasPartner) {
		p, _ := w.pop.Person(e)
		age := calendar.AgeYears(p.Birth, w.date)
		if age < MarriageAge {
			continue
		}
		g := byLoc[p.Location]
		if g == nil {
			g = &singles{}
			byLoc[p.Location] = g
		}
		if p.Sex == agents.SexMale {
			g.men = append(g.men, single{e, age})
		} else {
			g.women = append(g.women, single{e, age})
		}
	}

	type couple struct{ husband, wife ecs.Entity }
	var matches []couple
	for _, loc := range slices.Sorted(maps.Keys(byLoc)) {
		g := byLoc[loc]
		if len(g.men) == 0 || len(g.women) == 0 {
			continue
		}
		w.rng.Shuffle(len(g.men), func(i, j int) { g.men[i], g.men[j] = g.men[j], g.men[i] })
		w.rng.Shuffle(len(g.women), func(i, j int) { g.women[i], g.women[j] = g.women[j], g.women[i] })

		women := g.women
		for _, man := range g.men {
			idx := slices.IndexFunc(women, func(s single) bool {
				return ageGap(man.age, s.age) <= MaxAgeGap
			})
			if idx < 0 {
				continue
			}
			matches = append(matches, couple{man.e, women[idx].e})
			women = slices.Delete(women, idx, idx+1)
		}
	}

	for _, c := range matches {
		w.pop.SetPartner(c.husband, c.wife)
		w.pop.SetPartner(c.wife, c.husband)
		if _, ok := w.pop.Fertility(c.wife); !ok {
			w.pop.SetFertility(c.wife, agents.Fertility{})
		}
		id, _ := w.personID(c.husband)
		w.record(events.Marriage, id)
	}
	return len(matches)
}

func ageGap(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
