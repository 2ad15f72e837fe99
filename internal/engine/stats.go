package engine

import (
	"maps"
	"slices"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/events"
)

// AgeBracketLabels names the Demographics.AgeBrackets slots.
var AgeBracketLabels = [7]string{"0-4", "5-14", "15-29", "30-49", "50-69", "70-89", "90+"}

// Demographics is a point-in-time breakdown of the living population.
type Demographics struct {
	Population  int     `json:"population"`
	Males       int     `json:"males"`
	Females     int     `json:"females"`
	Partnered   int     `json:"partnered"`
	Single      int     `json:"single"`
	Pregnant    int     `json:"pregnant"`
	AverageAge  float64 `json:"average_age"`
	AgeBrackets [7]int  `json:"age_brackets"`
}

func ageBracket(age uint32) int {
	switch {
	case age < 5:
		return 0
	case age < 15:
		return 1
	case age < 30:
		return 2
	case age < 50:
		return 3
	case age < 70:
		return 4
	case age < 90:
		return 5
	default:
		return 6
	}
}

// Demographics computes the current population breakdown.
func (w *World) Demographics() Demographics {
	w.mu.Lock()
	defer w.mu.Unlock()

	var d Demographics
	var totalAge uint64
	w.pop.Each(func(e ecs.Entity, p *agents.Person) {
		d.Population++
		if p.Sex == agents.SexMale {
			d.Males++
		} else {
			d.Females++
		}
		m := w.pop.Has(e)
		if m&agents.HasPartner != 0 {
			d.Partnered++
		} else {
			d.Single++
		}
		if m&agents.HasPregnancy != 0 {
			d.Pregnant++
		}
		age := calendar.AgeYears(p.Birth, w.date)
		totalAge += uint64(age)
		d.AgeBrackets[ageBracket(age)]++
	})
	if d.Population > 0 {
		d.AverageAge = float64(totalAge) / float64(d.Population)
	}
	return d
}

// LocationCount is one row of a per-location population breakdown.
type LocationCount struct {
	Location agents.LocationID `json:"location"`
	Count    int               `json:"count"`
}

// PopulationByLocation returns the number of people per occupied location,
// ordered by location id.
func (w *World) PopulationByLocation() []LocationCount {
	w.mu.Lock()
	defer w.mu.Unlock()

	counts := make(map[agents.LocationID]int)
	w.pop.Each(func(_ ecs.Entity, p *agents.Person) {
		counts[p.Location]++
	})
	out := make([]LocationCount, 0, len(counts))
	for _, loc := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, LocationCount{Location: loc, Count: counts[loc]})
	}
	return out
}

// LocationPopulation returns the number of people living at loc.
func (w *World) LocationPopulation(loc agents.LocationID) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	w.pop.Each(func(_ ecs.Entity, p *agents.Person) {
		if p.Location == loc {
			n++
		}
	})
	return n
}

// VitalStatistics holds event counts for a year range and their rates per
// thousand living people.
type VitalStatistics struct {
	StartYear       uint32  `json:"start_year"`
	EndYear         uint32  `json:"end_year"`
	Population      int     `json:"population"`
	Births          int     `json:"births"`
	Deaths          int     `json:"deaths"`
	Marriages       int     `json:"marriages"`
	BirthRate       float64 `json:"birth_rate"`
	DeathRate       float64 `json:"death_rate"`
	MarriageRate    float64 `json:"marriage_rate"`
	NaturalIncrease float64 `json:"natural_increase_rate"`
}

// VitalStatistics counts events in the inclusive year range. Rates are
// count*1000/population and do not depend on the length of the range.
func (w *World) VitalStatistics(start, end uint32) VitalStatistics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vitalStatistics(start, end)
}

// CurrentYearStatistics is VitalStatistics for the current year only.
func (w *World) CurrentYearStatistics() VitalStatistics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vitalStatistics(w.date.Year, w.date.Year)
}

// RecentStatistics covers the last years calendar years including the
// current one. Zero is treated as one.
func (w *World) RecentStatistics(years uint32) VitalStatistics {
	w.mu.Lock()
	defer w.mu.Unlock()

	if years == 0 {
		years = 1
	}
	start := uint32(0)
	if w.date.Year >= years-1 {
		start = w.date.Year - (years - 1)
	}
	return w.vitalStatistics(start, w.date.Year)
}

func (w *World) vitalStatistics(start, end uint32) VitalStatistics {
	if end < start {
		start, end = end, start
	}
	vs := VitalStatistics{
		StartYear:  start,
		EndYear:    end,
		Population: w.pop.Len(),
		Births:     w.log.CountInRange(events.Birth, start, end),
		Deaths:     w.log.CountInRange(events.Death, start, end),
		Marriages:  w.log.CountInRange(events.Marriage, start, end),
	}
	vs.BirthRate = perThousand(vs.Births, vs.Population)
	vs.DeathRate = perThousand(vs.Deaths, vs.Population)
	vs.MarriageRate = perThousand(vs.Marriages, vs.Population)
	vs.NaturalIncrease = vs.BirthRate - vs.DeathRate
	return vs
}

func perThousand(count, pop int) float64 {
	if pop == 0 {
		return 0
	}
	return float64(count) * 1000 / float64(pop)
}

// RecentEvents returns up to n events, newest first.
func (w *World) RecentEvents(n int) []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log.Recent(n)
}

// EventCount returns the number of events currently retained.
func (w *World) EventCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.log.Len()
}
