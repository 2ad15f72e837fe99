// Person spawning for seeded founders and newborns.
package agents

import (
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/entropy"
)

// MaxSeedAge bounds the uniform age given to founders: [0, MaxSeedAge).
const MaxSeedAge = 60

// Spawner creates people and issues their IDs.
type Spawner struct {
	names  Names
	nextID PersonID
}

// NewSpawner creates a spawner whose first ID is 1.
func NewSpawner(names Names) *Spawner {
	if names == nil {
		names = DefaultNames()
	}
	return &Spawner{names: names, nextID: 1}
}

// NextID returns the ID the next spawned person will receive.
func (s *Spawner) NextID() PersonID {
	return s.nextID
}

// SetNextID sets the next person ID to be issued (used when restoring).
func (s *Spawner) SetNextID(id PersonID) {
	s.nextID = id
}

func (s *Spawner) issueID() PersonID {
	id := s.nextID
	s.nextID++
	return id
}

func randomSex(rng entropy.Source) Sex {
	if rng.Bool() {
		return SexMale
	}
	return SexFemale
}

// SpawnFounder creates a seeded person of uniform sex and age on loc.
func (s *Spawner) SpawnFounder(now calendar.Date, loc LocationID, rng entropy.Source) Person {
	sex := randomSex(rng)
	age := uint32(rng.IntN(MaxSeedAge))
	return Person{
		ID:        s.issueID(),
		FirstName: s.names.FirstName(sex, rng),
		LastName:  s.names.LastName(rng),
		Sex:       sex,
		Birth:     birthForAge(age, now, rng),
		Location:  loc,
	}
}

// SpawnChild creates a newborn to mother, born today on her tile.
func (s *Spawner) SpawnChild(now calendar.Date, mother *Person, rng entropy.Source) Person {
	sex := randomSex(rng)
	child := Person{
		ID:        s.issueID(),
		FirstName: s.names.FirstName(sex, rng),
		Sex:       sex,
		Birth:     now,
	}
	if mother != nil {
		child.LastName = mother.LastName
		child.Location = mother.Location
	}
	if child.LastName == "" {
		child.LastName = s.names.LastName(rng)
	}
	return child
}

// birthForAge picks a birth date age years before now with a random month
// and day, never later than now.
func birthForAge(age uint32, now calendar.Date, rng entropy.Source) calendar.Date {
	year := uint32(0)
	if now.Year > age {
		year = now.Year - age
	}
	birth := calendar.Date{
		Year:  year,
		Month: uint8(rng.IntN(calendar.MonthsPerYear)) + 1,
		Day:   uint8(rng.IntN(calendar.DaysPerMonth)) + 1,
	}
	if now.Before(birth) {
		return now
	}
	return birth
}
