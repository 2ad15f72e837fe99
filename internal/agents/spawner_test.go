package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/entropy"
)

func TestSpawner_IDsAreMonotonic(t *testing.T) {
	s := NewSpawner(nil)
	rng := entropy.NewSource(11)
	now := calendar.Start()

	var last PersonID
	for i := 0; i < 100; i++ {
		p := s.SpawnFounder(now, 3, rng)
		assert.Greater(t, p.ID, last)
		last = p.ID
		assert.Equal(t, LocationID(3), p.Location)
		assert.False(t, now.Before(p.Birth), "founders are never born in the future")
		assert.Less(t, calendar.AgeYears(p.Birth, now), uint32(MaxSeedAge))
	}
	assert.Equal(t, PersonID(101), s.NextID())
}

func TestSpawner_ChildInheritsFromMother(t *testing.T) {
	s := NewSpawner(nil)
	s.SetNextID(50)
	now := calendar.Date{Year: 4010, Month: 4, Day: 2}
	mother := &Person{ID: 7, LastName: "Hall", Sex: SexFemale, Location: 9}

	child := s.SpawnChild(now, mother, entropy.NewSource(2))
	assert.Equal(t, PersonID(50), child.ID)
	assert.Equal(t, "Hall", child.LastName)
	assert.Equal(t, LocationID(9), child.Location)
	assert.Equal(t, now, child.Birth)
}

func TestSpawner_ChildWithoutMotherNameGetsGeneratedOne(t *testing.T) {
	s := NewSpawner(nil)
	child := s.SpawnChild(calendar.Start(), &Person{Location: 4}, entropy.NewSource(5))
	assert.NotEmpty(t, child.LastName)
	assert.Equal(t, LocationID(4), child.Location)
}
