package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
)

func spawnN(p *Population, n int) []ecs.Entity {
	out := make([]ecs.Entity, n)
	for i := range out {
		out[i] = p.Spawn(Person{ID: PersonID(i + 1), Birth: calendar.Start()})
	}
	return out
}

func TestPopulation_QueryWithWithout(t *testing.T) {
	p := NewPopulation()
	es := spawnN(p, 4)
	p.SetPartner(es[0], es[1])
	p.SetPartner(es[1], es[0])
	p.SetPregnancy(es[1], Pregnancy{DueYear: 4001, DueMonth: 1})
	p.SetFertility(es[2], Fertility{})

	assert.ElementsMatch(t, []ecs.Entity{es[0], es[1]}, p.Query(HasPartner, 0))
	assert.ElementsMatch(t, []ecs.Entity{es[0]}, p.Query(HasPartner, HasPregnancy))
	assert.ElementsMatch(t, []ecs.Entity{es[2], es[3]}, p.Query(0, HasPartner))
	assert.Len(t, p.Query(0, 0), 4)
}

func TestPopulation_DespawnLeavesStaleLinks(t *testing.T) {
	p := NewPopulation()
	es := spawnN(p, 2)
	p.SetPartner(es[0], es[1])
	p.SetPartner(es[1], es[0])

	require.True(t, p.Despawn(es[1]))
	assert.False(t, p.Contains(es[1]))
	assert.Equal(t, 1, p.Len())

	partner, ok := p.Partner(es[0])
	require.True(t, ok, "survivor keeps the link until dissolution")
	assert.False(t, p.Contains(partner))

	_, ok = p.Person(es[1])
	assert.False(t, ok)
	assert.False(t, p.Despawn(es[1]))
}

func TestPopulation_MotherIsSetOnce(t *testing.T) {
	p := NewPopulation()
	es := spawnN(p, 3)
	p.SetMother(es[2], es[0])
	p.SetMother(es[2], es[1])
	m, ok := p.Mother(es[2])
	require.True(t, ok)
	assert.Equal(t, es[0], m)
}

func TestPopulation_SettersIgnoreDeadEntities(t *testing.T) {
	p := NewPopulation()
	es := spawnN(p, 1)
	p.Despawn(es[0])
	p.SetFertility(es[0], Fertility{ChildrenBorn: 1})
	_, ok := p.Fertility(es[0])
	assert.False(t, ok)
}

func TestPopulation_Clear(t *testing.T) {
	p := NewPopulation()
	es := spawnN(p, 3)
	p.SetFertility(es[0], Fertility{})
	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Query(HasFertility, 0))
	assert.False(t, p.Contains(es[0]))
}
