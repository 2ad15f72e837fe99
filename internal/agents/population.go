package agents

import (
	"slices"

	"github.com/talgya/gridworld/internal/ecs"
)

// Mask selects optional components in a Query.
type Mask uint8

const (
	HasPartner Mask = 1 << iota
	HasMother
	HasFertility
	HasPregnancy
)

// Population is the entity store for people. Every live entity carries a
// Person; the partner, mother, fertility and pregnancy components are optional.
//
// Population is not safe for concurrent use; the owning world serializes access.
type Population struct {
	pool     *ecs.Pool
	registry *ecs.Registry

	people    *ecs.Store[Person]
	partners  *ecs.Store[ecs.Entity]
	mothers   *ecs.Store[ecs.Entity]
	fertility *ecs.Store[Fertility]
	pregnancy *ecs.Store[Pregnancy]
}

// NewPopulation creates an empty store.
func NewPopulation() *Population {
	p := &Population{
		pool:      ecs.NewPool(),
		registry:  ecs.NewRegistry(),
		people:    ecs.NewStore[Person](),
		partners:  ecs.NewStore[ecs.Entity](),
		mothers:   ecs.NewStore[ecs.Entity](),
		fertility: ecs.NewStore[Fertility](),
		pregnancy: ecs.NewStore[Pregnancy](),
	}
	p.registry.Register(p.people)
	p.registry.Register(p.partners)
	p.registry.Register(p.mothers)
	p.registry.Register(p.fertility)
	p.registry.Register(p.pregnancy)
	return p
}

// Spawn creates an entity holding person.
func (p *Population) Spawn(person Person) ecs.Entity {
	e := p.pool.Create()
	p.people.Set(e, &person)
	return e
}

// Despawn destroys e and every component it holds. Links held by others
// that point at e are left in place and become stale.
func (p *Population) Despawn(e ecs.Entity) bool {
	if !p.pool.Alive(e) {
		return false
	}
	p.registry.RemoveAll(e)
	return p.pool.Destroy(e)
}

// Contains reports whether e is a live person.
func (p *Population) Contains(e ecs.Entity) bool {
	return p.pool.Alive(e)
}

// Len returns the number of live people.
func (p *Population) Len() int {
	return p.people.Len()
}

// Clear destroys every entity.
func (p *Population) Clear() {
	p.registry.ClearAll()
	p.pool.Reset()
}

// Person returns the base record for e. The pointer stays valid until e is
// despawned.
func (p *Population) Person(e ecs.Entity) (*Person, bool) {
	return p.people.Get(e)
}

// Partner returns the partner handle held by e. The handle may be stale.
func (p *Population) Partner(e ecs.Entity) (ecs.Entity, bool) {
	if v, ok := p.partners.Get(e); ok {
		return *v, true
	}
	return 0, false
}

// SetPartner links e to partner on e's side only.
func (p *Population) SetPartner(e, partner ecs.Entity) {
	if !p.pool.Alive(e) {
		return
	}
	p.partners.Set(e, &partner)
}

// ClearPartner removes e's partner link.
func (p *Population) ClearPartner(e ecs.Entity) {
	p.partners.Remove(e)
}

// Mother returns the mother handle held by e. The mother may have died.
func (p *Population) Mother(e ecs.Entity) (ecs.Entity, bool) {
	if v, ok := p.mothers.Get(e); ok {
		return *v, true
	}
	return 0, false
}

// SetMother records e's mother. Existing links are never replaced.
func (p *Population) SetMother(e, mother ecs.Entity) {
	if !p.pool.Alive(e) || p.mothers.Has(e) {
		return
	}
	p.mothers.Set(e, &mother)
}

func (p *Population) Fertility(e ecs.Entity) (*Fertility, bool) {
	return p.fertility.Get(e)
}

func (p *Population) SetFertility(e ecs.Entity, f Fertility) {
	if !p.pool.Alive(e) {
		return
	}
	p.fertility.Set(e, &f)
}

func (p *Population) Pregnancy(e ecs.Entity) (*Pregnancy, bool) {
	return p.pregnancy.Get(e)
}

func (p *Population) SetPregnancy(e ecs.Entity, preg Pregnancy) {
	if !p.pool.Alive(e) {
		return
	}
	p.pregnancy.Set(e, &preg)
}

func (p *Population) ClearPregnancy(e ecs.Entity) {
	p.pregnancy.Remove(e)
}

// Has reports which of the components in m entity e holds.
func (p *Population) Has(e ecs.Entity) Mask {
	var m Mask
	if p.partners.Has(e) {
		m |= HasPartner
	}
	if p.mothers.Has(e) {
		m |= HasMother
	}
	if p.fertility.Has(e) {
		m |= HasFertility
	}
	if p.pregnancy.Has(e) {
		m |= HasPregnancy
	}
	return m
}

// Query collects every person holding all of with and none of without,
// ordered by handle. The result is a snapshot; callers may mutate the store
// while walking it.
func (p *Population) Query(with, without Mask) []ecs.Entity {
	out := make([]ecs.Entity, 0, p.people.Len())
	p.people.Each(func(e ecs.Entity, _ *Person) {
		m := p.Has(e)
		if m&with == with && m&without == 0 {
			out = append(out, e)
		}
	})
	slices.Sort(out)
	return out
}

// Each visits every live person. fn must not spawn or despawn.
func (p *Population) Each(fn func(ecs.Entity, *Person)) {
	p.people.Each(fn)
}
