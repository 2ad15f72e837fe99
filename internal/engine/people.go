package engine

import (
	"cmp"
	"slices"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
)

// PersonView is a read-only copy of one person with derived fields.
type PersonView struct {
	ID          agents.PersonID   `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Location    agents.LocationID `json:"location"`
	Sex         agents.Sex        `json:"sex"`
	Birth       calendar.Date     `json:"birth"`
	AgeYears    uint32            `json:"age_years"`
	IsPartnered bool              `json:"is_partnered"`
	IsPregnant  bool              `json:"is_pregnant"`
	PartnerID   *agents.PersonID  `json:"partner_id,omitempty"`
	MotherID    *agents.PersonID  `json:"mother_id,omitempty"`
}

func (w *World) view(e ecs.Entity, p *agents.Person) PersonView {
	m := w.pop.Has(e)
	v := PersonView{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Location:    p.Location,
		Sex:         p.Sex,
		Birth:       p.Birth,
		AgeYears:    calendar.AgeYears(p.Birth, w.date),
		IsPartnered: m&agents.HasPartner != 0,
		IsPregnant:  m&agents.HasPregnancy != 0,
	}
	if partner, ok := w.pop.Partner(e); ok {
		if id, ok := w.personID(partner); ok {
			v.PartnerID = &id
		}
	}
	if mother, ok := w.pop.Mother(e); ok {
		if id, ok := w.personID(mother); ok {
			v.MotherID = &id
		}
	}
	return v
}

// People returns every living person ordered by id.
func (w *World) People() []PersonView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collect(func(*agents.Person) bool { return true })
}

// PeopleAt returns the people living at loc ordered by id.
func (w *World) PeopleAt(loc agents.LocationID) []PersonView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collect(func(p *agents.Person) bool { return p.Location == loc })
}

// Person looks up one living person by id.
func (w *World) Person(id agents.PersonID) (PersonView, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.byID[id]
	if !ok {
		return PersonView{}, false
	}
	p, ok := w.pop.Person(e)
	if !ok {
		return PersonView{}, false
	}
	return w.view(e, p), true
}

func (w *World) collect(keep func(*agents.Person) bool) []PersonView {
	var out []PersonView
	w.pop.Each(func(e ecs.Entity, p *agents.Person) {
		if keep(p) {
			out = append(out, w.view(e, p))
		}
	})
	slices.SortFunc(out, func(a, b PersonView) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
