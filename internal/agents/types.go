// Package agents provides the person data model, the entity store that holds
// people and their optional components, and the spawner that creates them.
package agents

import (
	"fmt"

	"github.com/talgya/gridworld/internal/calendar"
)

// PersonID is a unique, never-reused identifier for a person. IDs start at 1.
type PersonID uint64

// LocationID names the map tile a person lives on.
type LocationID uint32

// Sex represents biological sex for demographic simulation.
type Sex uint8

const (
	SexMale   Sex = 0
	SexFemale Sex = 1
)

func (s Sex) String() string {
	if s == SexFemale {
		return "Female"
	}
	return "Male"
}

// ParseSex accepts "Male" or "Female".
func ParseSex(s string) (Sex, error) {
	switch s {
	case "Male":
		return SexMale, nil
	case "Female":
		return SexFemale, nil
	}
	return 0, fmt.Errorf("unknown sex %q", s)
}

func (s Sex) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sex) UnmarshalText(b []byte) error {
	v, err := ParseSex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Fertile age windows, in whole years.
const (
	MinParentAge    = 16
	MaxMotherAge    = 33
	MaxFatherAge    = 65
	MinBirthSpacing = 18 // months between births
	PregnancyMonths = 9
)

// Person holds the components every living person has.
type Person struct {
	ID        PersonID      `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Sex       Sex           `json:"sex"`
	Birth     calendar.Date `json:"birth"`
	Location  LocationID    `json:"location"`
}

// CanHaveChildren reports whether someone of sex born at birth is inside the
// fertile age window at now.
func CanHaveChildren(sex Sex, birth, now calendar.Date) bool {
	age := calendar.AgeYears(birth, now)
	if sex == SexFemale {
		return age >= MinParentAge && age <= MaxMotherAge
	}
	return age >= MinParentAge && age <= MaxFatherAge
}

// Fertility tracks a woman's birth history. LastBirthYear/Month 0/0 means
// she has never given birth.
type Fertility struct {
	LastBirthYear  uint32 `json:"last_birth_year"`
	LastBirthMonth uint8  `json:"last_birth_month"`
	ChildrenBorn   uint8  `json:"children_born"`
}

// HasGivenBirth reports whether a birth has ever been recorded.
func (f Fertility) HasGivenBirth() bool {
	return f.LastBirthYear != 0 || f.LastBirthMonth != 0
}

// CanGiveBirth enforces the minimum spacing between births.
func (f Fertility) CanGiveBirth(now calendar.Date) bool {
	if !f.HasGivenBirth() {
		return true
	}
	return calendar.MonthsSince(f.LastBirthYear, f.LastBirthMonth, now) >= MinBirthSpacing
}

// ReductionFactor is max(0.2, 1 - 0.1*children).
func (f Fertility) ReductionFactor() float64 {
	factor := 1.0 - 0.1*float64(f.ChildrenBorn)
	if factor < 0.2 {
		return 0.2
	}
	return factor
}

// RecordBirth stamps now as the last birth and bumps the child count,
// saturating at 255.
func (f *Fertility) RecordBirth(now calendar.Date) {
	f.LastBirthYear = now.Year
	f.LastBirthMonth = now.Month
	if f.ChildrenBorn < ^uint8(0) {
		f.ChildrenBorn++
	}
}

// Pregnancy marks an expecting mother. Only year and month of the due date
// are tracked.
type Pregnancy struct {
	DueYear  uint32 `json:"due_year"`
	DueMonth uint8  `json:"due_month"`
}

// NewPregnancy starts a pregnancy at now, due PregnancyMonths later.
func NewPregnancy(now calendar.Date) Pregnancy {
	y, m := now.AddMonths(PregnancyMonths)
	return Pregnancy{DueYear: y, DueMonth: m}
}

// IsDue flips on the first day of the due month.
func (p Pregnancy) IsDue(now calendar.Date) bool {
	return now.Year > p.DueYear || (now.Year == p.DueYear && now.Month >= p.DueMonth)
}
