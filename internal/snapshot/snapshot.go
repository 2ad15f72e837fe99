// Package snapshot defines the versioned, handle-independent serialization of
// a world: a JSON text form for export/import and a MessagePack save file that
// wraps it with a seed and an opaque host blob.
package snapshot

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/talgya/gridworld/internal/events"
)

// Version is the only schema version this build reads and writes.
const Version uint8 = 1

var (
	// ErrUnsupportedVersion is returned when a payload declares a schema
	// version other than Version. Nothing has been mutated.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrMalformed is returned when a text or binary payload cannot be decoded
	// or fails validation. Nothing has been mutated.
	ErrMalformed = errors.New("malformed snapshot")

	// ErrInvalidState is returned by a load whose opaque state blob is not
	// valid UTF-8. The world has already been restored when this is returned.
	ErrInvalidState = errors.New("state blob is not valid text")

	// ErrIO wraps filesystem failures while saving or loading.
	ErrIO = errors.New("snapshot i/o")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Data is a complete world snapshot.
type Data struct {
	Version      uint8    `json:"version"`
	Calendar     Calendar `json:"calendar"`
	NextPersonID uint64   `json:"next_person_id"`
	People       []Person `json:"people"`
	Events       []Event  `json:"events"`
}

type Calendar struct {
	Year  uint32 `json:"year"`
	Month uint8  `json:"month"`
	Day   uint8  `json:"day"`
}

// Person is one living person. Partner and mother are stable person IDs.
type Person struct {
	PersonID   uint64     `json:"person_id"`
	TileID     uint32     `json:"tile_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Sex        string     `json:"sex"`
	BirthYear  uint32     `json:"birth_year"`
	BirthMonth uint8      `json:"birth_month"`
	BirthDay   uint8      `json:"birth_day"`
	PartnerID  *uint64    `json:"partner_id,omitempty"`
	MotherID   *uint64    `json:"mother_id,omitempty"`
	Fertility  *Fertility `json:"fertility,omitempty"`
	Pregnancy  *Pregnancy `json:"pregnancy,omitempty"`
}

type Fertility struct {
	LastBirthYear  uint32 `json:"last_birth_year"`
	LastBirthMonth uint8  `json:"last_birth_month"`
	ChildrenBorn   uint8  `json:"children_born"`
}

type Pregnancy struct {
	DueYear  uint32 `json:"due_year"`
	DueMonth uint8  `json:"due_month"`
}

type Event struct {
	EventType string  `json:"event_type"`
	Year      uint32  `json:"year"`
	Month     uint8   `json:"month"`
	Day       uint8   `json:"day"`
	PersonID  *uint64 `json:"person_id,omitempty"`
}

// Validate checks the version and the enumerated fields.
func (d *Data) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	if d.Calendar.Month < 1 || d.Calendar.Month > 12 || d.Calendar.Day < 1 || d.Calendar.Day > 8 {
		return fmt.Errorf("%w: calendar %d/%d out of range", ErrMalformed, d.Calendar.Month, d.Calendar.Day)
	}
	if d.NextPersonID == 0 {
		return fmt.Errorf("%w: next_person_id must be positive", ErrMalformed)
	}
	seen := make(map[uint64]struct{}, len(d.People))
	for i := range d.People {
		p := &d.People[i]
		if s := p.Sex; s != "Male" && s != "Female" {
			return fmt.Errorf("%w: person %d has sex %q", ErrMalformed, p.PersonID, s)
		}
		if p.PersonID == 0 || p.PersonID >= d.NextPersonID {
			return fmt.Errorf("%w: person id %d outside [1, next_person_id %d)", ErrMalformed, p.PersonID, d.NextPersonID)
		}
		if _, dup := seen[p.PersonID]; dup {
			return fmt.Errorf("%w: duplicate person id %d", ErrMalformed, p.PersonID)
		}
		seen[p.PersonID] = struct{}{}
	}
	for i := range d.Events {
		if _, err := events.ParseType(d.Events[i].EventType); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrMalformed, i, err)
		}
	}
	return nil
}

// EncodeText renders d as JSON.
func EncodeText(d *Data) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// DecodeText parses and validates a JSON snapshot. The version is checked
// before the body so a newer schema reports ErrUnsupportedVersion even when
// its body no longer fits this one.
func DecodeText(raw []byte) (*Data, error) {
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if header.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrMalformed)
	}
	if *header.Version != int(Version) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *header.Version)
	}

	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
