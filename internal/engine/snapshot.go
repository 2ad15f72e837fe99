package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/ecs"
	"github.com/talgya/gridworld/internal/events"
	"github.com/talgya/gridworld/internal/snapshot"
)

// ImportResult reports what a restore brought back.
type ImportResult struct {
	Population   int    `json:"population"`
	Partners     int    `json:"partners"`
	Mothers      int    `json:"mothers"`
	CalendarYear uint32 `json:"calendar_year"`
}

// SaveResult reports the outcome of SaveToFile.
type SaveResult struct {
	Population int   `json:"population"`
	FileBytes  int64 `json:"file_bytes"`
}

// LoadResult is returned by LoadFromFile. State is the host blob saved with
// the world.
type LoadResult struct {
	ImportResult
	Seed  uint32 `json:"seed"`
	State string `json:"state"`
}

// Snapshot captures the whole world as a handle-independent record.
func (w *World) Snapshot() *snapshot.Data {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *World) snapshot() *snapshot.Data {
	d := &snapshot.Data{
		Version:      snapshot.Version,
		Calendar:     snapshot.Calendar{Year: w.date.Year, Month: w.date.Month, Day: w.date.Day},
		NextPersonID: uint64(w.spawner.NextID()),
		People:       make([]snapshot.Person, 0, w.pop.Len()),
		Events:       make([]snapshot.Event, 0, w.log.Len()),
	}

	for _, e := range w.pop.Query(0, 0) {
		p, _ := w.pop.Person(e)
		rec := snapshot.Person{
			PersonID:   uint64(p.ID),
			TileID:     uint32(p.Location),
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Sex:        p.Sex.String(),
			BirthYear:  p.Birth.Year,
			BirthMonth: p.Birth.Month,
			BirthDay:   p.Birth.Day,
		}
		if partner, ok := w.pop.Partner(e); ok {
			if id, ok := w.personID(partner); ok {
				v := uint64(id)
				rec.PartnerID = &v
			}
		}
		if mother, ok := w.pop.Mother(e); ok {
			if id, ok := w.personID(mother); ok {
				v := uint64(id)
				rec.MotherID = &v
			}
		}
		if f, ok := w.pop.Fertility(e); ok {
			rec.Fertility = &snapshot.Fertility{
				LastBirthYear:  f.LastBirthYear,
				LastBirthMonth: f.LastBirthMonth,
				ChildrenBorn:   f.ChildrenBorn,
			}
		}
		if preg, ok := w.pop.Pregnancy(e); ok {
			rec.Pregnancy = &snapshot.Pregnancy{DueYear: preg.DueYear, DueMonth: preg.DueMonth}
		}
		d.People = append(d.People, rec)
	}

	for ev := range w.log.All() {
		rec := snapshot.Event{
			EventType: ev.Type.String(),
			Year:      ev.Date.Year,
			Month:     ev.Date.Month,
			Day:       ev.Date.Day,
		}
		if ev.PersonID != 0 {
			id := ev.PersonID
			rec.PersonID = &id
		}
		d.Events = append(d.Events, rec)
	}
	return d
}

// Restore replaces the world with d. d must already be validated; nothing in
// the restore itself can fail.
func (w *World) Restore(d *snapshot.Data) ImportResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restore(d)
}

func (w *World) restore(d *snapshot.Data) ImportResult {
	w.reset(calendar.New(d.Calendar.Year, d.Calendar.Month, d.Calendar.Day))
	w.spawner.SetNextID(agents.PersonID(d.NextPersonID))

	// Pass 1: people with their own components.
	handles := make(map[uint64]ecs.Entity, len(d.People))
	for i := range d.People {
		rec := &d.People[i]
		sex, _ := agents.ParseSex(rec.Sex)
		e := w.spawn(agents.Person{
			ID:        agents.PersonID(rec.PersonID),
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			Sex:       sex,
			Birth:     calendar.New(rec.BirthYear, rec.BirthMonth, rec.BirthDay),
			Location:  agents.LocationID(rec.TileID),
		})
		if rec.Fertility != nil {
			w.pop.SetFertility(e, agents.Fertility{
				LastBirthYear:  rec.Fertility.LastBirthYear,
				LastBirthMonth: rec.Fertility.LastBirthMonth,
				ChildrenBorn:   rec.Fertility.ChildrenBorn,
			})
		}
		if rec.Pregnancy != nil {
			w.pop.SetPregnancy(e, agents.Pregnancy{DueYear: rec.Pregnancy.DueYear, DueMonth: rec.Pregnancy.DueMonth})
		}
		handles[rec.PersonID] = e
	}

	// Pass 2: links, skipping ids that are not in the snapshot.
	res := ImportResult{Population: w.pop.Len(), CalendarYear: w.date.Year}
	for i := range d.People {
		rec := &d.People[i]
		e := handles[rec.PersonID]
		if rec.PartnerID != nil {
			if partner, ok := handles[*rec.PartnerID]; ok {
				w.pop.SetPartner(e, partner)
				res.Partners++
			}
		}
		if rec.MotherID != nil {
			if mother, ok := handles[*rec.MotherID]; ok {
				w.pop.SetMother(e, mother)
				res.Mothers++
			}
		}
	}

	for i := range d.Events {
		rec := &d.Events[i]
		t, _ := events.ParseType(rec.EventType)
		ev := events.Event{Type: t, Date: calendar.Date{Year: rec.Year, Month: rec.Month, Day: rec.Day}}
		if rec.PersonID != nil {
			ev.PersonID = *rec.PersonID
		}
		w.log.Push(ev)
	}
	return res
}

// Export renders the world as a JSON snapshot.
func (w *World) Export() ([]byte, error) {
	return snapshot.EncodeText(w.Snapshot())
}

// Import replaces the world with a JSON snapshot. An unsupported version or
// a malformed payload is rejected before anything changes.
func (w *World) Import(text []byte) (ImportResult, error) {
	d, err := snapshot.DecodeText(text)
	if err != nil {
		return ImportResult{}, err
	}
	res := w.Restore(d)
	slog.Info("world imported",
		"population", res.Population,
		"partners", res.Partners,
		"mothers", res.Mothers,
		"year", res.CalendarYear,
	)
	return res, nil
}

// SaveToFile writes the world, the host state blob, and seed to path. The
// world lock is held until the file is in place.
func (w *World) SaveToFile(path string, state []byte, seed uint32) (SaveResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d := w.snapshot()
	n, err := snapshot.WriteFile(path, &snapshot.File{
		Version: snapshot.Version,
		Seed:    seed,
		World:   *d,
		State:   state,
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save world: %w", err)
	}
	slog.Info("world saved", "path", path, "population", len(d.People), "size", humanize.Bytes(uint64(n)))
	return SaveResult{Population: len(d.People), FileBytes: n}, nil
}

// LoadFromFile replaces the world with a save file. Decode and version
// failures leave the world untouched. If the state blob is not valid UTF-8 the
// world has still been restored, and the result is returned alongside an
// error wrapping snapshot.ErrInvalidState.
func (w *World) LoadFromFile(path string) (LoadResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := snapshot.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load world: %w", err)
	}
	res := LoadResult{
		ImportResult: w.restore(&f.World),
		Seed:         f.Seed,
	}
	if !utf8.Valid(f.State) {
		return res, fmt.Errorf("load world %s: %w", path, snapshot.ErrInvalidState)
	}
	res.State = string(f.State)
	slog.Info("world loaded", "path", path, "population", res.Population, "year", res.CalendarYear, "seed", res.Seed)
	return res, nil
}

// IsSnapshotError reports whether err came from rejecting a snapshot payload.
func IsSnapshotError(err error) bool {
	return errors.Is(err, snapshot.ErrUnsupportedVersion) || errors.Is(err, snapshot.ErrMalformed)
}
