// Package persistence archives world snapshots in SQLite so the host can
// resume where it left off.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/gridworld/internal/snapshot"
)

// Meta keys written by SaveWorldState.
const (
	MetaWorldID      = "world_id"
	MetaVersion      = "version"
	MetaYear         = "calendar_year"
	MetaMonth        = "calendar_month"
	MetaDay          = "calendar_day"
	MetaNextPersonID = "next_person_id"
	MetaSeed         = "seed"
	MetaState        = "host_state"
	MetaSavedAt      = "saved_at"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS people (
		person_id INTEGER PRIMARY KEY,
		tile_id INTEGER NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		sex TEXT NOT NULL,
		birth_year INTEGER NOT NULL,
		birth_month INTEGER NOT NULL,
		birth_day INTEGER NOT NULL,
		partner_id INTEGER,
		mother_id INTEGER,
		last_birth_year INTEGER,
		last_birth_month INTEGER,
		children_born INTEGER,
		due_year INTEGER,
		due_month INTEGER
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		event_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		person_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_tile ON people(tile_id);
	CREATE INDEX IF NOT EXISTS idx_events_year ON events(year);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type personRow struct {
	PersonID       uint64  `db:"person_id"`
	TileID         uint32  `db:"tile_id"`
	FirstName      string  `db:"first_name"`
	LastName       string  `db:"last_name"`
	Sex            string  `db:"sex"`
	BirthYear      uint32  `db:"birth_year"`
	BirthMonth     uint8   `db:"birth_month"`
	BirthDay       uint8   `db:"birth_day"`
	PartnerID      *uint64 `db:"partner_id"`
	MotherID       *uint64 `db:"mother_id"`
	LastBirthYear  *uint32 `db:"last_birth_year"`
	LastBirthMonth *uint8  `db:"last_birth_month"`
	ChildrenBorn   *uint8  `db:"children_born"`
	DueYear        *uint32 `db:"due_year"`
	DueMonth       *uint8  `db:"due_month"`
}

func toRow(p *snapshot.Person) personRow {
	row := personRow{
		PersonID:   p.PersonID,
		TileID:     p.TileID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Sex:        p.Sex,
		BirthYear:  p.BirthYear,
		BirthMonth: p.BirthMonth,
		BirthDay:   p.BirthDay,
		PartnerID:  p.PartnerID,
		MotherID:   p.MotherID,
	}
	if f := p.Fertility; f != nil {
		row.LastBirthYear, row.LastBirthMonth, row.ChildrenBorn = &f.LastBirthYear, &f.LastBirthMonth, &f.ChildrenBorn
	}
	if preg := p.Pregnancy; preg != nil {
		row.DueYear, row.DueMonth = &preg.DueYear, &preg.DueMonth
	}
	return row
}

func (r *personRow) person() snapshot.Person {
	p := snapshot.Person{
		PersonID:   r.PersonID,
		TileID:     r.TileID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Sex:        r.Sex,
		BirthYear:  r.BirthYear,
		BirthMonth: r.BirthMonth,
		BirthDay:   r.BirthDay,
		PartnerID:  r.PartnerID,
		MotherID:   r.MotherID,
	}
	if r.ChildrenBorn != nil {
		p.Fertility = &snapshot.Fertility{ChildrenBorn: *r.ChildrenBorn}
		if r.LastBirthYear != nil {
			p.Fertility.LastBirthYear = *r.LastBirthYear
		}
		if r.LastBirthMonth != nil {
			p.Fertility.LastBirthMonth = *r.LastBirthMonth
		}
	}
	if r.DueYear != nil && r.DueMonth != nil {
		p.Pregnancy = &snapshot.Pregnancy{DueYear: *r.DueYear, DueMonth: *r.DueMonth}
	}
	return p
}

type eventRow struct {
	Seq       int     `db:"seq"`
	EventType string  `db:"event_type"`
	Year      uint32  `db:"year"`
	Month     uint8   `db:"month"`
	Day       uint8   `db:"day"`
	PersonID  *uint64 `db:"person_id"`
}

func (r *eventRow) event() snapshot.Event {
	return snapshot.Event{EventType: r.EventType, Year: r.Year, Month: r.Month, Day: r.Day, PersonID: r.PersonID}
}

// SaveWorldState replaces the archived world with d in one transaction.
func (db *DB) SaveWorldState(d *snapshot.Data, seed uint32, state string) error {
	slog.Info("saving world state", "people", len(d.People), "events", len(d.Events))

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := savePeople(tx, d.People); err != nil {
		return fmt.Errorf("save people: %w", err)
	}
	if err := saveEvents(tx, d.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	meta := map[string]string{
		MetaVersion:      strconv.Itoa(int(d.Version)),
		MetaYear:         strconv.FormatUint(uint64(d.Calendar.Year), 10),
		MetaMonth:        strconv.Itoa(int(d.Calendar.Month)),
		MetaDay:          strconv.Itoa(int(d.Calendar.Day)),
		MetaNextPersonID: strconv.FormatUint(d.NextPersonID, 10),
		MetaSeed:         strconv.FormatUint(uint64(seed), 10),
		MetaState:        state,
		MetaSavedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO world_meta (key, value) VALUES (?, ?)",
		MetaWorldID, uuid.NewString(),
	); err != nil {
		return fmt.Errorf("save meta %s: %w", MetaWorldID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("world state saved")
	return nil
}

func savePeople(tx *sqlx.Tx, people []snapshot.Person) error {
	if _, err := tx.Exec("DELETE FROM people"); err != nil {
		return err
	}
	stmt, err := tx.PrepareNamed(`INSERT INTO people
		(person_id, tile_id, first_name, last_name, sex, birth_year, birth_month, birth_day,
		 partner_id, mother_id, last_birth_year, last_birth_month, children_born, due_year, due_month)
		VALUES (:person_id, :tile_id, :first_name, :last_name, :sex, :birth_year, :birth_month, :birth_day,
		 :partner_id, :mother_id, :last_birth_year, :last_birth_month, :children_born, :due_year, :due_month)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range people {
		if _, err := stmt.Exec(toRow(&people[i])); err != nil {
			return fmt.Errorf("insert person %d: %w", people[i].PersonID, err)
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, events []snapshot.Event) error {
	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO events (seq, event_type, year, month, day, person_id) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.Exec(i, e.EventType, e.Year, e.Month, e.Day, e.PersonID); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return nil
}

func saveMeta(tx *sqlx.Tx, key, value string) error {
	_, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasWorldState reports whether a world has been archived.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaVersion)
	return err == nil
}

// Archive is a world read back from the database.
type Archive struct {
	WorldID string
	Data    *snapshot.Data
	Seed    uint32
	State   string
	SavedAt time.Time
}

// LoadWorldState reads the archived world. The snapshot is validated the
// same way as a text import.
func (db *DB) LoadWorldState() (*Archive, error) {
	meta := make(map[string]string)
	rows, err := db.conn.Queryx("SELECT key, value FROM world_meta")
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if _, ok := meta[MetaVersion]; !ok {
		return nil, fmt.Errorf("load world: %w", sql.ErrNoRows)
	}

	var p metaParser
	d := &snapshot.Data{
		Version: uint8(p.uint(meta, MetaVersion, 8)),
		Calendar: snapshot.Calendar{
			Year:  uint32(p.uint(meta, MetaYear, 32)),
			Month: uint8(p.uint(meta, MetaMonth, 8)),
			Day:   uint8(p.uint(meta, MetaDay, 8)),
		},
		NextPersonID: p.uint(meta, MetaNextPersonID, 64),
	}
	seed := uint32(p.uint(meta, MetaSeed, 32))
	if p.err != nil {
		return nil, fmt.Errorf("load meta: %w", p.err)
	}

	var people []personRow
	if err := db.conn.Select(&people, "SELECT * FROM people ORDER BY person_id"); err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}
	d.People = make([]snapshot.Person, len(people))
	for i := range people {
		d.People[i] = people[i].person()
	}

	var events []eventRow
	if err := db.conn.Select(&events, "SELECT * FROM events ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	d.Events = make([]snapshot.Event, len(events))
	for i := range events {
		d.Events[i] = events[i].event()
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}

	a := &Archive{WorldID: meta[MetaWorldID], Data: d, Seed: seed, State: meta[MetaState]}
	if t, err := time.Parse(time.RFC3339, meta[MetaSavedAt]); err == nil {
		a.SavedAt = t
	}
	slog.Info("world state loaded", "world_id", a.WorldID, "people", len(d.People), "year", d.Calendar.Year)
	return a, nil
}

// StartNewWorld clears the archive and assigns a fresh world ID, which it
// returns.
func (db *DB) StartNewWorld() (string, error) {
	id := uuid.NewString()
	tx, err := db.conn.Beginx()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM people", "DELETE FROM events", "DELETE FROM world_meta"} {
		if _, err := tx.Exec(stmt); err != nil {
			return "", fmt.Errorf("clear archive: %w", err)
		}
	}
	if err := saveMeta(tx, MetaWorldID, id); err != nil {
		return "", fmt.Errorf("save meta %s: %w", MetaWorldID, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentEvents returns the most recent N archived events, newest first.
func (db *DB) RecentEvents(limit int) ([]snapshot.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows, "SELECT * FROM events ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]snapshot.Event, len(rows))
	for i := range rows {
		out[i] = rows[i].event()
	}
	return out, nil
}

// metaParser collects the first parse failure across several reads.
type metaParser struct {
	err error
}

func (p *metaParser) uint(meta map[string]string, key string, bits int) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(meta[key], 10, bits)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return v
}

// IsNotFound reports whether err means no world has been archived.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
