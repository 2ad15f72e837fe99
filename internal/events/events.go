// Package events records demographic events in a fixed-capacity history.
package events

import (
	"fmt"
	"iter"

	"github.com/talgya/gridworld/internal/calendar"
)

// DefaultCapacity is the history size used when none is configured.
const DefaultCapacity = 10000

// Type classifies a demographic event.
type Type uint8

const (
	Birth Type = iota
	Death
	Marriage
	PregnancyStarted
	Dissolution
)

var typeNames = [...]string{
	Birth:            "birth",
	Death:            "death",
	Marriage:         "marriage",
	PregnancyStarted: "pregnancy_started",
	Dissolution:      "dissolution",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Event is one recorded outcome. PersonID 0 means no person is attached.
type Event struct {
	Type     Type          `json:"event_type"`
	Date     calendar.Date `json:"date"`
	PersonID uint64        `json:"person_id,omitempty"`
}

// Log is a ring buffer of events. Pushing onto a full log evicts the oldest.
type Log struct {
	buf  []Event
	head int // index of the oldest event
	size int
}

// NewLog creates a log holding at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Event, capacity)}
}

// Push appends e, evicting the oldest event when the log is full.
func (l *Log) Push(e Event) {
	if l.size < len(l.buf) {
		l.buf[(l.head+l.size)%len(l.buf)] = e
		l.size++
		return
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
}

func (l *Log) Len() int { return l.size }
func (l *Log) Cap() int { return len(l.buf) }

// Clear drops every event but keeps the capacity.
func (l *Log) Clear() {
	l.head, l.size = 0, 0
}

func (l *Log) at(i int) Event {
	return l.buf[(l.head+i)%len(l.buf)]
}

// All yields events oldest first, in the order they were pushed.
func (l *Log) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := 0; i < l.size; i++ {
			if !yield(l.at(i)) {
				return
			}
		}
	}
}

// Newest yields events newest first.
func (l *Log) Newest() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for i := l.size - 1; i >= 0; i-- {
			if !yield(l.at(i)) {
				return
			}
		}
	}
}

// Recent returns up to n events, newest first.
func (l *Log) Recent(n int) []Event {
	if n > l.size {
		n = l.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, 0, n)
	for e := range l.Newest() {
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out
}

// OfType returns every event of type t, newest first.
func (l *Log) OfType(t Type) []Event {
	var out []Event
	for e := range l.Newest() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// InYears returns events whose year lies in [start, end], newest first.
func (l *Log) InYears(start, end uint32) []Event {
	var out []Event
	for e := range l.Newest() {
		if e.Date.Year >= start && e.Date.Year <= end {
			out = append(out, e)
		}
	}
	return out
}

// CountInRange counts events of type t whose year lies in [start, end].
func (l *Log) CountInRange(t Type, start, end uint32) int {
	n := 0
	for e := range l.All() {
		if e.Type == t && e.Date.Year >= start && e.Date.Year <= end {
			n++
		}
	}
	return n
}
