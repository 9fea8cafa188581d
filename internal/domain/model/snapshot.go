package model

import (
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Snapshot is the immutable dataset the engine aggregates over.
type Snapshot struct {
	// Events are sorted newest first (see SortNewestFirst).
	Events []Backblast `json:"events" msgpack:"events"`
	// People are sorted by ID.
	People []Person `json:"people" msgpack:"people"`
	// Names maps person IDs to their display spelling.
	Names map[PersonID]string `json:"names" msgpack:"names"`
	// Locations maps location IDs to their display spelling.
	Locations map[LocationID]string `json:"locations" msgpack:"locations"`

	FetchedAt time.Time `json:"fetchedAt" msgpack:"fetched_at"`
	Version   string    `json:"version" msgpack:"version"`
	Report    Report    `json:"report" msgpack:"report"`
}

// Report summarizes one ingestion run.
type Report struct {
	EventsIn   int                 `json:"eventsIn" msgpack:"events_in"`
	EventsKept int                 `json:"eventsKept" msgpack:"events_kept"`
	PeopleIn   int                 `json:"peopleIn" msgpack:"people_in"`
	PeopleKept int                 `json:"peopleKept" msgpack:"people_kept"`
	Skipped    map[string]int      `json:"skipped" msgpack:"skipped"`
	Repaired   map[string]int      `json:"repaired" msgpack:"repaired"`
	Quarantine []QuarantinedRecord `json:"quarantine,omitempty" msgpack:"quarantine"`
}

// QuarantinedRecord describes one record that was dropped at ingestion.
type QuarantinedRecord struct {
	Kind   string `json:"kind" msgpack:"kind"`
	Ref    string `json:"ref" msgpack:"ref"`
	Reason string `json:"reason" msgpack:"reason"`
	Detail string `json:"detail,omitempty" msgpack:"detail"`
}

// SkippedTotal sums skipped records over all reasons.
func (r Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Name returns the display spelling for id, or id itself when unknown.
func (s *Snapshot) Name(id PersonID) string {
	if n, ok := s.Names[id]; ok {
		return n
	}
	return string(id)
}

// LocationName returns the display spelling for id, or id itself when unknown.
func (s *Snapshot) LocationName(id LocationID) string {
	if n, ok := s.Locations[id]; ok {
		return n
	}
	return string(id)
}

// Person looks up a person record by ID.
func (s *Snapshot) Person(id PersonID) (Person, bool) {
	i, ok := slices.BinarySearchFunc(s.People, id, func(p Person, target PersonID) int {
		switch {
		case p.ID < target:
			return -1
		case p.ID > target:
			return 1
		}
		return 0
	})
	if !ok {
		return Person{}, false
	}
	return s.People[i], true
}

// Known reports whether id posted at least once or has a person record.
func (s *Snapshot) Known(id PersonID) bool {
	if _, ok := s.Names[id]; ok {
		return true
	}
	_, ok := s.Person(id)
	return ok
}

// Empty reports whether the snapshot holds no events.
func (s *Snapshot) Empty() bool { return len(s.Events) == 0 }

// Fingerprint hashes the normalized content. Equal datasets produce equal
// fingerprints regardless of when they were fetched.
func (s *Snapshot) Fingerprint() string {
	h := xxh3.New()
	sep := []byte{0}
	for i := range s.Events {
		e := &s.Events[i]
		_, _ = h.WriteString(e.ID)
		_, _ = h.Write(sep)
		_, _ = h.WriteString(string(e.Location))
		_, _ = h.Write(sep)
		_, _ = h.WriteString(e.Date.Format(DateLayout))
		for _, p := range e.Participants {
			_, _ = h.WriteString(string(p))
			_, _ = h.Write(sep)
		}
		_, _ = h.WriteString("|")
		for _, l := range e.Leaders {
			_, _ = h.WriteString(string(l))
			_, _ = h.Write(sep)
		}
		_, _ = h.WriteString("\n")
	}
	for _, p := range s.People {
		_, _ = h.WriteString(string(p.ID))
		_, _ = h.Write(sep)
		_, _ = h.WriteString(string(p.InvitedBy))
		_, _ = h.Write(sep)
		_, _ = h.WriteString(p.Email)
		_, _ = h.Write(sep)
		_, _ = h.WriteString(p.PhotoURL)
		_, _ = h.WriteString("\n")
	}
	names := make([]string, 0, len(s.Names))
	for id, n := range s.Names {
		names = append(names, string(id)+"="+n)
	}
	sort.Strings(names)
	for _, n := range names {
		_, _ = h.WriteString(n)
		_, _ = h.Write(sep)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
