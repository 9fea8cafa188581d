package model

import (
	"slices"
	"time"
)

// Backblast is one workout event after ingestion. It is never mutated once
// it is part of a Snapshot.
type Backblast struct {
	ID           string     `json:"id" msgpack:"id"`
	Location     LocationID `json:"location" msgpack:"location"`
	Date         time.Time  `json:"date" msgpack:"date"`
	Participants []PersonID `json:"participants" msgpack:"participants"`
	// Leaders is a subset of Participants.
	Leaders []PersonID `json:"leaders" msgpack:"leaders"`
}

// HasParticipant reports whether id posted at the event.
func (b *Backblast) HasParticipant(id PersonID) bool {
	return slices.Contains(b.Participants, id)
}

// IsLeader reports whether id Q'd the event.
func (b *Backblast) IsLeader(id PersonID) bool {
	return slices.Contains(b.Leaders, id)
}

// Posts is the attendance count.
func (b *Backblast) Posts() int { return len(b.Participants) }

// SortNewestFirst orders events date descending, ID ascending within a day.
func SortNewestFirst(events []Backblast) {
	slices.SortStableFunc(events, func(a, b Backblast) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// OldestFirst returns a reversed copy of a newest-first slice.
func OldestFirst(events []Backblast) []Backblast {
	out := slices.Clone(events)
	slices.Reverse(out)
	return out
}
