package stats

import (
	"cmp"
	"slices"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// buddyCounter counts co-participation and remembers first encounter order,
// which breaks ties between equal counts.
type buddyCounter struct {
	counts map[model.PersonID]int
	order  []model.PersonID
}

func newBuddyCounter() *buddyCounter {
	return &buddyCounter{counts: make(map[model.PersonID]int)}
}

func (b *buddyCounter) add(id model.PersonID) {
	if _, ok := b.counts[id]; !ok {
		b.order = append(b.order, id)
	}
	b.counts[id]++
}

// addEvent counts everyone at e except self.
func (b *buddyCounter) addEvent(e *model.Backblast, self model.PersonID) {
	for _, p := range e.Participants {
		if p != self {
			b.add(p)
		}
	}
}

func (b *buddyCounter) top(n int, names Names) []types.Buddy {
	ids := slices.Clone(b.order)
	slices.SortStableFunc(ids, func(x, y model.PersonID) int {
		return cmp.Compare(b.counts[y], b.counts[x])
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	out := make([]types.Buddy, len(ids))
	for i, id := range ids {
		out[i] = types.Buddy{ID: id, Name: names.Name(id), Count: b.counts[id]}
	}
	return out
}
