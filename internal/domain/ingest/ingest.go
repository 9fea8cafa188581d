// Package ingest turns raw source records into an immutable model.Snapshot.
//
// Malformed records are quarantined and counted rather than failing the run.
// Names are normalized exactly once here; everything downstream joins on
// model.PersonID and model.LocationID.
package ingest

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/okian/paxstats/internal/domain/dedupe"
	"github.com/okian/paxstats/internal/domain/model"
)

// Skip and repair reasons reported in model.Report.
const (
	ReasonMissingLocation      = "missing_location"
	ReasonBadDate              = "bad_date"
	ReasonNoParticipants       = "no_participants"
	ReasonDuplicateID          = "duplicate_id"
	ReasonLeaderNotParticipant = "leader_not_participant"
	ReasonInvalid              = "invalid"
	ReasonMissingName          = "missing_name"
	ReasonDuplicatePerson      = "duplicate_person"
	ReasonInvalidContact       = "invalid_contact"
)

// Record kinds in quarantine entries.
const (
	KindEvent  = "event"
	KindPerson = "person"
)

type ingester struct {
	opts   options
	report model.Report
	names  map[model.PersonID]string
	locs   map[model.LocationID]string
}

// Ingest validates, normalizes and deduplicates raw records. It never fails:
// every rejected record is counted in the returned snapshot's Report.
func Ingest(ctx context.Context, rawEvents []model.RawEvent, rawPeople []model.RawPerson, opts ...Option) model.Snapshot {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.deduper == nil {
		o.deduper = dedupe.NewInMemoryDeduper()
	}
	o.deduper.Reset(ctx)

	in := &ingester{
		opts: o,
		report: model.Report{
			EventsIn: len(rawEvents),
			PeopleIn: len(rawPeople),
			Skipped:  map[string]int{},
			Repaired: map[string]int{},
		},
		names: make(map[model.PersonID]string),
		locs:  make(map[model.LocationID]string),
	}

	events := make([]model.Backblast, 0, len(rawEvents))
	for i := range rawEvents {
		if bb, ok := in.event(ctx, i, &rawEvents[i]); ok {
			events = append(events, bb)
		}
	}
	model.SortNewestFirst(events)

	people := make([]model.Person, 0, len(rawPeople))
	seen := make(map[model.PersonID]struct{}, len(rawPeople))
	for i := range rawPeople {
		p, ok := in.person(i, &rawPeople[i])
		if !ok {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			in.skip(KindPerson, p.Name, ReasonDuplicatePerson, "")
			continue
		}
		seen[p.ID] = struct{}{}
		// Person records carry the preferred display spelling.
		in.names[p.ID] = p.Name
		people = append(people, p)
	}
	slices.SortFunc(people, func(a, b model.Person) int { return strings.Compare(string(a.ID), string(b.ID)) })

	in.report.EventsKept = len(events)
	in.report.PeopleKept = len(people)

	snap := model.Snapshot{
		Events:    events,
		People:    people,
		Names:     in.names,
		Locations: in.locs,
		FetchedAt: o.now(),
		Report:    in.report,
	}
	snap.Version = snap.Fingerprint()
	return snap
}

func (in *ingester) event(ctx context.Context, idx int, raw *model.RawEvent) (model.Backblast, bool) {
	ref := strings.TrimSpace(raw.ID)
	if ref == "" {
		ref = "#" + strconv.Itoa(idx)
	}

	if err := raw.Validate(); err != nil {
		in.skip(KindEvent, ref, reasonForFields(model.InvalidFields(err)), err.Error())
		return model.Backblast{}, false
	}

	loc := model.NormalizeLocation(raw.Location)
	if loc == "" {
		in.skip(KindEvent, ref, ReasonMissingLocation, "")
		return model.Backblast{}, false
	}

	date, err := model.ParseDate(raw.Date)
	if err != nil {
		in.skip(KindEvent, ref, ReasonBadDate, err.Error())
		return model.Backblast{}, false
	}

	// An upstream ID is claimed before the participant checks so a duplicate
	// is never counted as repaired. A rejection below releases it again, which
	// lets a later, valid copy under the same ID through.
	id := strings.TrimSpace(raw.ID)
	if id != "" && in.opts.deduper.SeenAndRecord(ctx, id) {
		in.skip(KindEvent, ref, ReasonDuplicateID, "")
		return model.Backblast{}, false
	}
	reject := func(reason, detail string) (model.Backblast, bool) {
		if id != "" {
			in.opts.deduper.Unrecord(ctx, id)
		}
		in.skip(KindEvent, ref, reason, detail)
		return model.Backblast{}, false
	}

	pax := model.NormalizePeople(raw.Participants)
	if len(pax) == 0 {
		return reject(ReasonNoParticipants, "")
	}

	leaders := model.NormalizePeople(raw.Leaders)
	var missing []model.PersonID
	for _, l := range leaders {
		if !slices.Contains(pax, l) {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		if in.opts.leaderPolicy == LeaderPolicySkip {
			return reject(ReasonLeaderNotParticipant, fmt.Sprint(missing))
		}
		pax = append(pax, missing...)
		in.report.Repaired[ReasonLeaderNotParticipant]++
	}

	if id == "" {
		id = syntheticID(loc, date, pax)
		if in.opts.deduper.SeenAndRecord(ctx, id) {
			in.skip(KindEvent, ref, ReasonDuplicateID, "")
			return model.Backblast{}, false
		}
	}

	for _, n := range raw.Participants {
		in.remember(n)
	}
	for _, n := range raw.Leaders {
		in.remember(n)
	}
	if _, ok := in.locs[loc]; !ok {
		in.locs[loc] = model.CleanName(raw.Location)
	}

	return model.Backblast{
		ID:           id,
		Location:     loc,
		Date:         date,
		Participants: pax,
		Leaders:      leaders,
	}, true
}

func (in *ingester) person(idx int, raw *model.RawPerson) (model.Person, bool) {
	name := model.CleanName(raw.Name)
	id := model.NormalizePerson(name)
	if id == "" {
		in.skip(KindPerson, "#"+strconv.Itoa(idx), ReasonMissingName, "")
		return model.Person{}, false
	}

	p := model.Person{
		ID:        id,
		Name:      name,
		InvitedBy: model.NormalizePerson(raw.InvitedBy),
		Email:     strings.TrimSpace(raw.Email),
		PhotoURL:  strings.TrimSpace(raw.PhotoURL),
	}

	if err := raw.Validate(); err != nil {
		repaired := false
		for _, f := range model.InvalidFields(err) {
			switch f {
			case "email":
				p.Email = ""
				repaired = true
			case "photoUrl":
				p.PhotoURL = ""
				repaired = true
			}
		}
		if repaired {
			in.report.Repaired[ReasonInvalidContact]++
		}
	}
	return p, true
}

func (in *ingester) remember(raw string) {
	id := model.NormalizePerson(raw)
	if id == "" {
		return
	}
	if _, ok := in.names[id]; !ok {
		in.names[id] = model.CleanName(raw)
	}
}

func (in *ingester) skip(kind, ref, reason, detail string) {
	in.report.Skipped[reason]++
	if len(in.report.Quarantine) >= in.opts.quarantineLimit {
		return
	}
	in.report.Quarantine = append(in.report.Quarantine, model.QuarantinedRecord{
		Kind:   kind,
		Ref:    ref,
		Reason: reason,
		Detail: detail,
	})
}

func reasonForFields(fields []string) string {
	switch {
	case slices.Contains(fields, "location"):
		return ReasonMissingLocation
	case slices.Contains(fields, "date"):
		return ReasonBadDate
	case slices.Contains(fields, "participants"):
		return ReasonNoParticipants
	}
	return ReasonInvalid
}

// syntheticID derives a stable ID for records that arrive without one, so
// that repeated copies of the same event still deduplicate.
func syntheticID(loc model.LocationID, date time.Time, pax []model.PersonID) string {
	sorted := slices.Clone(pax)
	slices.Sort(sorted)
	var b strings.Builder
	b.WriteString(string(loc))
	b.WriteByte('|')
	b.WriteString(date.Format(model.DateLayout))
	for _, p := range sorted {
		b.WriteByte('|')
		b.WriteString(string(p))
	}
	return "bb-" + strconv.FormatUint(xxh3.HashString(b.String()), 16)
}
