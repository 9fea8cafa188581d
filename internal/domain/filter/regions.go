package filter

import (
	"fmt"
	"slices"

	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

type region struct {
	name      string
	locations []model.LocationID
	display   []string
}

// Regions maps region names to location sets. Region names match the same
// way location names do.
type Regions struct {
	byKey map[model.LocationID]region
}

// NewRegions builds Regions from configuration. Empty names and locations
// are ignored.
func NewRegions(cfg map[string][]string) *Regions {
	r := &Regions{byKey: make(map[model.LocationID]region, len(cfg))}
	for name, locs := range cfg {
		key := model.NormalizeLocation(name)
		if key == "" {
			continue
		}
		reg := region{name: model.CleanName(name)}
		seen := make(map[model.LocationID]struct{}, len(locs))
		for _, l := range locs {
			id := model.NormalizeLocation(l)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			reg.locations = append(reg.locations, id)
			reg.display = append(reg.display, model.CleanName(l))
		}
		r.byKey[key] = reg
	}
	return r
}

// Expand returns the locations of a region.
func (r *Regions) Expand(name string) (Scope, error) {
	reg, ok := r.byKey[model.NormalizeLocation(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}
	return NewScope(reg.locations...), nil
}

// Resolve builds the scope for an optional location and an optional region.
// With both, the location must belong to the region or nothing matches.
func (r *Regions) Resolve(location, region string) (Scope, error) {
	var scope Scope
	if region != "" {
		s, err := r.Expand(region)
		if err != nil {
			return nil, err
		}
		scope = s
	}
	if loc := model.NormalizeLocation(location); loc != "" {
		if scope != nil && !scope.Contains(loc) {
			return NewScope(), nil
		}
		scope = NewScope(loc)
	}
	return scope, nil
}

// List returns the configured regions sorted by name.
func (r *Regions) List() []types.Region {
	out := make([]types.Region, 0, len(r.byKey))
	for _, reg := range r.byKey {
		out = append(out, types.Region{Name: reg.name, Locations: slices.Clone(reg.display)})
	}
	slices.SortFunc(out, func(a, b types.Region) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}
