package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/okian/paxstats/internal/domain/filter"
	"github.com/okian/paxstats/internal/domain/model"
	"github.com/okian/paxstats/internal/domain/types"
)

// QGrid lays out who led where, one row per event date between from and to
// (either may be zero). Columns are every location in scope plus any
// location with an event, so AOs without a recorded event show up empty.
func QGrid(events []model.Backblast, scope filter.Scope, from, to time.Time, opts ...Option) types.QGrid {
	o := buildOptions(opts)
	window := filter.Window{From: from, To: to}
	selected := filter.Apply(events, scope, window, time.Time{})

	locs := scope.Locations()
	for i := range selected {
		locs = append(locs, selected[i].Location)
	}
	locs = lo.Uniq(locs)
	slices.SortFunc(locs, func(a, b model.LocationID) int {
		if c := cmp.Compare(o.names.LocationName(a), o.names.LocationName(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	col := make(map[model.LocationID]int, len(locs))
	grid := types.QGrid{Locations: make([]string, len(locs)), Rows: []types.QGridRow{}}
	for i, l := range locs {
		col[l] = i
		grid.Locations[i] = o.names.LocationName(l)
	}

	rows := make(map[time.Time]*types.QGridRow)
	for _, e := range oldestFirst(selected) {
		row, ok := rows[e.Date]
		if !ok {
			row = &types.QGridRow{Date: e.Date, Cells: make([]types.QGridCell, len(locs))}
			for i := range row.Cells {
				row.Cells[i].Leaders = []string{}
			}
			rows[e.Date] = row
		}
		cell := &row.Cells[col[e.Location]]
		if cell.EventID == "" {
			cell.EventID = e.ID
		}
		for _, q := range e.Leaders {
			name := o.names.Name(q)
			if !slices.Contains(cell.Leaders, name) {
				cell.Leaders = append(cell.Leaders, name)
			}
		}
	}

	for _, r := range rows {
		grid.Rows = append(grid.Rows, *r)
	}
	slices.SortFunc(grid.Rows, func(a, b types.QGridRow) int { return a.Date.Compare(b.Date) })
	return grid
}
