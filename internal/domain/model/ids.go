// Package model contains domain models passed between layers.
package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// PersonID is the canonical key of a PAX. Two spellings that differ only in
// case or whitespace map to the same PersonID.
type PersonID string

// LocationID is the canonical key of an AO.
type LocationID string

// NormalizePerson converts a raw name into its PersonID.
func NormalizePerson(raw string) PersonID {
	return PersonID(fold(CleanName(raw)))
}

// NormalizeLocation converts a raw AO name into its LocationID. Dashes and
// underscores count as spaces since channel-style names ("ao-the-forge") and
// display names ("The Forge") appear side by side upstream.
func NormalizeLocation(raw string) LocationID {
	raw = strings.NewReplacer("-", " ", "_", " ").Replace(raw)
	return LocationID(fold(CleanName(raw)))
}

// CleanName trims raw and collapses inner whitespace runs. It is the display
// form kept next to the canonical key.
func CleanName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// NormalizePeople maps raw names to IDs, dropping empties and duplicates
// while keeping first-seen order.
func NormalizePeople(raw []string) []PersonID {
	out := make([]PersonID, 0, len(raw))
	seen := make(map[PersonID]struct{}, len(raw))
	for _, r := range raw {
		id := NormalizePerson(r)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// fold applies Unicode case folding. A Caser holds state, so each call gets
// its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
