// Package visibility decides which catalog models are shown in user-facing listings.
// Hidden models and arena models are excluded; everything else is listed.
package visibility

import (
	"sort"

	"github.com/kjstillabower/model-catalog/internal/models"
)

// Reason is a stable label for why a model was excluded. Used as a metric label.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonHidden     Reason = "hidden"
	ReasonArenaOwner Reason = "arena_owner"
	ReasonArenaFlag  Reason = "arena_flag"
)

// Exclusion returns the first rule that excludes m, checked in order hidden,
// arena owner, arena flag. Returns ReasonNone for a visible model.
func Exclusion(m models.ModelRecord) Reason {
	switch {
	case m.IsHidden():
		return ReasonHidden
	case m.OwnedBy == models.ArenaOwner:
		return ReasonArenaOwner
	case m.IsArenaFlagged():
		return ReasonArenaFlag
	default:
		return ReasonNone
	}
}

// Visible reports whether m belongs in a normal model listing.
func Visible(m models.ModelRecord) bool {
	return !m.IsHidden() && !m.IsArena()
}

// Filter returns the visible records in input order.
func Filter(records []models.ModelRecord) []models.ModelRecord {
	out := make([]models.ModelRecord, 0, len(records))
	for _, m := range records {
		if Visible(m) {
			out = append(out, m)
		}
	}
	return out
}

// Partition splits records into visible ones and per-reason exclusion counts.
func Partition(records []models.ModelRecord) ([]models.ModelRecord, map[Reason]int) {
	visible := make([]models.ModelRecord, 0, len(records))
	excluded := make(map[Reason]int)
	for _, m := range records {
		if r := Exclusion(m); r != ReasonNone {
			excluded[r]++
			continue
		}
		visible = append(visible, m)
	}
	return visible, excluded
}

// Names returns the display name of each record, in order.
func Names(records []models.ModelRecord) []string {
	names := make([]string, 0, len(records))
	for _, m := range records {
		names = append(names, m.Name)
	}
	return names
}

// SameNames reports whether expected and actual hold the same names, ignoring order.
// Duplicates count. Neither slice is modified.
func SameNames(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	a := sortedCopy(expected)
	b := sortedCopy(actual)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(s []string) []string {
	c := append([]string(nil), s...)
	sort.Strings(c)
	return c
}
