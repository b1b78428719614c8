package catalog

import (
	"ms-events/internal/models"
	"sort"
	"strings"
)

const (
	SortDate   = "date"
	SortPrice  = "price"
	SortRating = "rating"
)

// Filter keeps events whose title or category contains q, ignoring case.
// A blank q keeps everything.
func Filter(events []models.EventView, q string) []models.EventView {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return events
	}

	out := make([]models.EventView, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Category), needle) {
			out = append(out, e)
		}
	}
	return out
}

// Sort orders events in place. Unknown keys leave the upstream order untouched.
func Sort(events []models.EventView, by string) {
	switch by {
	case SortDate:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].StartsAt.Equal(events[j].StartsAt) {
				return events[i].ID < events[j].ID
			}
			return events[i].StartsAt.Before(events[j].StartsAt)
		})
	case SortPrice:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Price > events[j].Price
		})
	case SortRating:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Rating > events[j].Rating
		})
	}
}

// ValidSort reports whether by names a supported ordering ("" is allowed).
func ValidSort(by string) bool {
	switch by {
	case "", SortDate, SortPrice, SortRating:
		return true
	}
	return false
}
