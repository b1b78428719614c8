package catalog_test

import (
	"ms-events/internal/catalog"
	"ms-events/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func newDeriver(t *testing.T) *catalog.Deriver {
	t.Helper()
	d, err := catalog.NewDeriver(baseDate)
	require.NoError(t, err)
	return d
}

func TestDerive(t *testing.T) {
	d := newDeriver(t)

	tests := []struct {
		name  string
		event models.Event
		date  string
		clock string
		venue string
	}{
		{"beauty", models.Event{ID: 1, Category: "beauty"}, "2026-01-12", "10:30", "Atelier Rooftop Terrace"},
		{"category is case insensitive", models.Event{ID: 1, Category: " Beauty "}, "2026-01-12", "10:30", "Atelier Rooftop Terrace"},
		{"unknown category", models.Event{ID: 3, Category: "spaceships"}, "2026-01-26", "15:30", "Downtown Community Hall"},
		{"evening slot", models.Event{ID: 5, Category: "fragrances"}, "2026-02-09", "19:30", "Botanical Garden Conservatory"},
		{"offset wraps", models.Event{ID: 20, Category: "laptops"}, "2026-01-25", "20:00", "Tech Hub Auditorium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := d.Derive(tt.event)
			assert.Equal(t, tt.date, s.Date)
			assert.Equal(t, tt.clock, s.Time)
			assert.Equal(t, tt.venue, s.Venue)
			assert.Equal(t, tt.date+" "+tt.clock, s.StartsAt.Format("2006-01-02 15:04"))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	e := models.Event{ID: 42, Category: "groceries", Title: "Apple"}
	a := newDeriver(t).Derive(e)

	e.Title = "Renamed"
	e.Price = 99
	b := newDeriver(t).Derive(e)
	assert.Equal(t, a, b)

	later, err := catalog.NewDeriver(baseDate.Add(15 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a, later.Derive(e), "base date is truncated to the day")
}

func TestDeriver_Duration(t *testing.T) {
	assert.Equal(t, 2*time.Hour, newDeriver(t).Duration())
}

func TestParseTables(t *testing.T) {
	valid := `
day_step: 3
day_window: 10
times: ["08:00"]
venues:
  default: ["Hall"]
`
	tables, err := catalog.ParseTables([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, 120, tables.DurationMinutes, "duration defaults")

	d := catalog.NewDeriverWithTables(baseDate, tables)
	s := d.Derive(models.Event{ID: 4, Category: "anything"})
	assert.Equal(t, "2026-01-07", s.Date)
	assert.Equal(t, "Hall", s.Venue)

	invalid := map[string]string{
		"not yaml":   "day_step: [",
		"no step":    "day_window: 10\ntimes: [\"08:00\"]\nvenues: {default: [Hall]}",
		"no times":   "day_step: 1\nday_window: 10\nvenues: {default: [Hall]}",
		"bad time":   "day_step: 1\nday_window: 10\ntimes: [\"25:99\"]\nvenues: {default: [Hall]}",
		"no default": "day_step: 1\nday_window: 10\ntimes: [\"08:00\"]\nvenues: {beauty: [Spa]}",
	}
	for name, doc := range invalid {
		_, err := catalog.ParseTables([]byte(doc))
		assert.Error(t, err, name)
	}
}
