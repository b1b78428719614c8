package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed schedule.yaml
var scheduleYAML []byte

// Tables are the static lookup tables a schedule is derived from.
type Tables struct {
	DayStep         int                 `yaml:"day_step"`
	DayWindow       int                 `yaml:"day_window"`
	DurationMinutes int                 `yaml:"duration_minutes"`
	Times           []string            `yaml:"times"`
	Venues          map[string][]string `yaml:"venues"`
}

// ParseTables decodes and validates a YAML table document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse schedule tables: %w", err)
	}
	if t.DayStep <= 0 || t.DayWindow <= 0 {
		return nil, errors.New("schedule tables: day_step and day_window must be positive")
	}
	if len(t.Times) == 0 {
		return nil, errors.New("schedule tables: times is empty")
	}
	for _, clock := range t.Times {
		if _, err := time.Parse(utils.ClockLayout, clock); err != nil {
			return nil, fmt.Errorf("schedule tables: bad time %q: %w", clock, err)
		}
	}
	if len(t.Venues["default"]) == 0 {
		return nil, errors.New("schedule tables: venues.default is empty")
	}
	if t.DurationMinutes <= 0 {
		t.DurationMinutes = 120
	}
	return &t, nil
}

// Deriver computes the pseudo date, time and venue of an event. The result depends
// only on the event id, its category and the base date.
type Deriver struct {
	base   time.Time
	tables *Tables
}

// NewDeriver uses the embedded tables.
func NewDeriver(base time.Time) (*Deriver, error) {
	tables, err := ParseTables(scheduleYAML)
	if err != nil {
		return nil, err
	}
	return NewDeriverWithTables(base, tables), nil
}

func NewDeriverWithTables(base time.Time, tables *Tables) *Deriver {
	return &Deriver{
		base:   utils.StartOfDay(base),
		tables: tables,
	}
}

// Duration is how long every derived event lasts.
func (d *Deriver) Duration() time.Duration {
	return time.Duration(d.tables.DurationMinutes) * time.Minute
}

func (d *Deriver) Derive(e models.Event) models.Schedule {
	offset := mod(e.ID*d.tables.DayStep, d.tables.DayWindow)
	clock, _ := time.Parse(utils.ClockLayout, d.tables.Times[mod(e.ID, len(d.tables.Times))])

	startsAt := d.base.AddDate(0, 0, offset).
		Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)

	return models.Schedule{
		StartsAt: startsAt,
		Date:     startsAt.Format(utils.DateLayout),
		Time:     startsAt.Format(utils.ClockLayout),
		Venue:    d.venue(e),
	}
}

func (d *Deriver) View(e models.Event) models.EventView {
	return models.EventView{Event: e, Schedule: d.Derive(e)}
}

func (d *Deriver) venue(e models.Event) string {
	venues := d.tables.Venues[strings.ToLower(strings.TrimSpace(e.Category))]
	if len(venues) == 0 {
		venues = d.tables.Venues["default"]
	}
	return venues[mod(e.ID, len(venues))]
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
