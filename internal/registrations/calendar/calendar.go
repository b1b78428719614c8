package calendar

import (
	"fmt"
	"ms-events/internal/models"
	"time"

	ical "github.com/arran4/golang-ical"
)

const ProductID = "-//ms-events//Registrations//EN"

// UID is stable per (event, user) so calendar clients update rather than duplicate.
func UID(eventID int, userID string) string {
	return fmt.Sprintf("%d-%s@events", eventID, userID)
}

// Build renders a user's registrations as an iCalendar feed with one VEVENT each.
func Build(user models.Identity, regs []models.Registration, duration time.Duration, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s's events", displayName(user)))

	for _, reg := range regs {
		start := reg.EventDate.UTC()

		event := cal.AddEvent(UID(reg.EventID, user.UserID))
		event.SetDtStampTime(now.UTC())
		event.SetStartAt(start)
		event.SetEndAt(start.Add(duration))
		event.SetSummary(reg.Title)
		if reg.Location != "" {
			event.SetLocation(reg.Location)
		}
		event.SetDescription(fmt.Sprintf("%s · $%.2f", reg.Category, reg.Price))
	}

	return cal.Serialize()
}

func displayName(user models.Identity) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}
