package models

import "time"

type RegistrationEventType string

const (
	RegistrationCreated   RegistrationEventType = "registration.created"
	RegistrationCancelled RegistrationEventType = "registration.cancelled"
)

// RegistrationEvent is published on every registration change.
type RegistrationEvent struct {
	Type    RegistrationEventType `json:"type"`
	UserID  string                `json:"user_id"`
	EventID int                   `json:"event_id"`
	Title   string                `json:"title"`
	At      time.Time             `json:"at"`
}
