package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration is a snapshot of an event taken when a user registers.
// (user_id, event_id) is the primary key, so a user holds at most one per event.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	UserID       string    `bun:"user_id,pk" json:"-"`
	EventID      int       `bun:"event_id,pk" json:"id"`
	Title        string    `bun:"title,notnull" json:"title"`
	Price        float64   `bun:"price,notnull" json:"price"`
	Thumbnail    string    `bun:"thumbnail" json:"thumbnail"`
	Category     string    `bun:"category" json:"category"`
	RegisteredAt time.Time `bun:"registered_at,notnull" json:"registered_at"`
	EventDate    time.Time `bun:"event_date,notnull" json:"event_date"`
	Location     string    `bun:"location" json:"location"`
}

// PassClaims is the payload sealed into a registration pass.
type PassClaims struct {
	UserID   string    `json:"uid"`
	EventID  int       `json:"eid"`
	IssuedAt time.Time `json:"iat"`
}

type PassVerification struct {
	Valid        bool          `json:"valid"`
	Claims       *PassClaims   `json:"claims,omitempty"`
	Registration *Registration `json:"registration,omitempty"`
}
