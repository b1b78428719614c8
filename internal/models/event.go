package models

import "time"

// Event is a catalog item as returned by the external products API.
type Event struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Price              float64  `json:"price"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
	Category           string   `json:"category"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand,omitempty"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Tags               []string `json:"tags"`
}

// EventPage mirrors the upstream list envelope.
type EventPage struct {
	Events []Event `json:"products"`
	Total  int     `json:"total"`
	Skip   int     `json:"skip"`
	Limit  int     `json:"limit"`
}

// Schedule holds the presentational fields derived from an event's id and category.
type Schedule struct {
	StartsAt time.Time `json:"starts_at"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Venue    string    `json:"venue"`
}

type EventView struct {
	Event
	Schedule
}

type EventDetail struct {
	EventView
	Registered bool `json:"registered"`
}

type EventList struct {
	Events []EventView `json:"events"`
	Total  int         `json:"total"`
	Count  int         `json:"count"`
	Query  string      `json:"query,omitempty"`
	Sort   string      `json:"sort,omitempty"`
}
