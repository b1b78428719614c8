package models

import "errors"

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrInvalidEventID       = errors.New("invalid event id")
	ErrUpstream             = errors.New("event catalog unavailable")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrRegistrationBusy     = errors.New("registration change already in progress")
	ErrUserNotFound         = errors.New("user not found")
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidPass  = errors.New("invalid pass")
	ErrValidation   = errors.New("validation error")
)
