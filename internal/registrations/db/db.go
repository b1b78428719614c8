package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-events/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- REGISTRATIONS ----------------

// CreateRegistration → insert a registration, failing if the user already holds one for the event
func (d *DB) CreateRegistration(ctx context.Context, reg models.Registration) error {
	res, err := d.Bun.NewInsert().
		Model(&reg).
		On("CONFLICT (user_id, event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", reg.EventID, models.ErrAlreadyRegistered)
	}
	return nil
}

// DeleteRegistration → delete one registration
func (d *DB) DeleteRegistration(ctx context.Context, userID string, eventID int) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Registration)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", eventID, models.ErrRegistrationNotFound)
	}
	return nil
}

// GetRegistration → fetch one registration
func (d *DB) GetRegistration(ctx context.Context, userID string, eventID int) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", eventID, models.ErrRegistrationNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListByUser → all registrations of a user, soonest event first
func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	regs := make([]models.Registration, 0)
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("user_id = ?", userID).
		Order("event_date ASC", "event_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return regs, nil
}

// Exists → whether the user is registered for the event
func (d *DB) Exists(ctx context.Context, userID string, eventID int) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Exists(ctx)
}
