package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"time"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// UpsertUser → insert a user, or rename the existing one with the same email
func (d *DB) UpsertUser(ctx context.Context, name, email string) (*models.User, error) {
	user := models.User{
		ID:        utils.GenerateUserID(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	_, err := d.Bun.NewInsert().
		Model(&user).
		On("CONFLICT (email) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", email, err)
	}

	return d.GetUserByEmail(ctx, email)
}

// GetUserByEmail → fetch one user by email
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID → fetch one user by id
func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
