package service

import (
	"context"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"time"
)

type RegistrationDBLayer interface {
	CreateRegistration(ctx context.Context, reg models.Registration) error
	DeleteRegistration(ctx context.Context, userID string, eventID int) error
	GetRegistration(ctx context.Context, userID string, eventID int) (*models.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]models.Registration, error)
	Exists(ctx context.Context, userID string, eventID int) (bool, error)
}

// EventLookup resolves an event id to its catalog entry with schedule.
type EventLookup interface {
	Get(ctx context.Context, id int) (*models.EventView, error)
}

type Locker interface {
	Lock(ctx context.Context, userID string, eventID int) (string, bool, error)
	Unlock(ctx context.Context, userID string, eventID int, token string) error
}

type Publisher interface {
	Publish(ctx context.Context, evt models.RegistrationEvent) error
}

const (
	lockAttempts = 5
	lockBackoff  = 40 * time.Millisecond
)

type RegistrationService struct {
	DB         RegistrationDBLayer
	Events     EventLookup
	Locker     Locker
	Publishers []Publisher
	Logger     *logger.Logger
	Now        func() time.Time
}

func NewRegistrationService(db RegistrationDBLayer, events EventLookup, locker Locker, log *logger.Logger, publishers ...Publisher) *RegistrationService {
	return &RegistrationService{
		DB:         db,
		Events:     events,
		Locker:     locker,
		Publishers: publishers,
		Logger:     log,
		Now:        time.Now,
	}
}

// Register snapshots the event and stores a registration for user.
func (s *RegistrationService) Register(ctx context.Context, user models.Identity, eventID int) (*models.Registration, error) {
	if err := validate(user, eventID); err != nil {
		return nil, err
	}

	var reg *models.Registration
	err := s.withLock(ctx, user.UserID, eventID, func() error {
		var err error
		reg, err = s.register(ctx, user, eventID)
		return err
	})
	return reg, err
}

// Unregister removes the user's registration for eventID.
func (s *RegistrationService) Unregister(ctx context.Context, user models.Identity, eventID int) error {
	if err := validate(user, eventID); err != nil {
		return err
	}
	return s.withLock(ctx, user.UserID, eventID, func() error {
		return s.unregister(ctx, user, eventID)
	})
}

// Toggle registers when absent and unregisters when present. It reports the new state.
func (s *RegistrationService) Toggle(ctx context.Context, user models.Identity, eventID int) (bool, error) {
	if err := validate(user, eventID); err != nil {
		return false, err
	}

	var registered bool
	err := s.withLock(ctx, user.UserID, eventID, func() error {
		exists, err := s.DB.Exists(ctx, user.UserID, eventID)
		if err != nil {
			return err
		}
		if exists {
			registered = false
			return s.unregister(ctx, user, eventID)
		}
		registered = true
		_, err = s.register(ctx, user, eventID)
		return err
	})
	if err != nil {
		return false, err
	}
	return registered, nil
}

func (s *RegistrationService) IsRegistered(ctx context.Context, userID string, eventID int) (bool, error) {
	return s.DB.Exists(ctx, userID, eventID)
}

func (s *RegistrationService) Get(ctx context.Context, userID string, eventID int) (*models.Registration, error) {
	if eventID <= 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidEventID, eventID)
	}
	return s.DB.GetRegistration(ctx, userID, eventID)
}

// List returns the user's registrations, soonest event first.
func (s *RegistrationService) List(ctx context.Context, userID string) ([]models.Registration, error) {
	return s.DB.ListByUser(ctx, userID)
}

func (s *RegistrationService) register(ctx context.Context, user models.Identity, eventID int) (*models.Registration, error) {
	exists, err := s.DB.Exists(ctx, user.UserID, eventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("event %d: %w", eventID, models.ErrAlreadyRegistered)
	}

	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reg := models.Registration{
		UserID:       user.UserID,
		EventID:      event.ID,
		Title:        event.Title,
		Price:        event.Price,
		Thumbnail:    event.Thumbnail,
		Category:     event.Category,
		RegisteredAt: s.Now().UTC(),
		EventDate:    event.StartsAt.UTC(),
		Location:     event.Venue,
	}
	if err := s.DB.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}

	s.Logger.LogRegistration("CREATE", user.UserID, eventID, reg.Title)
	s.publish(ctx, models.RegistrationEvent{
		Type:    models.RegistrationCreated,
		UserID:  user.UserID,
		EventID: eventID,
		Title:   reg.Title,
		At:      reg.RegisteredAt,
	})
	return &reg, nil
}

func (s *RegistrationService) unregister(ctx context.Context, user models.Identity, eventID int) error {
	reg, err := s.DB.GetRegistration(ctx, user.UserID, eventID)
	if err != nil {
		return err
	}
	if err := s.DB.DeleteRegistration(ctx, user.UserID, eventID); err != nil {
		return err
	}

	s.Logger.LogRegistration("DELETE", user.UserID, eventID, reg.Title)
	s.publish(ctx, models.RegistrationEvent{
		Type:    models.RegistrationCancelled,
		UserID:  user.UserID,
		EventID: eventID,
		Title:   reg.Title,
		At:      s.Now().UTC(),
	})
	return nil
}

// withLock runs fn while holding the (user, event) lock. Without a Locker, or
// when Redis fails, fn runs unlocked and the primary key still rejects duplicates.
func (s *RegistrationService) withLock(ctx context.Context, userID string, eventID int, fn func() error) error {
	if s.Locker == nil {
		return fn()
	}

	var token string
	for attempt := 1; ; attempt++ {
		t, ok, err := s.Locker.Lock(ctx, userID, eventID)
		if err != nil {
			s.Logger.Warn("REGISTER", fmt.Sprintf("Lock unavailable for user=%s event=%d, continuing unlocked: %v", userID, eventID, err))
			return fn()
		}
		if ok {
			token = t
			break
		}
		if attempt == lockAttempts {
			return fmt.Errorf("event %d: %w", eventID, models.ErrRegistrationBusy)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}

	defer func() {
		// The request context may already be cancelled; release regardless.
		if err := s.Locker.Unlock(context.Background(), userID, eventID, token); err != nil {
			s.Logger.Warn("REGISTER", fmt.Sprintf("Failed to release lock for user=%s event=%d: %v", userID, eventID, err))
		}
	}()
	return fn()
}

func (s *RegistrationService) publish(ctx context.Context, evt models.RegistrationEvent) {
	for _, p := range s.Publishers {
		if err := p.Publish(ctx, evt); err != nil {
			s.Logger.Warn("REGISTER", fmt.Sprintf("Failed to publish %s for user=%s event=%d: %v", evt.Type, evt.UserID, evt.EventID, err))
		}
	}
}

func validate(user models.Identity, eventID int) error {
	if user.UserID == "" {
		return models.ErrUnauthorized
	}
	if eventID <= 0 {
		return fmt.Errorf("%w: %d", models.ErrInvalidEventID, eventID)
	}
	return nil
}

