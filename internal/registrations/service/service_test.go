package service_test

import (
	"context"
	"errors"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/registrations/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations
type MockRegistrationDB struct {
	mock.Mock
}

func (m *MockRegistrationDB) CreateRegistration(ctx context.Context, reg models.Registration) error {
	return m.Called(reg).Error(0)
}

func (m *MockRegistrationDB) DeleteRegistration(ctx context.Context, userID string, eventID int) error {
	return m.Called(userID, eventID).Error(0)
}

func (m *MockRegistrationDB) GetRegistration(ctx context.Context, userID string, eventID int) (*models.Registration, error) {
	args := m.Called(userID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockRegistrationDB) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

func (m *MockRegistrationDB) Exists(ctx context.Context, userID string, eventID int) (bool, error) {
	args := m.Called(userID, eventID)
	return args.Bool(0), args.Error(1)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Get(ctx context.Context, id int) (*models.EventView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventView), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, userID string, eventID int) (string, bool, error) {
	args := m.Called(userID, eventID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLocker) Unlock(ctx context.Context, userID string, eventID int, token string) error {
	return m.Called(userID, eventID, token).Error(0)
}

type recordingPublisher struct {
	events []models.RegistrationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt models.RegistrationEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

var (
	ada     = models.Identity{UserID: "u-1", Name: "Ada", Email: "ada@example.com"}
	fixedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

func mascara() *models.EventView {
	return &models.EventView{
		Event: models.Event{ID: 1, Title: "Essence Mascara", Price: 9.99, Category: "beauty", Thumbnail: "t.png"},
		Schedule: models.Schedule{
			StartsAt: time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC),
			Venue:    "Atelier Rooftop Terrace",
		},
	}
}

func newService(db *MockRegistrationDB, events *MockEvents, locker service.Locker, pubs ...service.Publisher) *service.RegistrationService {
	s := service.NewRegistrationService(db, events, locker, logger.NewWithWriter(nil), pubs...)
	s.Now = func() time.Time { return fixedAt }
	return s
}

func TestRegister_SnapshotsEvent(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)
	pub := &recordingPublisher{}

	db.On("Exists", "u-1", 1).Return(false, nil)
	events.On("Get", 1).Return(mascara(), nil)
	db.On("CreateRegistration", mock.MatchedBy(func(r models.Registration) bool {
		return r.UserID == "u-1" && r.EventID == 1 && r.Title == "Essence Mascara" &&
			r.Price == 9.99 && r.Location == "Atelier Rooftop Terrace" &&
			r.EventDate.Equal(time.Date(2026, 1, 12, 10, 30, 0, 0, time.UTC)) &&
			r.RegisteredAt.Equal(fixedAt)
	})).Return(nil)

	reg, err := newService(db, events, nil, pub).Register(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.Equal(t, "beauty", reg.Category)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.RegistrationCreated, pub.events[0].Type)
	assert.Equal(t, "Essence Mascara", pub.events[0].Title)

	db.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRegister_AlreadyRegisteredSkipsUpstream(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)
	db.On("Exists", "u-1", 1).Return(true, nil)

	_, err := newService(db, events, nil).Register(context.Background(), ada, 1)
	assert.ErrorIs(t, err, models.ErrAlreadyRegistered)
	events.AssertNotCalled(t, "Get", mock.Anything)
}

func TestRegister_UpstreamFailureStoresNothing(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)
	db.On("Exists", "u-1", 1).Return(false, nil)
	events.On("Get", 1).Return(nil, models.ErrUpstream)

	_, err := newService(db, events, nil).Register(context.Background(), ada, 1)
	assert.ErrorIs(t, err, models.ErrUpstream)
	db.AssertNotCalled(t, "CreateRegistration", mock.Anything)
}

func TestRegister_Validation(t *testing.T) {
	s := newService(new(MockRegistrationDB), new(MockEvents), nil)

	_, err := s.Register(context.Background(), ada, 0)
	assert.ErrorIs(t, err, models.ErrInvalidEventID)

	_, err = s.Register(context.Background(), models.Identity{}, 1)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUnregister(t *testing.T) {
	db := new(MockRegistrationDB)
	pub := &recordingPublisher{}
	db.On("GetRegistration", "u-1", 1).Return(&models.Registration{UserID: "u-1", EventID: 1, Title: "Essence Mascara"}, nil)
	db.On("DeleteRegistration", "u-1", 1).Return(nil)

	require.NoError(t, newService(db, new(MockEvents), nil, pub).Unregister(context.Background(), ada, 1))
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.RegistrationCancelled, pub.events[0].Type)

	missing := new(MockRegistrationDB)
	missing.On("GetRegistration", "u-1", 2).Return(nil, models.ErrRegistrationNotFound)
	err := newService(missing, new(MockEvents), nil).Unregister(context.Background(), ada, 2)
	assert.ErrorIs(t, err, models.ErrRegistrationNotFound)
	missing.AssertNotCalled(t, "DeleteRegistration", mock.Anything, mock.Anything)
}

func TestToggle_FlipsState(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)

	// absent → registered
	db.On("Exists", "u-1", 1).Return(false, nil).Twice()
	events.On("Get", 1).Return(mascara(), nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)

	s := newService(db, events, nil)
	registered, err := s.Toggle(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.True(t, registered)

	// present → removed
	db.On("Exists", "u-1", 1).Return(true, nil).Once()
	db.On("GetRegistration", "u-1", 1).Return(&models.Registration{UserID: "u-1", EventID: 1}, nil)
	db.On("DeleteRegistration", "u-1", 1).Return(nil)

	registered, err = s.Toggle(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.False(t, registered)

	db.AssertExpectations(t)
}

func TestToggle_HoldsAndReleasesLock(t *testing.T) {
	db := new(MockRegistrationDB)
	locker := new(MockLocker)
	locker.On("Lock", "u-1", 1).Return("tok", true, nil).Once()
	locker.On("Unlock", "u-1", 1, "tok").Return(nil).Once()
	db.On("Exists", "u-1", 1).Return(true, nil)
	db.On("GetRegistration", "u-1", 1).Return(&models.Registration{UserID: "u-1", EventID: 1}, nil)
	db.On("DeleteRegistration", "u-1", 1).Return(nil)

	registered, err := newService(db, new(MockEvents), locker).Toggle(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.False(t, registered)
	locker.AssertExpectations(t)
}

func TestToggle_BusyLock(t *testing.T) {
	db := new(MockRegistrationDB)
	locker := new(MockLocker)
	locker.On("Lock", "u-1", 1).Return("", false, nil)

	_, err := newService(db, new(MockEvents), locker).Toggle(context.Background(), ada, 1)
	assert.ErrorIs(t, err, models.ErrRegistrationBusy)
	locker.AssertNumberOfCalls(t, "Lock", 5)
	db.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestToggle_LockOutageFallsBackToUnlocked(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)
	locker := new(MockLocker)
	locker.On("Lock", "u-1", 1).Return("", false, errors.New("redis down"))
	db.On("Exists", "u-1", 1).Return(false, nil)
	events.On("Get", 1).Return(mascara(), nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)

	registered, err := newService(db, events, locker).Toggle(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.True(t, registered)
	locker.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishFailureDoesNotFailRegistration(t *testing.T) {
	db := new(MockRegistrationDB)
	events := new(MockEvents)
	broken := &recordingPublisher{err: errors.New("kafka down")}
	healthy := &recordingPublisher{}

	db.On("Exists", "u-1", 1).Return(false, nil)
	events.On("Get", 1).Return(mascara(), nil)
	db.On("CreateRegistration", mock.Anything).Return(nil)

	_, err := newService(db, events, nil, broken, healthy).Register(context.Background(), ada, 1)
	require.NoError(t, err)
	assert.Len(t, healthy.events, 1)
}
