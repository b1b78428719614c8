package catalog_test

import (
	"context"
	"errors"
	"ms-events/internal/catalog"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchPage(ctx context.Context, limit, skip int) (*models.EventPage, error) {
	args := m.Called(limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventPage), args.Error(1)
}

func (m *MockSource) FetchEvent(ctx context.Context, id int) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetPage(ctx context.Context, limit, skip int) (*models.EventPage, error) {
	args := m.Called(limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EventPage), args.Error(1)
}

func (m *MockCache) SetPage(ctx context.Context, limit, skip int, page *models.EventPage) error {
	return m.Called(limit, skip, page).Error(0)
}

func (m *MockCache) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockCache) SetEvent(ctx context.Context, event *models.Event) error {
	return m.Called(event).Error(0)
}

func testPage() *models.EventPage {
	return &models.EventPage{
		Events: []models.Event{
			{ID: 1, Title: "Essence Mascara Lash Princess", Category: "beauty", Price: 9.99, Rating: 4.94},
			{ID: 5, Title: "Red Nail Polish", Category: "beauty", Price: 8.99, Rating: 3.91},
			{ID: 6, Title: "Calvin Klein CK One", Category: "fragrances", Price: 49.99, Rating: 4.85},
		},
		Total: 194,
		Limit: 30,
	}
}

func newCatalog(t *testing.T, source catalog.EventSource, cache catalog.EventCache) *catalog.Service {
	return catalog.NewService(source, cache, newDeriver(t), 30, logger.NewWithWriter(nil))
}

func TestList_FiltersAndSorts(t *testing.T) {
	source := new(MockSource)
	source.On("FetchPage", 30, 0).Return(testPage(), nil)

	list, err := newCatalog(t, source, nil).List(context.Background(), catalog.ListOptions{Query: "beauty", Sort: catalog.SortPrice})
	require.NoError(t, err)

	assert.Equal(t, 194, list.Total)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []int{1, 5}, ids(list.Events))
	assert.Equal(t, "2026-01-12", list.Events[0].Date)
	assert.Equal(t, "beauty", list.Query)
}

func TestList_ClampsPaging(t *testing.T) {
	source := new(MockSource)
	source.On("FetchPage", catalog.MaxPageSize, 0).Return(&models.EventPage{}, nil)

	list, err := newCatalog(t, source, nil).List(context.Background(), catalog.ListOptions{Limit: 500, Skip: -3})
	require.NoError(t, err)
	assert.NotNil(t, list.Events)
	assert.Equal(t, 0, list.Count)
	source.AssertExpectations(t)
}

func TestList_UpstreamErrors(t *testing.T) {
	source := new(MockSource)
	source.On("FetchPage", 30, 0).Return(nil, models.ErrEventNotFound).Once()
	source.On("FetchPage", 30, 0).Return(nil, models.ErrUpstream).Once()
	svc := newCatalog(t, source, nil)

	_, err := svc.List(context.Background(), catalog.ListOptions{})
	assert.ErrorIs(t, err, models.ErrUpstream, "a missing page means the upstream is broken")

	_, err = svc.List(context.Background(), catalog.ListOptions{})
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestList_CacheHitSkipsUpstream(t *testing.T) {
	source := new(MockSource)
	cache := new(MockCache)
	cache.On("GetPage", 30, 0).Return(testPage(), nil)

	list, err := newCatalog(t, source, cache).List(context.Background(), catalog.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Count)
	source.AssertNotCalled(t, "FetchPage", mock.Anything, mock.Anything)
}

func TestList_CacheFailureFallsThrough(t *testing.T) {
	source := new(MockSource)
	cache := new(MockCache)
	page := testPage()
	cache.On("GetPage", 30, 0).Return(nil, errors.New("connection refused"))
	cache.On("SetPage", 30, 0, page).Return(errors.New("connection refused"))
	source.On("FetchPage", 30, 0).Return(page, nil)

	list, err := newCatalog(t, source, cache).List(context.Background(), catalog.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Count)
	cache.AssertExpectations(t)
}

func TestGet(t *testing.T) {
	source := new(MockSource)
	cache := new(MockCache)
	event := &models.Event{ID: 1, Title: "Essence Mascara Lash Princess", Category: "beauty"}
	cache.On("GetEvent", 1).Return(nil, nil)
	source.On("FetchEvent", 1).Return(event, nil)
	cache.On("SetEvent", event).Return(nil)

	got, err := newCatalog(t, source, cache).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Atelier Rooftop Terrace", got.Venue)
	assert.Equal(t, "10:30", got.Time)
	cache.AssertExpectations(t)
}

func TestGet_Errors(t *testing.T) {
	source := new(MockSource)
	source.On("FetchEvent", 9999).Return(nil, models.ErrEventNotFound)
	source.On("FetchEvent", 2).Return(nil, models.ErrUpstream)
	svc := newCatalog(t, source, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	assert.ErrorIs(t, err, models.ErrInvalidEventID)

	_, err = svc.Get(ctx, -4)
	assert.ErrorIs(t, err, models.ErrInvalidEventID)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = svc.Get(ctx, 2)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestRefresh(t *testing.T) {
	source := new(MockSource)
	cache := new(MockCache)
	page := testPage()
	source.On("FetchPage", 30, 0).Return(page, nil)
	cache.On("SetPage", 30, 0, page).Return(nil)
	cache.On("SetEvent", mock.AnythingOfType("*models.Event")).Return(nil)

	require.NoError(t, newCatalog(t, source, cache).Refresh(context.Background()))
	cache.AssertNumberOfCalls(t, "SetEvent", 3)

	assert.NoError(t, newCatalog(t, new(MockSource), nil).Refresh(context.Background()), "no cache, nothing to refresh")
}
