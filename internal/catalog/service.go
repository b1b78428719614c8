package catalog

import (
	"context"
	"errors"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const MaxPageSize = 100

type EventSource interface {
	FetchPage(ctx context.Context, limit, skip int) (*models.EventPage, error)
	FetchEvent(ctx context.Context, id int) (*models.Event, error)
}

// EventCache is optional. Misses are reported as nil, nil.
type EventCache interface {
	GetPage(ctx context.Context, limit, skip int) (*models.EventPage, error)
	SetPage(ctx context.Context, limit, skip int, page *models.EventPage) error
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	SetEvent(ctx context.Context, event *models.Event) error
}

type ListOptions struct {
	Query string
	Sort  string
	Limit int
	Skip  int
}

type Service struct {
	Source   EventSource
	Cache    EventCache
	Deriver  *Deriver
	PageSize int
	Logger   *logger.Logger
}

func NewService(source EventSource, cache EventCache, deriver *Deriver, pageSize int, log *logger.Logger) *Service {
	if pageSize <= 0 {
		pageSize = 30
	}
	return &Service{
		Source:   source,
		Cache:    cache,
		Deriver:  deriver,
		PageSize: pageSize,
		Logger:   log,
	}
}

// List fetches one page, derives schedules, then filters and sorts it.
func (s *Service) List(ctx context.Context, opts ListOptions) (*models.EventList, error) {
	limit, skip := s.normalize(opts.Limit, opts.Skip)

	page, err := s.page(ctx, limit, skip)
	if err != nil {
		return nil, err
	}

	views := make([]models.EventView, 0, len(page.Events))
	for _, e := range page.Events {
		views = append(views, s.Deriver.View(e))
	}

	views = Filter(views, opts.Query)
	Sort(views, opts.Sort)

	return &models.EventList{
		Events: views,
		Total:  page.Total,
		Count:  len(views),
		Query:  opts.Query,
		Sort:   opts.Sort,
	}, nil
}

// Get fetches one event with its derived schedule.
func (s *Service) Get(ctx context.Context, id int) (*models.EventView, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidEventID, id)
	}

	if s.Cache != nil {
		cached, err := s.Cache.GetEvent(ctx, id)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Event cache read failed for %d: %v", id, err))
		} else if cached != nil {
			view := s.Deriver.View(*cached)
			return &view, nil
		}
	}

	event, err := s.Source.FetchEvent(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return nil, fmt.Errorf("event %d: %w", id, models.ErrEventNotFound)
		}
		return nil, fmt.Errorf("fetch event %d: %w", id, err)
	}

	if s.Cache != nil {
		if err := s.Cache.SetEvent(ctx, event); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Event cache write failed for %d: %v", id, err))
		}
	}

	view := s.Deriver.View(*event)
	return &view, nil
}

// Refresh refetches the default page and overwrites the cached copies.
func (s *Service) Refresh(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}

	page, err := s.Source.FetchPage(ctx, s.PageSize, 0)
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	if err := s.Cache.SetPage(ctx, s.PageSize, 0, page); err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	for i := range page.Events {
		if err := s.Cache.SetEvent(ctx, &page.Events[i]); err != nil {
			return fmt.Errorf("refresh catalog: %w", err)
		}
	}

	s.Logger.LogCatalog("REFRESH", fmt.Sprintf("cached %d events", len(page.Events)))
	return nil
}

func (s *Service) page(ctx context.Context, limit, skip int) (*models.EventPage, error) {
	if s.Cache != nil {
		cached, err := s.Cache.GetPage(ctx, limit, skip)
		if err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Page cache read failed: %v", err))
		} else if cached != nil {
			s.Logger.Debug("CACHE", fmt.Sprintf("Page cache hit limit=%d skip=%d", limit, skip))
			return cached, nil
		}
	}

	page, err := s.Source.FetchPage(ctx, limit, skip)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return nil, fmt.Errorf("fetch page: %w", models.ErrUpstream)
		}
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.SetPage(ctx, limit, skip, page); err != nil {
			s.Logger.Warn("CACHE", fmt.Sprintf("Page cache write failed: %v", err))
		}
	}
	return page, nil
}

func (s *Service) normalize(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = s.PageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
