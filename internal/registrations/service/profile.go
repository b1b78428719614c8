package service

import (
	"context"
	"ms-events/internal/models"
	"ms-events/internal/registrations/calendar"
	"ms-events/internal/utils"
	"sort"
	"time"
)

// Summarize computes the profile summary of a set of registrations.
func Summarize(regs []models.Registration) models.ProfileSummary {
	var spend float64
	seen := make(map[string]struct{})
	names := make([]string, 0)

	for _, reg := range regs {
		spend += reg.Price
		if reg.Category == "" {
			continue
		}
		if _, ok := seen[reg.Category]; !ok {
			seen[reg.Category] = struct{}{}
			names = append(names, reg.Category)
		}
	}
	sort.Strings(names)

	return models.ProfileSummary{
		TotalEvents:   len(regs),
		TotalSpend:    utils.RoundCents(spend),
		Categories:    len(names),
		CategoryNames: names,
	}
}

func (s *RegistrationService) Profile(ctx context.Context, user models.Identity) (*models.Profile, error) {
	regs, err := s.List(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	return &models.Profile{
		User:          user,
		Registrations: regs,
		Summary:       Summarize(regs),
	}, nil
}

// Calendar renders the user's registrations as an iCalendar feed.
func (s *RegistrationService) Calendar(ctx context.Context, user models.Identity, duration time.Duration) (string, error) {
	regs, err := s.List(ctx, user.UserID)
	if err != nil {
		return "", err
	}
	return calendar.Build(user, regs, duration, s.Now()), nil
}
