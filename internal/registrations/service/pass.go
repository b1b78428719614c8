package service

import (
	"context"
	"errors"
	"fmt"
	"ms-events/internal/models"
)

type PassGenerator interface {
	Open(token string) (*models.PassClaims, error)
	PNG(claims models.PassClaims, size int) ([]byte, error)
}

// PassService issues and checks registration passes.
type PassService struct {
	Registrations *RegistrationService
	Generator     PassGenerator
}

func NewPassService(registrations *RegistrationService, generator PassGenerator) *PassService {
	return &PassService{
		Registrations: registrations,
		Generator:     generator,
	}
}

// PassPNG renders a pass for an existing registration.
func (p *PassService) PassPNG(ctx context.Context, userID string, eventID, size int) ([]byte, error) {
	reg, err := p.Registrations.Get(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	png, err := p.Generator.PNG(models.PassClaims{
		UserID:   reg.UserID,
		EventID:  reg.EventID,
		IssuedAt: p.Registrations.Now().UTC(),
	}, size)
	if err != nil {
		return nil, fmt.Errorf("render pass: %w", err)
	}
	return png, nil
}

// Verify opens a pass and checks that its registration still exists. A pass that
// opens but whose registration is gone is reported as not valid, not as an error.
func (p *PassService) Verify(ctx context.Context, token string) (*models.PassVerification, error) {
	claims, err := p.Generator.Open(token)
	if err != nil {
		return nil, err
	}

	reg, err := p.Registrations.DB.GetRegistration(ctx, claims.UserID, claims.EventID)
	if errors.Is(err, models.ErrRegistrationNotFound) {
		return &models.PassVerification{Valid: false, Claims: claims}, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.PassVerification{Valid: true, Claims: claims, Registration: reg}, nil
}
