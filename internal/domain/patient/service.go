package patient

import (
	"context"

	"github.com/google/uuid"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) validate(p *Patient) error {
	if p.FirstName == "" {
		return &ValidationError{Field: "first_name", Reason: "is required"}
	}
	if p.LastName == "" {
		return &ValidationError{Field: "last_name", Reason: "is required"}
	}
	if p.PlannedSessions < 0 {
		return &ValidationError{Field: "planned_sessions", Reason: "must not be negative"}
	}
	if p.CompletedSessions < 0 {
		return &ValidationError{Field: "completed_sessions", Reason: "must not be negative"}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	p.RecomputeStatus()
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if _, err := s.patients.GetByID(ctx, p.ID); err != nil {
		return err
	}
	p.RecomputeStatus()
	return s.patients.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchByName(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.SearchByName(ctx, query, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Patient, int, error) {
	if status != StatusNew && status != StatusActive && status != StatusInactive {
		return nil, 0, &ValidationError{Field: "status", Reason: "must be new, active or inactive"}
	}
	return s.patients.ListByStatus(ctx, status, limit, offset)
}
