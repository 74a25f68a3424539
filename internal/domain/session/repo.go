package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/praxis/praxis/internal/domain/patient"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Session, error)
	ListRecent(ctx context.Context, limit int) ([]*Session, error)
	CountCompletedByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	ExistsByAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// PatientStore is the slice of the patient repository the session ledger needs
// to keep counters and status in sync.
type PatientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Update(ctx context.Context, p *patient.Patient) error
}
