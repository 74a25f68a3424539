package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/praxis/praxis/internal/domain/patient"
	"github.com/praxis/praxis/internal/domain/session"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindConflicts returns appointments on date whose [start_time, end_time)
	// interval overlaps [start, end), regardless of status, excluding excludeID.
	FindConflicts(ctx context.Context, date time.Time, start, end string, excludeID uuid.UUID) ([]*Appointment, error)

	ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error)
	ListUpcoming(ctx context.Context, from time.Time, limit, offset int) ([]*Appointment, int, error)
	ListOverdue(ctx context.Context, before time.Time, limit, offset int) ([]*Appointment, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)

	// ListFutureRecurringSessions returns non-terminal recurring session-kind
	// appointments strictly after the given date, latest date first.
	ListFutureRecurringSessions(ctx context.Context, patientID uuid.UUID, after time.Time) ([]*Appointment, error)
	// ListFutureSessions is the same without the recurring restriction.
	ListFutureSessions(ctx context.Context, patientID uuid.UUID, after time.Time) ([]*Appointment, error)
	// CountSessionAppointments counts the patient's non-cancelled session-kind
	// appointments, past and future alike.
	CountSessionAppointments(ctx context.Context, patientID uuid.UUID) (int, error)

	CountByStatus(ctx context.Context) (map[string]int, error)
	CountByDate(ctx context.Context, date time.Time) (int, error)
}

// PatientLedger is the slice of the patient repository the scheduling service
// needs for expansion bounds and counter updates.
type PatientLedger interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Update(ctx context.Context, p *patient.Patient) error
}

// SessionLedger is the slice of the session service used when completing
// appointments. Satisfied by *session.Service.
type SessionLedger interface {
	Record(ctx context.Context, s *session.Session) error
	ExistsByAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	CountCompletedByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}

// TxRunner runs fn inside a single unit of work. The server wires this to
// db.InTx; tests may pass nil to run operations directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error
