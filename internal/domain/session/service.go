package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	sessions Repository
	patients PatientStore
	log      zerolog.Logger
}

func NewService(sessions Repository, patients PatientStore, log zerolog.Logger) *Service {
	return &Service{sessions: sessions, patients: patients, log: log}
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for i, c := range s {
		if i == 2 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return s[:2] < "24" && s[3:] < "60"
}

func (s *Service) validate(sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	if sess.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !validClock(sess.StartTime) {
		return &ValidationError{Field: "start_time", Reason: "must be HH:MM"}
	}
	if !validClock(sess.EndTime) {
		return &ValidationError{Field: "end_time", Reason: "must be HH:MM"}
	}
	if sess.StartTime >= sess.EndTime {
		return &ValidationError{Field: "start_time", Reason: "must be before end_time"}
	}
	if !ValidKind(sess.Kind) {
		return &ValidationError{Field: "kind", Reason: "must be session, intake or assessment"}
	}
	return nil
}

// Record validates and persists a session entry. Sessions of kind "session"
// update the owning patient's completed counter and status. A session bound to
// an appointment is rejected when one already exists for that appointment.
func (s *Service) Record(ctx context.Context, sess *Session) error {
	if err := s.validate(sess); err != nil {
		return err
	}
	if _, err := s.patients.GetByID(ctx, sess.PatientID); err != nil {
		return &ValidationError{Field: "patient_id", Reason: "patient not found"}
	}
	if sess.AppointmentID != nil {
		exists, err := s.sessions.ExistsByAppointment(ctx, *sess.AppointmentID)
		if err != nil {
			return err
		}
		if exists {
			return &ValidationError{Field: "appointment_id", Reason: "a session is already recorded for this appointment"}
		}
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return err
	}
	if sess.Counts() {
		return s.recount(ctx, sess.PatientID, &sess.Date)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

// Update persists session changes and recounts the patient's completed
// sessions, so a kind change in either direction corrects the counter.
func (s *Service) Update(ctx context.Context, sess *Session) error {
	existing, err := s.sessions.GetByID(ctx, sess.ID)
	if err != nil {
		return err
	}
	sess.PatientID = existing.PatientID
	sess.AppointmentID = existing.AppointmentID
	if err := s.validate(sess); err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return err
	}
	return s.recount(ctx, sess.PatientID, nil)
}

// Delete removes a session. When a counting session is removed the patient's
// counter and status are recomputed from what is left.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	if sess.Counts() {
		return s.recount(ctx, sess.PatientID, nil)
	}
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]*Session, error) {
	return s.sessions.ListByDate(ctx, date)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]*Session, error) {
	return s.sessions.ListRecent(ctx, limit)
}

func (s *Service) CountCompletedByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	return s.sessions.CountCompletedByPatient(ctx, patientID)
}

func (s *Service) ExistsByAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return s.sessions.ExistsByAppointment(ctx, appointmentID)
}

// recount rebuilds the patient's completed-sessions counter from the ledger.
// The full recount makes the counter self-healing: it converges even if a
// previous update was lost. lastVisit, when given, advances the patient's
// last visit date.
func (s *Service) recount(ctx context.Context, patientID uuid.UUID, lastVisit *time.Time) error {
	n, err := s.sessions.CountCompletedByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return err
	}
	p.CompletedSessions = n
	if lastVisit != nil && (p.LastVisit == nil || lastVisit.After(*p.LastVisit)) {
		p.LastVisit = lastVisit
	}
	p.RecomputeStatus()
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().
		Str("patient_id", patientID.String()).
		Int("completed_sessions", n).
		Str("status", p.Status).
		Msg("patient counters recomputed")
	return nil
}
