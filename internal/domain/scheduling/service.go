package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/praxis/praxis/internal/domain/session"
)

type Service struct {
	appts    AppointmentRepository
	patients PatientLedger
	sessions SessionLedger
	tx       TxRunner
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(appts AppointmentRepository, patients PatientLedger, sessions SessionLedger, tx TxRunner, log zerolog.Logger) *Service {
	return &Service{
		appts:    appts,
		patients: patients,
		sessions: sessions,
		tx:       tx,
		log:      log,
		now:      time.Now,
	}
}

// ledgerError translates a session ledger validation failure into this
// package's taxonomy, so callers see one set of error types regardless of
// which side of the appointment/session boundary rejected the input.
func ledgerError(err error) error {
	var ve *session.ValidationError
	if errors.As(err, &ve) {
		return &ValidationError{Field: ve.Field, Reason: ve.Reason}
	}
	return err
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx(ctx, fn)
}

func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

func (s *Service) validate(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	if a.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !ValidClock(a.StartTime) {
		return &ValidationError{Field: "start_time", Reason: "must be HH:MM"}
	}
	if !ValidClock(a.EndTime) {
		return &ValidationError{Field: "end_time", Reason: "must be HH:MM"}
	}
	if a.StartTime >= a.EndTime {
		return &ValidationError{Field: "start_time", Reason: "must be before end_time"}
	}
	if !ValidKind(a.Kind) {
		return &ValidationError{Field: "kind", Reason: "must be session, intake or report"}
	}
	if a.Status == "" {
		a.Status = StatusPlanned
	}
	if !ValidStatus(a.Status) {
		return &ValidationError{Field: "status", Reason: "unknown status"}
	}
	return nil
}

// Create books an appointment after a conflict check. A recurring session
// appointment is expanded into the patient's remaining weekly occurrences;
// an ad-hoc session appointment may instead trim surplus recurring ones.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.validate(a); err != nil {
			return err
		}
		a.Date = dateOnly(a.Date)

		p, err := s.patients.GetByID(ctx, a.PatientID)
		if err != nil {
			return &ValidationError{Field: "patient_id", Reason: "patient not found"}
		}

		conflicts, err := s.appts.FindConflicts(ctx, a.Date, a.StartTime, a.EndTime, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		if err := s.appts.Create(ctx, a); err != nil {
			return err
		}

		if a.Kind != KindSession {
			return nil
		}
		if a.Recurring {
			return s.expandSeries(ctx, a, p.PlannedSessions)
		}
		return s.trimAfterInsert(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// Update replaces an appointment's data after re-checking the slot, excluding
// the appointment itself from the conflict scan.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.appts.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if a.PatientID == uuid.Nil {
			a.PatientID = existing.PatientID
		}
		if a.Status == "" {
			a.Status = existing.Status
		}
		if err := s.validate(a); err != nil {
			return err
		}
		a.Date = dateOnly(a.Date)

		conflicts, err := s.appts.FindConflicts(ctx, a.Date, a.StartTime, a.EndTime, a.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		return s.appts.Update(ctx, a)
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.appts.GetByID(ctx, id); err != nil {
		return err
	}
	return s.appts.Delete(ctx, id)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.setStatus(ctx, id, StatusConfirmed)
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.setStatus(ctx, id, StatusInProgress)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.setStatus(ctx, id, StatusCancelled)
}

// Complete marks the appointment done. For session-kind appointments it also
// records the session ledger entry (once per appointment), recomputes the
// patient's completed counter from the ledger, and reconciles the remaining
// future schedule against the plan.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a *Appointment
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.setStatus(ctx, id, StatusCompleted)
		if err != nil {
			return err
		}
		if a.Kind != KindSession {
			return nil
		}

		exists, err := s.sessions.ExistsByAppointment(ctx, a.ID)
		if err != nil {
			return err
		}
		if !exists {
			// Record recounts the patient counters itself.
			err = s.sessions.Record(ctx, &session.Session{
				PatientID:     a.PatientID,
				AppointmentID: &a.ID,
				Date:          a.Date,
				StartTime:     a.StartTime,
				EndTime:       a.EndTime,
				Kind:          session.KindSession,
				Observations:  a.Notes,
			})
			if err != nil {
				return ledgerError(err)
			}
		} else if err := s.recount(ctx, a); err != nil {
			return err
		}

		p, err := s.patients.GetByID(ctx, a.PatientID)
		if err != nil {
			return err
		}
		return s.reconcileAfterCompletion(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// recount refreshes the patient counters from the session ledger. Used when
// completing an appointment whose session entry already exists.
func (s *Service) recount(ctx context.Context, a *Appointment) error {
	n, err := s.sessions.CountCompletedByPatient(ctx, a.PatientID)
	if err != nil {
		return err
	}
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return err
	}
	p.CompletedSessions = n
	if p.LastVisit == nil || a.Date.After(*p.LastVisit) {
		d := a.Date
		p.LastVisit = &d
	}
	p.RecomputeStatus()
	return s.patients.Update(ctx, p)
}

// Postpone moves an appointment to a new slot, preserving its duration, and
// marks it postponed. The new slot is conflict-checked excluding the
// appointment itself.
func (s *Service) Postpone(ctx context.Context, id uuid.UUID, newDate time.Time, newStart string) (*Appointment, error) {
	var a *Appointment
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.appts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if newDate.IsZero() {
			return &ValidationError{Field: "date", Reason: "is required"}
		}
		if !ValidClock(newStart) {
			return &ValidationError{Field: "start_time", Reason: "must be HH:MM"}
		}

		duration := clockMinutes(a.EndTime) - clockMinutes(a.StartTime)
		endMinutes := clockMinutes(newStart) + duration
		if endMinutes >= 24*60 {
			return &ValidationError{Field: "start_time", Reason: "appointment would run past midnight"}
		}
		newEnd := minutesClock(endMinutes)
		newDate = dateOnly(newDate)

		conflicts, err := s.appts.FindConflicts(ctx, newDate, newStart, newEnd, a.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		a.Date = newDate
		a.StartTime = newStart
		a.EndTime = newEnd
		a.Status = StatusPostponed
		return s.appts.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RecordSession creates a session ledger entry from an appointment without
// completing it, mapping the appointment kind onto the ledger kind. The
// per-appointment duplicate guard applies.
func (s *Service) RecordSession(ctx context.Context, appointmentID uuid.UUID, observations, createdBy *string) (*session.Session, error) {
	var sess *session.Session
	err := s.inTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetByID(ctx, appointmentID)
		if err != nil {
			return err
		}

		kind := session.KindSession
		switch a.Kind {
		case KindIntake:
			kind = session.KindIntake
		case KindReport:
			kind = session.KindAssessment
		}

		obs := observations
		if obs == nil {
			obs = a.Notes
		}
		sess = &session.Session{
			PatientID:     a.PatientID,
			AppointmentID: &a.ID,
			Date:          a.Date,
			StartTime:     a.StartTime,
			EndTime:       a.EndTime,
			Kind:          kind,
			Observations:  obs,
			CreatedBy:     createdBy,
		}
		if err := s.sessions.Record(ctx, sess); err != nil {
			return ledgerError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ReclassifyToday promotes today's appointments whose window contains the
// current wall-clock time to in_progress. It never demotes and never touches
// terminal appointments.
func (s *Service) ReclassifyToday(ctx context.Context) error {
	today := s.today()
	clock := s.now().Format("15:04")

	appts, err := s.appts.ListByDate(ctx, today)
	if err != nil {
		return err
	}
	for _, a := range appts {
		if a.IsTerminal() || a.Status == StatusInProgress {
			continue
		}
		if a.StartTime <= clock && clock < a.EndTime {
			a.Status = StatusInProgress
			if err := s.appts.Update(ctx, a); err != nil {
				s.log.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("reclassification update failed")
				continue
			}
			s.log.Info().
				Str("appointment_id", a.ID.String()).
				Str("start_time", a.StartTime).
				Str("end_time", a.EndTime).
				Msg("appointment reclassified to in_progress")
		}
	}
	return nil
}

// -- Queries --

// FindConflicts runs the raw overlap scan: same date, half-open interval
// intersection, status-insensitive.
func (s *Service) FindConflicts(ctx context.Context, date time.Time, start, end string, excludeID uuid.UUID) ([]*Appointment, error) {
	if !ValidClock(start) || !ValidClock(end) || start >= end {
		return nil, &ValidationError{Field: "start_time", Reason: "invalid interval"}
	}
	return s.appts.FindConflicts(ctx, dateOnly(date), start, end, excludeID)
}

func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]*Appointment, error) {
	return s.appts.ListByDate(ctx, dateOnly(date))
}

// TodayActive returns today's non-terminal appointments.
func (s *Service) TodayActive(ctx context.Context) ([]*Appointment, error) {
	all, err := s.appts.ListByDate(ctx, s.today())
	if err != nil {
		return nil, err
	}
	var active []*Appointment
	for _, a := range all {
		if !a.IsTerminal() {
			active = append(active, a)
		}
	}
	return active, nil
}

func (s *Service) TodayAll(ctx context.Context) ([]*Appointment, error) {
	return s.appts.ListByDate(ctx, s.today())
}

func (s *Service) Upcoming(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListUpcoming(ctx, s.today(), limit, offset)
}

func (s *Service) Overdue(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListOverdue(ctx, s.today(), limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.Search(ctx, params, limit, offset)
}

// Stats is the operational snapshot for the day board.
type Stats struct {
	ByStatus   map[string]int `json:"by_status"`
	TodayTotal int            `json:"today_total"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.appts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	todayTotal, err := s.appts.CountByDate(ctx, s.today())
	if err != nil {
		return nil, err
	}
	return &Stats{ByStatus: byStatus, TodayTotal: todayTotal}, nil
}
