package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/praxis/praxis/internal/domain/patient"
)

// expandSeries books the remaining weekly occurrences of a recurring session
// series: planned-1 further appointments, one week apart, same times. An
// occurrence whose slot is already taken is skipped and logged, never retried.
func (s *Service) expandSeries(ctx context.Context, first *Appointment, planned int) error {
	if planned <= 1 {
		return nil
	}

	for k := 1; k < planned; k++ {
		date := first.Date.AddDate(0, 0, 7*k)

		conflicts, err := s.appts.FindConflicts(ctx, date, first.StartTime, first.EndTime, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			s.log.Warn().
				Str("patient_id", first.PatientID.String()).
				Str("date", date.Format("2006-01-02")).
				Str("start_time", first.StartTime).
				Int("occurrence", k+1).
				Msg("recurring occurrence skipped, slot taken")
			continue
		}

		notes := fmt.Sprintf("Recurring session %d of %d", k+1, planned)
		occ := &Appointment{
			PatientID: first.PatientID,
			Date:      date,
			StartTime: first.StartTime,
			EndTime:   first.EndTime,
			Kind:      KindSession,
			Status:    StatusPlanned,
			Notes:     &notes,
			Recurring: true,
		}
		if err := s.appts.Create(ctx, occ); err != nil {
			return err
		}
	}
	return nil
}

// trimAfterInsert runs after an ad-hoc (non-recurring) session appointment is
// booked. When the patient now has more non-cancelled session appointments
// than planned, the surplus is removed from future recurring ones, latest
// date first. Past appointments and ad-hoc ones are never touched here.
func (s *Service) trimAfterInsert(ctx context.Context, p *patient.Patient) error {
	if p.PlannedSessions <= 0 {
		return nil
	}

	count, err := s.appts.CountSessionAppointments(ctx, p.ID)
	if err != nil {
		return err
	}
	surplus := count - p.PlannedSessions
	if surplus <= 0 {
		return nil
	}

	future, err := s.appts.ListFutureRecurringSessions(ctx, p.ID, s.today())
	if err != nil {
		return err
	}
	for _, a := range future {
		if surplus == 0 {
			break
		}
		if err := s.appts.Delete(ctx, a.ID); err != nil {
			return err
		}
		surplus--
		s.log.Info().
			Str("patient_id", p.ID.String()).
			Str("appointment_id", a.ID.String()).
			Str("date", a.Date.Format("2006-01-02")).
			Msg("surplus recurring appointment removed")
	}
	return nil
}

// reconcileAfterCompletion trims the future session schedule down to the
// sessions the patient still has left in the plan. Recurring appointments go
// first, latest date first, then ad-hoc ones, latest first. When the future
// schedule already fits, nothing happens; missing occurrences are never
// auto-filled.
func (s *Service) reconcileAfterCompletion(ctx context.Context, p *patient.Patient) error {
	remaining := p.PlannedSessions - p.CompletedSessions
	if remaining < 0 {
		remaining = 0
	}

	future, err := s.appts.ListFutureSessions(ctx, p.ID, s.today())
	if err != nil {
		return err
	}
	if len(future) <= remaining {
		return nil
	}
	excess := len(future) - remaining

	// future is latest-first; put recurring ahead of ad-hoc, keeping that order.
	var victims []*Appointment
	for _, a := range future {
		if a.Recurring {
			victims = append(victims, a)
		}
	}
	for _, a := range future {
		if !a.Recurring {
			victims = append(victims, a)
		}
	}

	for i := 0; i < excess; i++ {
		a := victims[i]
		if err := s.appts.Delete(ctx, a.ID); err != nil {
			return err
		}
		s.log.Info().
			Str("patient_id", p.ID.String()).
			Str("appointment_id", a.ID.String()).
			Str("date", a.Date.Format("2006-01-02")).
			Bool("recurring", a.Recurring).
			Int("remaining_planned", remaining).
			Msg("excess future session removed after completion")
	}
	return nil
}
