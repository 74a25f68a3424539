package scheduling

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/praxis/praxis/internal/domain/patient"
	"github.com/praxis/praxis/internal/domain/session"
)

// -- Mock Repositories --

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) FindConflicts(_ context.Context, date time.Time, start, end string, excludeID uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.ID == excludeID || !a.Date.Equal(date) {
			continue
		}
		if Overlaps(a.StartTime, a.EndTime, start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApptRepo) ListByDate(_ context.Context, date time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *mockApptRepo) ListUpcoming(_ context.Context, from time.Time, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if !a.Date.Before(from) && !a.IsTerminal() {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) ListOverdue(_ context.Context, before time.Time, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.Date.Before(before) && !a.IsTerminal() {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if p, ok := params["patient"]; ok && a.PatientID.String() != p {
			continue
		}
		if st, ok := params["status"]; ok && a.Status != st {
			continue
		}
		if k, ok := params["kind"]; ok && a.Kind != k {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockApptRepo) ListFutureRecurringSessions(_ context.Context, patientID uuid.UUID, after time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID && a.Date.After(after) && a.Recurring && a.Kind == KindSession && !a.IsTerminal() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockApptRepo) ListFutureSessions(_ context.Context, patientID uuid.UUID, after time.Time) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID && a.Date.After(after) && a.Kind == KindSession && !a.IsTerminal() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *mockApptRepo) CountSessionAppointments(_ context.Context, patientID uuid.UUID) (int, error) {
	n := 0
	for _, a := range m.appts {
		if a.PatientID == patientID && a.Kind == KindSession && a.Status != StatusCancelled {
			n++
		}
	}
	return n, nil
}

func (m *mockApptRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.appts {
		counts[a.Status]++
	}
	return counts, nil
}

func (m *mockApptRepo) CountByDate(_ context.Context, date time.Time) (int, error) {
	n := 0
	for _, a := range m.appts {
		if a.Date.Equal(date) {
			n++
		}
	}
	return n, nil
}

// byPatientDates returns the patient's appointment dates sorted ascending.
func (m *mockApptRepo) byPatientDates(patientID uuid.UUID) []string {
	var dates []string
	for _, a := range m.appts {
		if a.PatientID == patientID {
			dates = append(dates, a.Date.Format("2006-01-02"))
		}
	}
	sort.Strings(dates)
	return dates
}

type mockPatients struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMockPatients() *mockPatients {
	return &mockPatients{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatients) Update(_ context.Context, p *patient.Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatients) add(planned int) *patient.Patient {
	p := &patient.Patient{ID: uuid.New(), FirstName: "Nora", LastName: "Haddad", PlannedSessions: planned}
	p.RecomputeStatus()
	m.patients[p.ID] = p
	return p
}

// mockSessions mimics the session ledger: persisting an entry of kind
// "session" recounts the owning patient's counters.
type mockSessions struct {
	sessions map[uuid.UUID]*session.Session
	patients *mockPatients
}

func newMockSessions(patients *mockPatients) *mockSessions {
	return &mockSessions{sessions: make(map[uuid.UUID]*session.Session), patients: patients}
}

func (m *mockSessions) Record(ctx context.Context, s *session.Session) error {
	if s.AppointmentID != nil {
		exists, _ := m.ExistsByAppointment(ctx, *s.AppointmentID)
		if exists {
			return &session.ValidationError{Field: "appointment_id", Reason: "a session is already recorded for this appointment"}
		}
	}
	s.ID = uuid.New()
	m.sessions[s.ID] = s
	if s.Kind != session.KindSession {
		return nil
	}
	n, _ := m.CountCompletedByPatient(ctx, s.PatientID)
	p, err := m.patients.GetByID(ctx, s.PatientID)
	if err != nil {
		return err
	}
	p.CompletedSessions = n
	if p.LastVisit == nil || s.Date.After(*p.LastVisit) {
		d := s.Date
		p.LastVisit = &d
	}
	p.RecomputeStatus()
	return m.patients.Update(ctx, p)
}

func (m *mockSessions) ExistsByAppointment(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	for _, s := range m.sessions {
		if s.AppointmentID != nil && *s.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSessions) CountCompletedByPatient(_ context.Context, patientID uuid.UUID) (int, error) {
	n := 0
	for _, s := range m.sessions {
		if s.PatientID == patientID && s.Kind == session.KindSession {
			n++
		}
	}
	return n, nil
}

// -- Fixtures --

// Monday 2026-03-02, 10:30 wall clock.
var testNow = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *mockApptRepo, *mockPatients, *mockSessions) {
	appts := newMockApptRepo()
	patients := newMockPatients()
	sessions := newMockSessions(patients)
	svc := NewService(appts, patients, sessions, nil, zerolog.New(os.Stderr))
	svc.now = func() time.Time { return testNow }
	return svc, appts, patients, sessions
}

func appt(patientID uuid.UUID, d time.Time, start, end, kind string, recurring bool) *Appointment {
	return &Appointment{
		PatientID: patientID,
		Date:      d,
		StartTime: start,
		EndTime:   end,
		Kind:      kind,
		Recurring: recurring,
	}
}

// -- Conflict detection --

func TestCreate_RejectsOverlappingSlot(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.Create(context.Background(), appt(p.ID, day(9), "09:30", "10:30", KindIntake, false))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(ce.Conflicts) != 1 {
		t.Errorf("expected 1 conflicting appointment, got %d", len(ce.Conflicts))
	}
}

func TestCreate_AllowsAdjacentAndOtherDates(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(context.Background(), appt(p.ID, day(9), "10:00", "11:00", KindIntake, false)); err != nil {
		t.Errorf("adjacent slot should not conflict: %v", err)
	}
	if err := svc.Create(context.Background(), appt(p.ID, day(10), "09:00", "10:00", KindIntake, false)); err != nil {
		t.Errorf("other date should not conflict: %v", err)
	}
}

func TestCreate_ConflictIsStatusInsensitive(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(0)

	blocked := appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)
	blocked.Status = StatusCancelled
	if err := appts.Create(context.Background(), blocked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindIntake, false))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict even against cancelled appointment, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	var ve *ValidationError
	cases := []*Appointment{
		appt(uuid.Nil, day(9), "09:00", "10:00", KindIntake, false),
		appt(p.ID, time.Time{}, "09:00", "10:00", KindIntake, false),
		appt(p.ID, day(9), "9:00", "10:00", KindIntake, false),
		appt(p.ID, day(9), "10:00", "09:00", KindIntake, false),
		appt(p.ID, day(9), "09:00", "09:00", KindIntake, false),
		appt(p.ID, day(9), "09:00", "10:00", "surgery", false),
	}
	for i, a := range cases {
		if err := svc.Create(context.Background(), a); !errors.As(err, &ve) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}

	if err := svc.Create(context.Background(), appt(uuid.New(), day(9), "09:00", "10:00", KindIntake, false)); !errors.As(err, &ve) {
		t.Errorf("expected validation error for unknown patient, got %v", err)
	}
}

// -- Recurrence expansion --

func TestCreate_RecurringExpandsWeekly(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(4)

	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dates := appts.byPatientDates(p.ID)
	want := []string{"2026-03-09", "2026-03-16", "2026-03-23", "2026-03-30"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d appointments, got %d (%v)", len(want), len(dates), dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrence %d: expected %s, got %s", i, want[i], dates[i])
		}
	}

	for _, a := range appts.appts {
		if a.StartTime != "09:00" || a.EndTime != "10:00" {
			t.Errorf("occurrence times changed: %s-%s", a.StartTime, a.EndTime)
		}
		if !a.Recurring || a.Kind != KindSession || a.Status != StatusPlanned {
			t.Errorf("occurrence flags wrong: recurring=%v kind=%s status=%s", a.Recurring, a.Kind, a.Status)
		}
	}
}

func TestCreate_RecurringSinglePlannedDoesNotExpand(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(1)

	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(appts.byPatientDates(p.ID)); got != 1 {
		t.Errorf("expected 1 appointment for planned=1, got %d", got)
	}
}

func TestCreate_RecurringSkipsConflictedOccurrence(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(4)
	other := patients.add(0)

	// Block the third weekly slot.
	if err := svc.Create(context.Background(), appt(other.ID, day(23), "09:30", "10:30", KindIntake, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dates := appts.byPatientDates(p.ID)
	want := []string{"2026-03-09", "2026-03-16", "2026-03-30"}
	if len(dates) != len(want) {
		t.Fatalf("expected conflicted occurrence to be skipped, got %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrence %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

// -- Reconciliation: ad-hoc insert path --

func TestCreate_AdHocTrimsSurplusRecurring(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(3)

	// Recurring series fills the plan: Mar 9, 16, 23.
	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ad-hoc session pushes the count to 4; the latest recurring one goes.
	if err := svc.Create(context.Background(), appt(p.ID, day(10), "09:00", "10:00", KindSession, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dates := appts.byPatientDates(p.ID)
	want := []string{"2026-03-09", "2026-03-10", "2026-03-16"}
	if len(dates) != len(want) {
		t.Fatalf("expected latest recurring appointment trimmed, got %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

func TestCreate_AdHocNoTrimWhenWithinPlan(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(5)
	other := patients.add(0)

	// Block the third weekly slot so the series expands one occurrence short
	// of the plan.
	if err := svc.Create(context.Background(), appt(other.ID, day(23), "09:30", "10:30", KindIntake, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(appts.byPatientDates(p.ID))
	if before != 4 {
		t.Fatalf("expected 4 appointments after conflicted expansion, got %d", before)
	}

	// The ad-hoc session only refills the plan, so nothing is trimmed.
	if err := svc.Create(context.Background(), appt(p.ID, day(10), "09:00", "10:00", KindSession, false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(appts.byPatientDates(p.ID)); got != before+1 {
		t.Errorf("expected no trim within plan, got %d appointments", got)
	}
}

// -- Completion --

func TestComplete_RecordsSessionAndRecounts(t *testing.T) {
	svc, appts, patients, sessions := newTestService()
	p := patients.add(5)

	a := appt(p.ID, day(9), "09:00", "10:00", KindSession, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, err := svc.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", done.Status)
	}
	if exists, _ := sessions.ExistsByAppointment(context.Background(), a.ID); !exists {
		t.Error("expected session ledger entry for completed appointment")
	}
	if p.CompletedSessions != 1 {
		t.Errorf("expected completed_sessions 1, got %d", p.CompletedSessions)
	}
	if p.Status != patient.StatusActive {
		t.Errorf("expected active patient, got %s", p.Status)
	}
	if p.LastVisit == nil || !p.LastVisit.Equal(day(9)) {
		t.Errorf("expected last visit 2026-03-09, got %v", p.LastVisit)
	}
	if len(appts.appts) != 1 {
		t.Errorf("expected the completed appointment to remain, got %d", len(appts.appts))
	}
}

func TestComplete_SecondCompleteDoesNotDuplicateSession(t *testing.T) {
	svc, _, patients, sessions := newTestService()
	p := patients.add(5)

	a := appt(p.ID, day(9), "09:00", "10:00", KindSession, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error on repeat complete: %v", err)
	}

	if len(sessions.sessions) != 1 {
		t.Errorf("expected a single session entry, got %d", len(sessions.sessions))
	}
	if p.CompletedSessions != 1 {
		t.Errorf("expected completed_sessions to stay 1, got %d", p.CompletedSessions)
	}
}

func TestComplete_NonSessionKindLeavesCountersAlone(t *testing.T) {
	svc, _, patients, sessions := newTestService()
	p := patients.add(5)

	a := appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions.sessions) != 0 {
		t.Errorf("expected no session entry for intake, got %d", len(sessions.sessions))
	}
	if p.CompletedSessions != 0 {
		t.Errorf("expected counter untouched, got %d", p.CompletedSessions)
	}
}

func TestComplete_TrimsExcessFutureRecurringFirst(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(2)

	// Recurring series: Mar 9 and Mar 16.
	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Ad-hoc future session inserted behind the service's back.
	adhoc := appt(p.ID, day(20), "09:00", "10:00", KindSession, false)
	if err := appts.Create(context.Background(), adhoc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var first *Appointment
	for _, a := range appts.appts {
		if a.Date.Equal(day(9)) {
			first = a
		}
	}
	if _, err := svc.Complete(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// completed=1, remaining=1; two future sessions -> the recurring one goes,
	// the ad-hoc one survives.
	dates := appts.byPatientDates(p.ID)
	want := []string{"2026-03-09", "2026-03-20"}
	if len(dates) != len(want) {
		t.Fatalf("expected recurring appointment trimmed first, got %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

func TestComplete_NoTrimWhenScheduleFits(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(3)

	// Mar 9, 16, 23.
	if err := svc.Create(context.Background(), appt(p.ID, day(9), "09:00", "10:00", KindSession, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var first *Appointment
	for _, a := range appts.appts {
		if a.Date.Equal(day(9)) {
			first = a
		}
	}
	if _, err := svc.Complete(context.Background(), first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// completed=1, remaining=2, two future sessions: nothing to trim.
	if got := len(appts.byPatientDates(p.ID)); got != 3 {
		t.Errorf("expected all 3 appointments kept, got %d", got)
	}
}

func TestUpdate_KeepsStatusWhenOmitted(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	a := appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upd := appt(p.ID, day(9), "11:00", "12:00", KindIntake, false)
	upd.ID = a.ID
	if err := svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("expected rescheduling to keep confirmed status, got %s", got.Status)
	}
	if got.StartTime != "11:00" {
		t.Errorf("expected updated start time, got %s", got.StartTime)
	}
}

// -- Postpone --

func TestPostpone_PreservesDuration(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	a := appt(p.ID, day(9), "09:00", "10:30", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved, err := svc.Postpone(context.Background(), a.ID, day(11), "14:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.EndTime != "15:30" {
		t.Errorf("expected 90-minute duration preserved, got end %s", moved.EndTime)
	}
	if moved.Status != StatusPostponed {
		t.Errorf("expected postponed status, got %s", moved.Status)
	}
	if !moved.Date.Equal(day(11)) || moved.StartTime != "14:00" {
		t.Errorf("expected new slot 2026-03-11 14:00, got %s %s", moved.Date.Format("2006-01-02"), moved.StartTime)
	}
}

func TestPostpone_ConflictChecksExcludeSelf(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	a := appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-postponing onto its own slot must not conflict with itself.
	if _, err := svc.Postpone(context.Background(), a.ID, day(9), "09:00"); err != nil {
		t.Fatalf("postpone onto own slot should succeed: %v", err)
	}

	other := appt(p.ID, day(11), "15:00", "16:00", KindIntake, false)
	if err := svc.Create(context.Background(), other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Postpone(context.Background(), a.ID, day(11), "14:30")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict with other appointment, got %v", err)
	}
}

func TestPostpone_RejectsRunPastMidnight(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	a := appt(p.ID, day(9), "09:00", "11:00", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Postpone(context.Background(), a.ID, day(11), "23:30")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for slot past midnight, got %v", err)
	}
}

// -- Cancel --

func TestCancel_Idempotent(t *testing.T) {
	svc, _, patients, _ := newTestService()
	p := patients.add(0)

	a := appt(p.ID, day(9), "09:00", "10:00", KindIntake, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("cancelling a cancelled appointment should be harmless: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled status, got %s", got.Status)
	}
}

// -- Reclassification --

func TestReclassifyToday(t *testing.T) {
	svc, appts, patients, _ := newTestService()
	p := patients.add(0)
	ctx := context.Background()

	inWindow := appt(p.ID, day(2), "10:00", "11:00", KindIntake, false)
	inWindow.Status = StatusPlanned
	notYet := appt(p.ID, day(2), "11:00", "12:00", KindIntake, false)
	notYet.Status = StatusConfirmed
	justEnded := appt(p.ID, day(2), "09:00", "10:30", KindIntake, false)
	justEnded.Status = StatusPlanned
	terminal := appt(p.ID, day(2), "10:00", "11:00", KindIntake, false)
	terminal.Status = StatusCompleted
	tomorrow := appt(p.ID, day(3), "10:00", "11:00", KindIntake, false)
	tomorrow.Status = StatusPlanned

	for _, a := range []*Appointment{inWindow, notYet, justEnded, terminal, tomorrow} {
		if err := appts.Create(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := svc.ReclassifyToday(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inWindow.Status != StatusInProgress {
		t.Errorf("expected in-window appointment promoted, got %s", inWindow.Status)
	}
	if notYet.Status != StatusConfirmed {
		t.Errorf("expected future appointment untouched, got %s", notYet.Status)
	}
	// End bound is exclusive: a 09:00-10:30 appointment is over at 10:30.
	if justEnded.Status != StatusPlanned {
		t.Errorf("expected ended appointment untouched, got %s", justEnded.Status)
	}
	if terminal.Status != StatusCompleted {
		t.Errorf("expected terminal appointment untouched, got %s", terminal.Status)
	}
	if tomorrow.Status != StatusPlanned {
		t.Errorf("expected tomorrow's appointment untouched, got %s", tomorrow.Status)
	}
}

// -- Session from appointment --

func TestRecordSession_MapsKindAndGuardsDuplicates(t *testing.T) {
	svc, _, patients, sessions := newTestService()
	p := patients.add(5)

	a := appt(p.ID, day(9), "09:00", "10:00", KindReport, false)
	if err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, err := svc.RecordSession(context.Background(), a.ID, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Kind != session.KindAssessment {
		t.Errorf("expected report mapped to assessment, got %s", sess.Kind)
	}
	if sess.AppointmentID == nil || *sess.AppointmentID != a.ID {
		t.Error("expected session bound to appointment")
	}

	_, err = svc.RecordSession(context.Background(), a.ID, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected duplicate rejected with a validation error, got %v", err)
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("expected a single session entry, got %d", len(sessions.sessions))
	}
}

func TestFindConflicts_RejectsInvalidInterval(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.FindConflicts(context.Background(), day(9), "10:00", "09:00", uuid.Nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
