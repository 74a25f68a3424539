package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Appointment kinds.
const (
	KindSession = "session"
	KindIntake  = "intake"
	KindReport  = "report"
)

// Appointment statuses. Completed and cancelled are terminal.
const (
	StatusPlanned    = "planned"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusPostponed  = "postponed"
)

// Appointment maps to the appointment table. Times are zero-padded "HH:MM"
// wall-clock strings on a calendar date; the half-open interval
// [StartTime, EndTime) is what the conflict detector compares.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      time.Time `db:"appointment_date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Kind      string    `db:"kind" json:"kind"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	Recurring bool      `db:"recurring" json:"recurring"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the appointment can no longer change state.
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}

func ValidKind(kind string) bool {
	return kind == KindSession || kind == KindIntake || kind == KindReport
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPlanned, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusPostponed:
		return true
	}
	return false
}

// ValidClock reports whether s is a zero-padded "HH:MM" wall-clock string.
// Zero-padding makes lexicographic comparison equal to chronological order.
func ValidClock(s string) bool {
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

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Adjacent slots (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && s2 < e1
}

// clockMinutes converts a validated "HH:MM" string to minutes since midnight.
func clockMinutes(s string) int {
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m
}

// minutesClock formats minutes since midnight back to "HH:MM".
func minutesClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// dateOnly truncates t to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
