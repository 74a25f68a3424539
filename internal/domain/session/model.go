package session

import (
	"time"

	"github.com/google/uuid"
)

// Session kinds. Only a treatment session advances the patient's
// completed-sessions counter; intake and assessment entries are
// recorded but never counted.
const (
	KindSession    = "session"
	KindIntake     = "intake"
	KindAssessment = "assessment"
)

// Session maps to the session table. A session may originate from a completed
// appointment, in which case AppointmentID links back to it; at most one
// session exists per appointment.
type Session struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Date          time.Time  `db:"session_date" json:"date"`
	StartTime     string     `db:"start_time" json:"start_time"`
	EndTime       string     `db:"end_time" json:"end_time"`
	Kind          string     `db:"kind" json:"kind"`
	Observations  *string    `db:"observations" json:"observations,omitempty"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Counts reports whether this session advances the completed-sessions counter.
func (s *Session) Counts() bool {
	return s.Kind == KindSession
}

func ValidKind(kind string) bool {
	return kind == KindSession || kind == KindIntake || kind == KindAssessment
}
