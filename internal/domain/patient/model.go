package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient statuses derived from the session counters.
const (
	StatusNew      = "new"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Patient maps to the patient table.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FirstName         string     `db:"first_name" json:"first_name"`
	LastName          string     `db:"last_name" json:"last_name"`
	Sex               *string    `db:"sex" json:"sex,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Pathology         *string    `db:"pathology" json:"pathology,omitempty"`
	BirthDate         *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	PlannedSessions   int        `db:"planned_sessions" json:"planned_sessions"`
	CompletedSessions int        `db:"completed_sessions" json:"completed_sessions"`
	Status            string     `db:"status" json:"status"`
	LastVisit         *time.Time `db:"last_visit" json:"last_visit,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// RecomputeStatus derives the patient status from the session counters.
// A patient who has completed the planned number of sessions is inactive,
// one with any completed session is active, and anyone else is new.
func (p *Patient) RecomputeStatus() {
	switch {
	case p.PlannedSessions > 0 && p.CompletedSessions >= p.PlannedSessions:
		p.Status = StatusInactive
	case p.CompletedSessions > 0:
		p.Status = StatusActive
	default:
		p.Status = StatusNew
	}
}
