package santa

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusRejected, StatusWatching, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a participant may move from one status to the
// next. Statuses only move forward; rejection applies to waiting requests only,
// so an approval is final.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusWaiting:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusWatching
	case StatusWatching:
		return to == StatusCompleted
	}
	return false
}

// Choice is the title a participant picked for their recipient.
type Choice struct {
	TitleID string `json:"title_id"`
	Name    string `json:"name"`
	Link    string `json:"link"`
}

// Participant is one user's membership in one event.
type Participant struct {
	EventID     string
	UserID      int64
	DisplayName string
	Status      Status
	Info        MessageRef
	Choice      *Choice
	Options     Options
	CreatedAt   time.Time
}

func (p *Participant) HasChoice() bool {
	return p.Choice != nil && p.Choice.TitleID != ""
}

// Validate runs the construction-time checks for a new participant record.
func (p *Participant) Validate() error {
	if p.EventID == "" {
		return fmt.Errorf("%w: event id", ErrInvalidEvent)
	}
	if p.UserID == 0 {
		return fmt.Errorf("%w: user id", ErrInvalidEvent)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidEvent, p.Status)
	}
	if p.Info.IsZero() {
		return fmt.Errorf("%w: info", ErrInvalidEvent)
	}
	return nil
}
