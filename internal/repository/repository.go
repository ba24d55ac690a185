package repository

import (
	"context"
	"time"

	"animesanta/internal/santa"
)

// DateField selects which event boundary a date query matches on.
type DateField string

const (
	RegistrationEnd   DateField = "registration_end"
	SelectionDeadline DateField = "selection_deadline"
	ReviewDeadline    DateField = "review_deadline"
)

func (f DateField) Valid() bool {
	switch f {
	case RegistrationEnd, SelectionDeadline, ReviewDeadline:
		return true
	}
	return false
}

// Repository is the event and participant store. Writes are atomic per record.
// Find* return (nil, nil) when nothing matches.
type Repository interface {
	CreateEvent(ctx context.Context, item *santa.Event) error
	FindEvent(ctx context.Context, id string) (*santa.Event, error)
	ListEventsByCreator(ctx context.Context, creatorID int64) ([]santa.Event, error)
	ListEventsOnDate(ctx context.Context, field DateField, day time.Time) ([]santa.Event, error)
	// SetPairing writes pairing only if the event has none yet. It reports
	// whether the write happened.
	SetPairing(ctx context.Context, eventID string, pairing map[int64]int64) (bool, error)
	// DeleteEvent removes the event together with its participants.
	DeleteEvent(ctx context.Context, id string) error

	// CreateParticipant fails with santa.ErrAlreadyRegistered when the user
	// already has a record for the event.
	CreateParticipant(ctx context.Context, item *santa.Participant) error
	FindParticipant(ctx context.Context, eventID string, userID int64) (*santa.Participant, error)
	// ListParticipants returns an unordered set. No statuses means all.
	ListParticipants(ctx context.Context, eventID string, statuses ...santa.Status) ([]santa.Participant, error)
	CountParticipantsByStatus(ctx context.Context, eventID string) (map[santa.Status]int64, error)
	// UpdateParticipantStatus moves a participant forward. It fails with
	// santa.ErrInvalidTransition when the current status does not allow it.
	UpdateParticipantStatus(ctx context.Context, eventID string, userID int64, to santa.Status) error
	// SetChoice sets the choice once, while the participant is approved.
	SetChoice(ctx context.Context, eventID string, userID int64, choice santa.Choice) error

	// ClaimRunDay records that sweeps for day started. It reports false when
	// a run for the day already completed; an interrupted run can be claimed again.
	ClaimRunDay(ctx context.Context, day time.Time) (bool, error)
	// RecordRunStats stores the stats and marks the day completed.
	RecordRunStats(ctx context.Context, day time.Time, stats map[string]int) error
}
