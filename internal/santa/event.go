package santa

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxNameLength = 64

// MessageRef points at a message that lives in the chat transport.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Event is one gift-exchange round.
type Event struct {
	ID        string
	CreatorID int64
	Name      string

	RegistrationEnd   time.Time
	SelectionDeadline time.Time
	ReviewDeadline    time.Time

	Rules        MessageRef
	Restrictions []Restriction
	Chat         *int64
	Options      Options

	// Pairing maps a giver to the participant they give to. Empty until the
	// registration-close sweep computes it.
	Pairing map[int64]int64

	CreatedAt time.Time
}

// Destination is where reviews and announcements go.
func (e *Event) Destination() int64 {
	if e.Chat != nil && *e.Chat != 0 {
		return *e.Chat
	}
	return e.CreatorID
}

func (e *Event) Paired() bool {
	return len(e.Pairing) > 0
}

// RecipientOf returns who giver must give to.
func (e *Event) RecipientOf(giver int64) (int64, bool) {
	if e.Pairing == nil {
		return 0, false
	}
	to, ok := e.Pairing[giver]
	return to, ok
}

type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseSelection    Phase = "selection"
	PhaseWatching     Phase = "watching"
	PhaseFinished     Phase = "finished"
)

// Phase reports which stage the event is in on the given calendar day.
func (e *Event) Phase(today time.Time) Phase {
	switch {
	case today.Before(e.RegistrationEnd):
		return PhaseRegistration
	case today.Before(e.SelectionDeadline):
		return PhaseSelection
	case !today.After(e.ReviewDeadline):
		return PhaseWatching
	default:
		return PhaseFinished
	}
}

// Terminal events are read-only.
func (e *Event) Terminal(today time.Time) bool {
	return e.Phase(today) == PhaseFinished
}

// Validate runs the construction-time checks for a new event. created is the
// calendar day the creation flow started on.
func (e *Event) Validate(created time.Time, gaps GapRule) error {
	name := strings.TrimSpace(e.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name", ErrInvalidEvent)
	}
	if e.CreatorID == 0 {
		return fmt.Errorf("%w: creator", ErrInvalidEvent)
	}
	if e.Rules.IsZero() {
		return fmt.Errorf("%w: rules", ErrInvalidEvent)
	}
	prev := created
	for _, d := range []time.Time{e.RegistrationEnd, e.SelectionDeadline, e.ReviewDeadline} {
		if err := gaps.Check(prev, d); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		prev = d
	}
	for _, r := range e.Restrictions {
		if !r.Kind.Valid() || !r.Operator.Valid() {
			return fmt.Errorf("%w: restriction %s", ErrInvalidEvent, r)
		}
	}
	return nil
}
