// Package session keeps per-user conversation state between messages.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"animesanta/internal/cache"
	"animesanta/internal/santa"
)

type State string

const (
	StateStart State = "start"

	StateChooseName         State = "choose-name"
	StateChooseStartDate    State = "choose-start-date"
	StateChooseSelectDate   State = "choose-select-date"
	StateChooseDeadlineDate State = "choose-deadline-date"
	StateChooseChat         State = "choose-chat"
	StateWriteRules         State = "write-rules"
	StateWriteRestrictions  State = "write-restrictions"
	StateConfirmOptions     State = "confirm-options"

	StateSubmitInfo  State = "submit-info"
	StateSelectTitle State = "select-title"
	StateWriteReview State = "write-review"
)

// Flow tells confirm-options which record it is about to persist.
type Flow string

const (
	FlowNone   Flow = ""
	FlowCreate Flow = "create"
	FlowJoin   Flow = "join"
)

// Session is the state and draft of one user's conversation. Nothing in it
// is persisted outside the cache until a flow finishes.
type Session struct {
	UserID int64 `json:"user_id"`
	State  State `json:"state"`
	Flow   Flow  `json:"flow,omitempty"`

	// EventID is the event being joined, chosen for or reviewed.
	EventID string `json:"event_id,omitempty"`

	CreatedOn         time.Time           `json:"created_on,omitzero"`
	Name              string              `json:"name,omitempty"`
	RegistrationEnd   time.Time           `json:"registration_end,omitzero"`
	SelectionDeadline time.Time           `json:"selection_deadline,omitzero"`
	ReviewDeadline    time.Time           `json:"review_deadline,omitzero"`
	Chat              *int64              `json:"chat,omitempty"`
	Rules             santa.MessageRef    `json:"rules,omitzero"`
	Restrictions      []santa.Restriction `json:"restrictions,omitempty"`

	Info    santa.MessageRef `json:"info,omitzero"`
	Options santa.Options    `json:"options,omitempty"`
}

func New(userID int64) *Session {
	return &Session{UserID: userID, State: StateStart}
}

// Reset discards the draft and returns to start.
func (s *Session) Reset() {
	*s = Session{UserID: s.UserID, State: StateStart}
}

// BeginCreate starts the event creation flow on the given calendar day.
func (s *Session) BeginCreate(today time.Time) {
	s.Reset()
	s.Flow = FlowCreate
	s.State = StateChooseName
	s.CreatedOn = today
	s.Options = santa.Options{}
}

// BeginJoin starts the participation flow for eventID.
func (s *Session) BeginJoin(eventID string) {
	s.Reset()
	s.Flow = FlowJoin
	s.State = StateSubmitInfo
	s.EventID = eventID
	s.Options = santa.Options{}
}

// Focus moves to a single-step state bound to eventID.
func (s *Session) Focus(state State, eventID string) {
	s.Reset()
	s.State = state
	s.EventID = eventID
}

func (s *Session) Idle() bool {
	return s.State == StateStart || s.State == ""
}

// Store persists sessions in a cache under session:<user>.
type Store struct {
	Cache cache.Store
	TTL   time.Duration
}

func key(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

// Load returns the user's session, or a fresh one when none is stored.
func (s *Store) Load(ctx context.Context, userID int64) (*Session, error) {
	var out Session
	found, err := cache.GetJSON(ctx, s.Cache, key(userID), &out)
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", userID, err)
	}
	if !found {
		return New(userID), nil
	}
	out.UserID = userID
	if out.State == "" {
		out.State = StateStart
	}
	return &out, nil
}

// Save stores sess. An idle session is removed instead.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess.Idle() {
		return s.Clear(ctx, sess.UserID)
	}
	if err := cache.SetJSON(ctx, s.Cache, key(sess.UserID), sess, s.TTL); err != nil {
		return fmt.Errorf("save session %d: %w", sess.UserID, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.Cache.Delete(ctx, key(userID))
}
