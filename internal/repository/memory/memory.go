// Package memory is an in-process Repository used when no database is
// configured and by tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"animesanta/internal/repository"
	"animesanta/internal/santa"
)

type participantKey struct {
	eventID string
	userID  int64
}

type Store struct {
	mu           sync.RWMutex
	events       map[string]santa.Event
	participants map[participantKey]santa.Participant
	runs         map[time.Time]*run
	now          func() time.Time
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		events:       map[string]santa.Event{},
		participants: map[participantKey]santa.Participant{},
		runs:         map[time.Time]*run{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateEvent(ctx context.Context, item *santa.Event) error {
	if item == nil {
		return nil
	}
	if item.ID == "" {
		return errors.New("event id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[item.ID]; ok {
		return fmt.Errorf("event %s already exists", item.ID)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.events[item.ID] = cloneEvent(*item)
	return nil
}

func (s *Store) FindEvent(ctx context.Context, id string) (*santa.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	out := cloneEvent(e)
	return &out, nil
}

func (s *Store) ListEventsByCreator(ctx context.Context, creatorID int64) ([]santa.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []santa.Event
	for _, e := range s.events {
		if e.CreatorID == creatorID {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (s *Store) ListEventsOnDate(ctx context.Context, field repository.DateField, day time.Time) ([]santa.Event, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unknown date field %q", field)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []santa.Event
	for _, e := range s.events {
		var d time.Time
		switch field {
		case repository.RegistrationEnd:
			d = e.RegistrationEnd
		case repository.SelectionDeadline:
			d = e.SelectionDeadline
		case repository.ReviewDeadline:
			d = e.ReviewDeadline
		}
		if d.Equal(day) {
			out = append(out, cloneEvent(e))
		}
	}
	return out, nil
}

func (s *Store) SetPairing(ctx context.Context, eventID string, pairing map[int64]int64) (bool, error) {
	if len(pairing) == 0 {
		return false, errors.New("empty pairing")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return false, santa.ErrEventNotFound
	}
	if e.Paired() {
		return false, nil
	}
	e.Pairing = maps.Clone(pairing)
	s.events[eventID] = e
	return true, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, id)
	for k := range s.participants {
		if k.eventID == id {
			delete(s.participants, k)
		}
	}
	return nil
}

func (s *Store) CreateParticipant(ctx context.Context, item *santa.Participant) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[item.EventID]; !ok {
		return santa.ErrEventNotFound
	}
	key := participantKey{item.EventID, item.UserID}
	if _, ok := s.participants[key]; ok {
		return santa.ErrAlreadyRegistered
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.participants[key] = cloneParticipant(*item)
	return nil
}

func (s *Store) FindParticipant(ctx context.Context, eventID string, userID int64) (*santa.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{eventID, userID}]
	if !ok {
		return nil, nil
	}
	out := cloneParticipant(p)
	return &out, nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID string, statuses ...santa.Status) ([]santa.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []santa.Participant
	for k, p := range s.participants {
		if k.eventID != eventID {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, p.Status) {
			continue
		}
		out = append(out, cloneParticipant(p))
	}
	return out, nil
}

func (s *Store) CountParticipantsByStatus(ctx context.Context, eventID string) (map[santa.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[santa.Status]int64{}
	for k, p := range s.participants {
		if k.eventID == eventID {
			out[p.Status]++
		}
	}
	return out, nil
}

func (s *Store) UpdateParticipantStatus(ctx context.Context, eventID string, userID int64, to santa.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{eventID, userID}
	p, ok := s.participants[key]
	if !ok {
		return santa.ErrParticipantNotFound
	}
	if !santa.CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", santa.ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	s.participants[key] = p
	return nil
}

func (s *Store) SetChoice(ctx context.Context, eventID string, userID int64, choice santa.Choice) error {
	if choice.TitleID == "" {
		return errors.New("empty choice")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{eventID, userID}
	p, ok := s.participants[key]
	if !ok {
		return santa.ErrParticipantNotFound
	}
	if p.HasChoice() {
		return santa.ErrChoiceAlreadySet
	}
	if p.Status != santa.StatusApproved {
		return fmt.Errorf("%w: choice needs status %s, have %s", santa.ErrInvalidTransition, santa.StatusApproved, p.Status)
	}
	c := choice
	p.Choice = &c
	s.participants[key] = p
	return nil
}

func (s *Store) ClaimRunDay(ctx context.Context, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[day]; ok && r.completed {
		return false, nil
	}
	s.runs[day] = &run{}
	return true, nil
}

func (s *Store) RecordRunStats(ctx context.Context, day time.Time, stats map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[day] = &run{stats: maps.Clone(stats), completed: true}
	return nil
}

type run struct {
	stats     map[string]int
	completed bool
}

func hasStatus(list []santa.Status, st santa.Status) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

func cloneEvent(e santa.Event) santa.Event {
	e.Restrictions = append([]santa.Restriction(nil), e.Restrictions...)
	e.Options = e.Options.Clone()
	e.Pairing = maps.Clone(e.Pairing)
	if e.Chat != nil {
		c := *e.Chat
		e.Chat = &c
	}
	return e
}

func cloneParticipant(p santa.Participant) santa.Participant {
	p.Options = p.Options.Clone()
	if p.Choice != nil {
		c := *p.Choice
		p.Choice = &c
	}
	return p
}
