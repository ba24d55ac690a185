package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"animesanta/internal/repository"
	"animesanta/internal/santa"
)

func seed(t *testing.T) (*Store, *santa.Event) {
	t.Helper()
	s := New()
	e := &santa.Event{
		ID:                "e1",
		CreatorID:         1,
		Name:              "Test",
		RegistrationEnd:   santa.Date(2026, time.January, 10),
		SelectionDeadline: santa.Date(2026, time.January, 15),
		ReviewDeadline:    santa.Date(2026, time.January, 30),
		Rules:             santa.MessageRef{ChatID: 1, MessageID: 1},
	}
	if err := s.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return s, e
}

func addParticipant(t *testing.T, s *Store, userID int64, status santa.Status) {
	t.Helper()
	err := s.CreateParticipant(context.Background(), &santa.Participant{
		EventID: "e1",
		UserID:  userID,
		Status:  status,
		Info:    santa.MessageRef{ChatID: userID, MessageID: 2},
	})
	if err != nil {
		t.Fatalf("create participant %d: %v", userID, err)
	}
}

func TestCreateParticipant_Unique(t *testing.T) {
	s, _ := seed(t)
	addParticipant(t, s, 2, santa.StatusWaiting)
	err := s.CreateParticipant(context.Background(), &santa.Participant{EventID: "e1", UserID: 2, Status: santa.StatusWaiting})
	if !errors.Is(err, santa.ErrAlreadyRegistered) {
		t.Fatalf("err=%v want ErrAlreadyRegistered", err)
	}
}

func TestUpdateParticipantStatus_ForwardOnly(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()
	addParticipant(t, s, 2, santa.StatusWaiting)
	if err := s.UpdateParticipantStatus(ctx, "e1", 2, santa.StatusWatching); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("waiting->watching err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, "e1", 2, santa.StatusApproved); err != nil {
		t.Fatalf("approve err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, "e1", 2, santa.StatusRejected); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("approved->rejected err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, "e1", 99, santa.StatusApproved); !errors.Is(err, santa.ErrParticipantNotFound) {
		t.Fatalf("missing err=%v", err)
	}
}

func TestSetChoice_Once(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()
	addParticipant(t, s, 2, santa.StatusApproved)
	if err := s.SetChoice(ctx, "e1", 2, santa.Choice{TitleID: "1"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := s.SetChoice(ctx, "e1", 2, santa.Choice{TitleID: "2"}); !errors.Is(err, santa.ErrChoiceAlreadySet) {
		t.Fatalf("err=%v want ErrChoiceAlreadySet", err)
	}
	p, _ := s.FindParticipant(ctx, "e1", 2)
	if p.Choice.TitleID != "1" {
		t.Fatalf("choice overwritten: %v", p.Choice)
	}
	addParticipant(t, s, 3, santa.StatusWaiting)
	if err := s.SetChoice(ctx, "e1", 3, santa.Choice{TitleID: "1"}); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("waiting participant err=%v", err)
	}
}

func TestSetPairing_OnlyOnce(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()
	ok, err := s.SetPairing(ctx, "e1", map[int64]int64{1: 2, 2: 1})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = s.SetPairing(ctx, "e1", map[int64]int64{1: 3, 3: 1})
	if err != nil || ok {
		t.Fatalf("second write ok=%v err=%v", ok, err)
	}
	e, _ := s.FindEvent(ctx, "e1")
	if e.Pairing[1] != 2 {
		t.Fatalf("pairing overwritten: %v", e.Pairing)
	}
	if _, err := s.SetPairing(ctx, "nope", map[int64]int64{1: 2}); !errors.Is(err, santa.ErrEventNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestDeleteEvent_Cascades(t *testing.T) {
	s, _ := seed(t)
	ctx := context.Background()
	addParticipant(t, s, 2, santa.StatusWaiting)
	if err := s.DeleteEvent(ctx, "e1"); err != nil {
		t.Fatalf("err=%v", err)
	}
	if p, _ := s.FindParticipant(ctx, "e1", 2); p != nil {
		t.Fatalf("participant survived delete")
	}
	if e, _ := s.FindEvent(ctx, "e1"); e != nil {
		t.Fatalf("event survived delete")
	}
}

func TestListEventsOnDateAndParticipants(t *testing.T) {
	s, e := seed(t)
	ctx := context.Background()
	got, err := s.ListEventsOnDate(ctx, repository.SelectionDeadline, e.SelectionDeadline)
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if got, _ := s.ListEventsOnDate(ctx, repository.SelectionDeadline, e.RegistrationEnd); len(got) != 0 {
		t.Fatalf("unexpected match %v", got)
	}
	addParticipant(t, s, 2, santa.StatusApproved)
	addParticipant(t, s, 3, santa.StatusWaiting)
	approved, _ := s.ListParticipants(ctx, "e1", santa.StatusApproved)
	if len(approved) != 1 || approved[0].UserID != 2 {
		t.Fatalf("approved=%v", approved)
	}
	all, _ := s.ListParticipants(ctx, "e1")
	if len(all) != 2 {
		t.Fatalf("all=%v", all)
	}
	counts, _ := s.CountParticipantsByStatus(ctx, "e1")
	if counts[santa.StatusApproved] != 1 || counts[santa.StatusWaiting] != 1 {
		t.Fatalf("counts=%v", counts)
	}
}

func TestClaimRunDay(t *testing.T) {
	s := New()
	day := santa.Date(2026, time.February, 1)
	if ok, _ := s.ClaimRunDay(context.Background(), day); !ok {
		t.Fatalf("first claim failed")
	}
	if ok, _ := s.ClaimRunDay(context.Background(), day); !ok {
		t.Fatalf("unfinished day could not be claimed again")
	}
	if err := s.RecordRunStats(context.Background(), day, map[string]int{"paired": 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ok, _ := s.ClaimRunDay(context.Background(), day); ok {
		t.Fatalf("completed day claimed again")
	}
}
