package gormrepository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"animesanta/internal/config"
	"animesanta/internal/db"
	"animesanta/internal/models"
	"animesanta/internal/santa"
)

// openStore connects to the database named by SANTA_TEST_DSN. The guards in
// this package live in SQL, so these tests need a real postgres.
func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SANTA_TEST_DSN")
	if dsn == "" {
		t.Skip("SANTA_TEST_DSN not set")
	}
	conn, err := db.Open(config.DBConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn.Gorm)
}

func seedEvent(t *testing.T, s *Store) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	err := s.CreateEvent(ctx, &santa.Event{
		ID:                id,
		CreatorID:         1,
		Name:              "Test",
		RegistrationEnd:   santa.Date(2026, time.January, 10),
		SelectionDeadline: santa.Date(2026, time.January, 15),
		ReviewDeadline:    santa.Date(2026, time.January, 30),
		Rules:             santa.MessageRef{ChatID: 1, MessageID: 1},
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteEvent(context.Background(), id) })
	return id
}

func join(t *testing.T, s *Store, eventID string, uid int64, status santa.Status) {
	t.Helper()
	err := s.CreateParticipant(context.Background(), &santa.Participant{
		EventID: eventID,
		UserID:  uid,
		Status:  status,
		Info:    santa.MessageRef{ChatID: uid, MessageID: 1},
	})
	if err != nil {
		t.Fatalf("create participant: %v", err)
	}
}

func TestStore_SetPairingOnlyWhenUnpaired(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := seedEvent(t, s)

	if ok, err := s.SetPairing(ctx, id, map[int64]int64{1: 2, 2: 1}); err != nil || !ok {
		t.Fatalf("first write ok=%v err=%v", ok, err)
	}
	if ok, err := s.SetPairing(ctx, id, map[int64]int64{1: 3, 3: 1}); err != nil || ok {
		t.Fatalf("second write ok=%v err=%v", ok, err)
	}
	e, err := s.FindEvent(ctx, id)
	if err != nil || e.Pairing[1] != 2 {
		t.Fatalf("pairing=%v err=%v", e.Pairing, err)
	}
	if _, err := s.SetPairing(ctx, uuid.NewString(), map[int64]int64{1: 2}); !errors.Is(err, santa.ErrEventNotFound) {
		t.Fatalf("missing event err=%v", err)
	}
}

func TestStore_SetChoiceOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := seedEvent(t, s)
	join(t, s, id, 2, santa.StatusApproved)
	join(t, s, id, 3, santa.StatusWaiting)

	if err := s.SetChoice(ctx, id, 2, santa.Choice{TitleID: "1"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := s.SetChoice(ctx, id, 2, santa.Choice{TitleID: "2"}); !errors.Is(err, santa.ErrChoiceAlreadySet) {
		t.Fatalf("err=%v want ErrChoiceAlreadySet", err)
	}
	if p, _ := s.FindParticipant(ctx, id, 2); p.Choice == nil || p.Choice.TitleID != "1" {
		t.Fatalf("choice=%v", p.Choice)
	}
	if err := s.SetChoice(ctx, id, 3, santa.Choice{TitleID: "1"}); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("waiting participant err=%v", err)
	}
	if err := s.SetChoice(ctx, id, 99, santa.Choice{TitleID: "1"}); !errors.Is(err, santa.ErrParticipantNotFound) {
		t.Fatalf("missing participant err=%v", err)
	}
}

func TestStore_UpdateParticipantStatusForwardOnly(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := seedEvent(t, s)
	join(t, s, id, 2, santa.StatusWaiting)

	if err := s.UpdateParticipantStatus(ctx, id, 2, santa.StatusWatching); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("waiting->watching err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, id, 2, santa.StatusApproved); err != nil {
		t.Fatalf("approve err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, id, 2, santa.StatusRejected); !errors.Is(err, santa.ErrInvalidTransition) {
		t.Fatalf("approved->rejected err=%v", err)
	}
	if err := s.UpdateParticipantStatus(ctx, id, 99, santa.StatusApproved); !errors.Is(err, santa.ErrParticipantNotFound) {
		t.Fatalf("missing err=%v", err)
	}
}

func TestStore_ClaimRunDay(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	day := santa.Date(2300+int(time.Now().UnixNano()%500), time.March, 1)
	t.Cleanup(func() { s.db.Where("day = ?", day).Delete(&models.SchedulerRun{}) })

	if ok, err := s.ClaimRunDay(ctx, day); err != nil || !ok {
		t.Fatalf("first claim ok=%v err=%v", ok, err)
	}
	if ok, err := s.ClaimRunDay(ctx, day); err != nil || !ok {
		t.Fatalf("unfinished day ok=%v err=%v", ok, err)
	}
	if err := s.RecordRunStats(ctx, day, map[string]int{"paired": 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ok, err := s.ClaimRunDay(ctx, day); err != nil || ok {
		t.Fatalf("completed day ok=%v err=%v", ok, err)
	}
}
