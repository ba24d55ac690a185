// Package scheduler runs the daily sweeps that move events between phases.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"animesanta/internal/notify"
	"animesanta/internal/ops"
	"animesanta/internal/pairing"
	"animesanta/internal/repository"
	"animesanta/internal/santa"
	"animesanta/internal/texts"
)

// Stat keys recorded for each run.
const (
	StatPaired    = "paired"
	StatCancelled = "cancelled"
	StatReminded  = "reminded"
	StatDelivered = "delivered"
	StatFinished  = "finished"
	StatAnomalies = "anomalies"
	StatFailed    = "failed"
)

type Scheduler struct {
	Repo     repository.Repository
	Notifier *notify.Notifier
	Reporter *ops.Reporter
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
	// Rand drives pairing. Nil uses the global source.
	Rand pairing.Shuffler

	mu sync.Mutex
}

type Result struct {
	Day     time.Time      `json:"day"`
	Skipped bool           `json:"skipped"`
	Stats   map[string]int `json:"stats"`
}

// Today is the current calendar day in the scheduler's zone.
func (s *Scheduler) Today() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return santa.Today(now, s.Location)
}

// Run is the cron entry point: it sweeps today unless today already ran.
func (s *Scheduler) Run(ctx context.Context) {
	res, err := s.RunDay(ctx, s.Today(), false)
	if err != nil {
		s.log().Error("scheduler run failed", zap.Error(err))
		return
	}
	if res.Skipped {
		s.log().Info("scheduler day already claimed", zap.Time("day", res.Day))
	}
}

// RunDay performs the four sweeps for day. A day that was already claimed
// is skipped unless force is set; per-event guards keep a forced re-run from
// repeating pairing or deliveries.
func (s *Scheduler) RunDay(ctx context.Context, day time.Time, force bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{Day: day, Stats: map[string]int{}}
	claimed, err := s.Repo.ClaimRunDay(ctx, day)
	if err != nil {
		return res, fmt.Errorf("claim %s: %w", day.Format(time.DateOnly), err)
	}
	if !claimed && !force {
		res.Skipped = true
		return res, nil
	}

	start := time.Now()
	stats := res.Stats
	sweeps := []struct {
		name  string
		field repository.DateField
		day   time.Time
		fn    sweepFunc
	}{
		{"registration_close", repository.RegistrationEnd, day, s.closeRegistration},
		{"selection_reminder", repository.SelectionDeadline, day.AddDate(0, 0, -1), s.remind},
		{"selection_close", repository.SelectionDeadline, day, s.closeSelection},
		{"deadline", repository.ReviewDeadline, day, s.finish},
	}
	for _, sw := range sweeps {
		if err := s.sweep(ctx, sw.name, sw.field, sw.day, stats, sw.fn); err != nil {
			// The day stays unfinished so the next trigger runs it again.
			stats[StatFailed]++
			s.Reporter.Failure(context.WithoutCancel(ctx), "scheduler_aborted", err, map[string]any{
				"day":   day.Format(time.DateOnly),
				"sweep": sw.name,
			})
			return res, fmt.Errorf("sweep %s: %w", sw.name, err)
		}
	}

	if err := s.Repo.RecordRunStats(ctx, day, stats); err != nil {
		s.log().Warn("record run stats failed", zap.Error(err))
	}
	s.log().Info("scheduler run finished",
		zap.Time("day", day),
		zap.Bool("forced", force && !claimed),
		zap.Any("stats", stats),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

type sweepFunc func(ctx context.Context, e *santa.Event, stats map[string]int) error

// sweep applies fn to every event whose field equals day. A failing event is
// reported and the sweep moves on; only cancellation stops it.
func (s *Scheduler) sweep(ctx context.Context, name string, field repository.DateField, day time.Time, stats map[string]int, fn sweepFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events, err := s.Repo.ListEventsOnDate(ctx, field, day)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats[StatFailed]++
		s.Reporter.Failure(ctx, name, err, map[string]any{"day": day.Format(time.DateOnly)})
		return nil
	}
	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := isolate(ctx, &events[i], stats, fn); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats[StatFailed]++
			s.Reporter.Failure(ctx, name, err, map[string]any{"event_id": events[i].ID})
		}
	}
	return nil
}

func isolate(ctx context.Context, e *santa.Event, stats map[string]int, fn sweepFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, e, stats)
}

func (s *Scheduler) closeRegistration(ctx context.Context, e *santa.Event, stats map[string]int) error {
	if e.Paired() {
		return nil
	}
	approved, err := s.Repo.ListParticipants(ctx, e.ID, santa.StatusApproved)
	if err != nil {
		return err
	}
	if len(approved) < 2 {
		if err := s.Repo.DeleteEvent(ctx, e.ID); err != nil {
			return fmt.Errorf("delete under-filled event: %w", err)
		}
		stats[StatCancelled]++
		s.log().Info("event cancelled", zap.String("event_id", e.ID), zap.Int("approved", len(approved)))
		s.Notifier.Text(ctx, e.CreatorID, texts.TooFewParticipants(e.Name))
		return nil
	}

	ids := make([]int64, 0, len(approved))
	byID := make(map[int64]santa.Participant, len(approved))
	for _, p := range approved {
		ids = append(ids, p.UserID)
		byID[p.UserID] = p
	}
	pairs, err := pairing.Build(ids, s.Rand)
	if err != nil {
		return err
	}
	written, err := s.Repo.SetPairing(ctx, e.ID, pairs)
	if err != nil {
		return err
	}
	if !written {
		return nil
	}
	stats[StatPaired]++
	s.log().Info("event paired", zap.String("event_id", e.ID), zap.Int("participants", len(pairs)))

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	deadline := santa.FormatDate(e.SelectionDeadline, s.Notifier.DateLayout)
	for _, giver := range ids {
		recipient := byID[pairs[giver]]
		s.Notifier.Text(ctx, giver, texts.Assignment(e.Name, notify.Name(&recipient), e.ID, deadline))
		s.Notifier.Forward(ctx, recipient.Info, giver)
	}
	return nil
}

func (s *Scheduler) remind(ctx context.Context, e *santa.Event, stats map[string]int) error {
	approved, err := s.Repo.ListParticipants(ctx, e.ID, santa.StatusApproved)
	if err != nil {
		return err
	}
	for _, p := range approved {
		if p.HasChoice() || !p.Options.Enabled(santa.OptionNotifyReminders, true) {
			continue
		}
		if s.Notifier.Text(ctx, p.UserID, texts.SelectionReminder(e.Name, e.ID)) {
			stats[StatReminded]++
		}
	}
	return nil
}

func (s *Scheduler) closeSelection(ctx context.Context, e *santa.Event, stats map[string]int) error {
	if !e.Paired() {
		stats[StatAnomalies]++
		s.Reporter.Anomaly(ctx, "selection_close", errors.New("event reached selection deadline without pairing"),
			map[string]any{"event_id": e.ID})
		return nil
	}
	all, err := s.Repo.ListParticipants(ctx, e.ID)
	if err != nil {
		return err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	for _, giver := range all {
		if !giver.HasChoice() {
			continue
		}
		moved, err := s.Notifier.DeliverChoice(ctx, s.Repo, e, giver)
		switch {
		case errors.Is(err, notify.ErrUnresolvedPairing):
			stats[StatAnomalies]++
			s.Reporter.Anomaly(ctx, "selection_close", err, map[string]any{"event_id": e.ID, "giver": giver.UserID})
		case err != nil:
			stats[StatFailed]++
			s.Reporter.Failure(ctx, "selection_close", err, map[string]any{"event_id": e.ID, "giver": giver.UserID})
		case moved:
			stats[StatDelivered]++
		}
	}
	return nil
}

func (s *Scheduler) finish(ctx context.Context, e *santa.Event, stats map[string]int) error {
	watching, err := s.Repo.ListParticipants(ctx, e.ID, santa.StatusWatching)
	if err != nil {
		return err
	}
	stats[StatFinished]++
	s.Notifier.Text(ctx, e.Destination(), texts.DeadlineReport(e.Name, len(watching)))
	return nil
}

func (s *Scheduler) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
