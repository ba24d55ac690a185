package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"animesanta/internal/notify"
	"animesanta/internal/ops"
	"animesanta/internal/pairing"
	"animesanta/internal/repository/memory"
	"animesanta/internal/santa"
	"animesanta/internal/transport/transporttest"
)

const operatorChat = 900

var (
	regEnd    = santa.Date(2026, time.March, 5)
	selection = santa.Date(2026, time.March, 10)
	review    = santa.Date(2026, time.March, 25)
)

type fixture struct {
	t    *testing.T
	repo *memory.Store
	fake *transporttest.Fake
	s    *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, repo: memory.New(), fake: &transporttest.Fake{}}
	n := &notify.Notifier{Transport: f.fake, DateLayout: santa.DefaultDateLayout}
	f.s = &Scheduler{
		Repo:     f.repo,
		Notifier: n,
		Reporter: &ops.Reporter{Notifier: n, OperatorChatID: operatorChat},
		Location: time.UTC,
		Rand:     rand.New(rand.NewSource(7)),
	}
	return f
}

func (f *fixture) event(id string, opts santa.Options) {
	f.t.Helper()
	err := f.repo.CreateEvent(context.Background(), &santa.Event{
		ID:                id,
		CreatorID:         1,
		Name:              "Event " + id,
		RegistrationEnd:   regEnd,
		SelectionDeadline: selection,
		ReviewDeadline:    review,
		Rules:             santa.MessageRef{ChatID: 1, MessageID: 1},
		Options:           opts,
	})
	if err != nil {
		f.t.Fatalf("create event: %v", err)
	}
}

func (f *fixture) join(eventID string, uid int64, status santa.Status, opts santa.Options) {
	f.t.Helper()
	err := f.repo.CreateParticipant(context.Background(), &santa.Participant{
		EventID: eventID,
		UserID:  uid,
		Status:  status,
		Info:    santa.MessageRef{ChatID: uid, MessageID: int(uid)},
		Options: opts,
	})
	if err != nil {
		f.t.Fatalf("create participant: %v", err)
	}
}

func (f *fixture) run(day time.Time, force bool) Result {
	f.t.Helper()
	res, err := f.s.RunDay(context.Background(), day, force)
	if err != nil {
		f.t.Fatalf("run %v: %v", day, err)
	}
	return res
}

func (f *fixture) status(eventID string, uid int64) santa.Status {
	f.t.Helper()
	p, err := f.repo.FindParticipant(context.Background(), eventID, uid)
	if err != nil || p == nil {
		f.t.Fatalf("participant %d: %v", uid, err)
	}
	return p.Status
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.event("e1", nil)
	for _, uid := range []int64{10, 11, 12} {
		f.join("e1", uid, santa.StatusApproved, nil)
	}
	f.join("e1", 13, santa.StatusApproved, santa.Options{santa.OptionNotifyReminders: false})
	f.join("e1", 20, santa.StatusWaiting, nil)

	res := f.run(regEnd, false)
	if res.Stats[StatPaired] != 1 {
		t.Fatalf("stats=%v", res.Stats)
	}
	e, _ := f.repo.FindEvent(ctx, "e1")
	if len(e.Pairing) != 4 || !pairing.IsSingleCycle(e.Pairing) {
		t.Fatalf("pairing=%v", e.Pairing)
	}
	if _, ok := e.Pairing[20]; ok {
		t.Fatalf("waiting participant was paired")
	}
	for giver, recipient := range e.Pairing {
		if !f.fake.Sent(giver, "Pairs for") {
			t.Fatalf("giver %d not told about the assignment", giver)
		}
		forwarded := false
		for _, c := range f.fake.To(giver) {
			if c.Kind == transporttest.KindForward && c.From.ChatID == recipient {
				forwarded = true
			}
		}
		if !forwarded {
			t.Fatalf("giver %d did not get %d's info", giver, recipient)
		}
	}

	// A forced re-run must not pair again or notify again.
	before := len(f.fake.Calls())
	pairingBefore := e.Pairing
	res = f.run(regEnd, true)
	if res.Skipped || res.Stats[StatPaired] != 0 || len(f.fake.Calls()) != before {
		t.Fatalf("re-run: res=%+v calls=%d->%d", res, before, len(f.fake.Calls()))
	}
	e, _ = f.repo.FindEvent(ctx, "e1")
	for k, v := range pairingBefore {
		if e.Pairing[k] != v {
			t.Fatalf("pairing changed on re-run")
		}
	}

	if err := f.repo.SetChoice(ctx, "e1", 10, santa.Choice{TitleID: "1", Name: "Good Show", Link: "https://shikimori.one/animes/1"}); err != nil {
		t.Fatalf("choice: %v", err)
	}
	f.fake.Reset()
	res = f.run(selection, false)
	target := e.Pairing[10]
	if res.Stats[StatDelivered] != 1 || f.status("e1", target) != santa.StatusWatching {
		t.Fatalf("stats=%v target status=%s", res.Stats, f.status("e1", target))
	}
	if !f.fake.Sent(target, "recommends: Good Show") {
		t.Fatalf("recipient %d not notified", target)
	}
	for uid := range e.Pairing {
		if uid != target && f.status("e1", uid) != santa.StatusApproved {
			t.Fatalf("participant %d moved without a choice", uid)
		}
	}

	// Selection close again: no double delivery.
	f.fake.Reset()
	res = f.run(selection, true)
	if res.Stats[StatDelivered] != 0 || len(f.fake.Texts(target)) != 0 {
		t.Fatalf("double delivery: stats=%v", res.Stats)
	}

	f.fake.Reset()
	res = f.run(selection.AddDate(0, 0, 1), false)
	reminded := 0
	for _, uid := range []int64{10, 11, 12, 13} {
		want := uid != 10 && uid != 13 && uid != target
		if got := f.fake.Sent(uid, "haven't chosen"); got != want {
			t.Fatalf("participant %d reminded=%v want %v", uid, got, want)
		}
		if want {
			reminded++
		}
	}
	if res.Stats[StatReminded] != reminded {
		t.Fatalf("stats=%v want %d reminders", res.Stats, reminded)
	}

	f.fake.Reset()
	f.run(review, false)
	if !f.fake.Sent(1, "1 participant(s) did not write a review") {
		t.Fatalf("creator got %q", f.fake.Texts(1))
	}
}

func TestRegistrationClose_TooFewDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.event("e1", nil)
	f.join("e1", 10, santa.StatusApproved, nil)
	f.join("e1", 11, santa.StatusWaiting, nil)
	f.join("e1", 12, santa.StatusRejected, nil)

	res := f.run(regEnd, false)
	if res.Stats[StatCancelled] != 1 {
		t.Fatalf("stats=%v", res.Stats)
	}
	if e, _ := f.repo.FindEvent(ctx, "e1"); e != nil {
		t.Fatalf("event survived")
	}
	if p, _ := f.repo.FindParticipant(ctx, "e1", 10); p != nil {
		t.Fatalf("participant survived")
	}
	if !f.fake.Sent(1, "fewer than two") {
		t.Fatalf("creator not told: %q", f.fake.Texts(1))
	}
}

func TestRunDay_ClaimedOnce(t *testing.T) {
	f := newFixture(t)
	if res := f.run(regEnd, false); res.Skipped {
		t.Fatalf("first run skipped")
	}
	if res := f.run(regEnd, false); !res.Skipped {
		t.Fatalf("second run not skipped")
	}
	if res := f.run(regEnd, true); res.Skipped {
		t.Fatalf("forced run skipped")
	}
}

func TestRunDay_CancelledRunIsRetried(t *testing.T) {
	f := newFixture(t)
	f.event("e1", nil)
	f.join("e1", 10, santa.StatusApproved, nil)
	f.join("e1", 11, santa.StatusApproved, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.s.RunDay(ctx, regEnd, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run returned %v", err)
	}
	if !f.fake.Sent(operatorChat, "scheduler_aborted") {
		t.Fatalf("abort not reported: %q", f.fake.Texts(operatorChat))
	}

	res := f.run(regEnd, false)
	if res.Skipped || res.Stats[StatPaired] != 1 {
		t.Fatalf("retry: %+v", res)
	}
	e, _ := f.repo.FindEvent(context.Background(), "e1")
	if !e.Paired() {
		t.Fatalf("event not paired after retry")
	}
	if res := f.run(regEnd, false); !res.Skipped {
		t.Fatalf("completed day ran again")
	}
}

func TestSelectionClose_UnresolvedPairingIsAnomaly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.event("e1", nil)
	f.join("e1", 10, santa.StatusApproved, nil)
	f.join("e1", 11, santa.StatusApproved, nil)
	if _, err := f.repo.SetPairing(ctx, "e1", map[int64]int64{10: 99, 99: 11, 11: 10}); err != nil {
		t.Fatalf("pairing: %v", err)
	}
	for _, uid := range []int64{10, 11} {
		if err := f.repo.SetChoice(ctx, "e1", uid, santa.Choice{TitleID: "1", Name: "Show"}); err != nil {
			t.Fatalf("choice: %v", err)
		}
	}

	res := f.run(selection, false)
	if res.Stats[StatAnomalies] != 1 || res.Stats[StatDelivered] != 1 {
		t.Fatalf("stats=%v", res.Stats)
	}
	if f.status("e1", 10) != santa.StatusWatching {
		t.Fatalf("resolvable delivery was skipped")
	}
	if !f.fake.Sent(operatorChat, "selection_close") {
		t.Fatalf("operator not told: %q", f.fake.Texts(operatorChat))
	}
}

type flakyRepo struct {
	*memory.Store
	broken string
}

func (r flakyRepo) ListParticipants(ctx context.Context, eventID string, statuses ...santa.Status) ([]santa.Participant, error) {
	if eventID == r.broken {
		return nil, errors.New("connection reset")
	}
	return r.Store.ListParticipants(ctx, eventID, statuses...)
}

func TestSweep_IsolatesFailingEvent(t *testing.T) {
	f := newFixture(t)
	f.event("bad", nil)
	f.event("good", nil)
	for _, id := range []string{"bad", "good"} {
		f.join(id, 10, santa.StatusApproved, nil)
		f.join(id, 11, santa.StatusApproved, nil)
	}
	f.s.Repo = flakyRepo{Store: f.repo, broken: "bad"}

	res := f.run(regEnd, false)
	if res.Stats[StatFailed] != 1 || res.Stats[StatPaired] != 1 {
		t.Fatalf("stats=%v", res.Stats)
	}
	good, _ := f.repo.FindEvent(context.Background(), "good")
	if !good.Paired() {
		t.Fatalf("good event not paired")
	}
	found := false
	for _, text := range f.fake.Texts(operatorChat) {
		if strings.Contains(text, "registration_close") && strings.Contains(text, "bad") {
			found = true
		}
	}
	if !found {
		t.Fatalf("failure not reported: %q", f.fake.Texts(operatorChat))
	}
}

func TestDeadline_ReportsToChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chat := int64(-42)
	if err := f.repo.CreateEvent(ctx, &santa.Event{
		ID: "e1", CreatorID: 1, Name: "Chat", Chat: &chat,
		RegistrationEnd: regEnd, SelectionDeadline: selection, ReviewDeadline: review,
		Rules: santa.MessageRef{ChatID: 1, MessageID: 1},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.join("e1", 10, santa.StatusCompleted, nil)
	f.run(review, false)
	if !f.fake.Sent(chat, "everyone wrote a review") {
		t.Fatalf("chat got %q", f.fake.Texts(chat))
	}
}
