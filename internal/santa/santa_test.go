package santa

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGapRule_Bounds(t *testing.T) {
	rule := DefaultGapRule()
	d := Date(2026, time.March, 1)
	tests := []struct {
		days    int
		wantErr bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{31, false},
		{32, true},
	}
	for _, tt := range tests {
		err := rule.Check(d, d.AddDate(0, 0, tt.days))
		if (err != nil) != tt.wantErr {
			t.Fatalf("gap %d: err=%v wantErr=%v", tt.days, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrDateRange) {
			t.Fatalf("gap %d: err=%v want ErrDateRange", tt.days, err)
		}
	}
}

func TestGapRule_AcrossMonthBoundary(t *testing.T) {
	rule := DefaultGapRule()
	if err := rule.Check(Date(2026, time.January, 30), Date(2026, time.February, 1)); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 05.11.2026 ", DefaultDateLayout)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got.Equal(Date(2026, time.November, 5)) {
		t.Fatalf("got=%v", got)
	}
	for _, bad := range []string{"2026-11-05", "32.01.2026", "5/11/2026", ""} {
		if _, err := ParseDate(bad, DefaultDateLayout); !errors.Is(err, ErrDateParse) {
			t.Fatalf("ParseDate(%q) err=%v want ErrDateParse", bad, err)
		}
	}
}

func TestToday_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2026, time.May, 1, 22, 30, 0, 0, time.UTC)
	if got := Today(now, loc); !got.Equal(Date(2026, time.May, 2)) {
		t.Fatalf("got=%v want 2026-05-02", got)
	}
	if got := Today(now, nil); !got.Equal(Date(2026, time.May, 1)) {
		t.Fatalf("got=%v want 2026-05-01", got)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusWaiting, StatusApproved}:   true,
		{StatusWaiting, StatusRejected}:   true,
		{StatusApproved, StatusWatching}:  true,
		{StatusWatching, StatusCompleted}: true,
	}
	all := []Status{StatusWaiting, StatusApproved, StatusRejected, StatusWatching, StatusCompleted}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s,%s)=%v want %v", from, to, got, want)
			}
		}
	}
}

func TestEventPhase(t *testing.T) {
	base := Date(2026, time.June, 1)
	e := &Event{
		RegistrationEnd:   base.AddDate(0, 0, 5),
		SelectionDeadline: base.AddDate(0, 0, 10),
		ReviewDeadline:    base.AddDate(0, 0, 20),
	}
	tests := []struct {
		day  int
		want Phase
	}{
		{0, PhaseRegistration},
		{4, PhaseRegistration},
		{5, PhaseSelection},
		{10, PhaseWatching},
		{20, PhaseWatching},
		{21, PhaseFinished},
	}
	for _, tt := range tests {
		if got := e.Phase(base.AddDate(0, 0, tt.day)); got != tt.want {
			t.Fatalf("day %d: phase=%s want %s", tt.day, got, tt.want)
		}
	}
}

func TestEventValidate(t *testing.T) {
	created := Date(2026, time.June, 1)
	e := &Event{
		ID:                "e1",
		CreatorID:         10,
		Name:              "Winter",
		RegistrationEnd:   created.AddDate(0, 0, 5),
		SelectionDeadline: created.AddDate(0, 0, 10),
		ReviewDeadline:    created.AddDate(0, 0, 20),
		Rules:             MessageRef{ChatID: 10, MessageID: 3},
	}
	if err := e.Validate(created, DefaultGapRule()); err != nil {
		t.Fatalf("err=%v", err)
	}
	e.SelectionDeadline = e.RegistrationEnd.AddDate(0, 0, 1)
	if err := e.Validate(created, DefaultGapRule()); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("err=%v want ErrInvalidEvent", err)
	}
}

func TestEventDestination(t *testing.T) {
	e := &Event{CreatorID: 7}
	if e.Destination() != 7 {
		t.Fatalf("destination=%d want creator", e.Destination())
	}
	chat := int64(-100500)
	e.Chat = &chat
	if e.Destination() != chat {
		t.Fatalf("destination=%d want chat", e.Destination())
	}
}

func TestRestrictionHolds_Strict(t *testing.T) {
	r := Restriction{Kind: KindScore, Operator: GreaterThan, Value: decimal.NewFromInt(7)}
	if r.Holds(decimal.NewFromInt(7)) {
		t.Fatalf("7>7 must not hold")
	}
	if !r.Holds(decimal.RequireFromString("7.01")) {
		t.Fatalf("7.01>7 must hold")
	}
	r.Operator = LessThan
	if r.Holds(decimal.NewFromInt(7)) {
		t.Fatalf("7<7 must not hold")
	}
}

func TestParseOption(t *testing.T) {
	tests := []struct {
		in      string
		key     string
		val     bool
		wantErr bool
	}{
		{"anonymous_reviews=true", "anonymous_reviews", true, false},
		{" Notify_Reminders = off ", "notify_reminders", false, false},
		{"x=yes", "x", true, false},
		{"novalue", "", false, true},
		{"bad key=1", "", false, true},
		{"k=maybe", "", false, true},
	}
	for _, tt := range tests {
		key, val, err := ParseOption(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseOption(%q) err=%v", tt.in, err)
		}
		if err != nil {
			if !errors.Is(err, ErrInvalidOption) {
				t.Fatalf("ParseOption(%q) err=%v want ErrInvalidOption", tt.in, err)
			}
			continue
		}
		if key != tt.key || val != tt.val {
			t.Fatalf("ParseOption(%q)=(%q,%v) want (%q,%v)", tt.in, key, val, tt.key, tt.val)
		}
	}
}

func TestClassify(t *testing.T) {
	if Classify(fmt.Errorf("step: %w", ErrDateRange)) != KindInput {
		t.Fatalf("date range should be an input error")
	}
	if Classify(ErrEventNotFound) != KindLookup {
		t.Fatalf("event not found should be a lookup error")
	}
	both := fmt.Errorf("%w: %w", ErrRestrictionFailed, ErrTitleNotFound)
	if Classify(both) != KindInput {
		t.Fatalf("restriction failure keeps the user in the same step")
	}
	if Classify(errors.New("boom")) != KindInternal {
		t.Fatalf("unknown errors are internal")
	}
}
