package ops

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"animesanta/internal/notify"
	"animesanta/internal/transport/transporttest"
)

func TestReporter_Anomaly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fake := &transporttest.Fake{}
	r := &Reporter{
		Logger:         zap.New(core),
		Notifier:       &notify.Notifier{Transport: fake},
		OperatorChatID: 77,
	}
	r.Anomaly(context.Background(), "pairing_unresolved", errors.New("no participant"), map[string]any{"event_id": "e1", "giver": 5})

	if logs.Len() != 1 {
		t.Fatalf("logs=%d", logs.Len())
	}
	texts := fake.Texts(77)
	if len(texts) != 1 {
		t.Fatalf("operator messages=%v", texts)
	}
	want := "[WARN] pairing_unresolved\nerror: no participant\nevent_id: e1\ngiver: 5"
	if texts[0] != want {
		t.Fatalf("text=%q want %q", texts[0], want)
	}
}

func TestReporter_NoOperatorChat(t *testing.T) {
	fake := &transporttest.Fake{}
	r := &Reporter{Notifier: &notify.Notifier{Transport: fake}}
	r.Failure(context.Background(), "sweep_failed", nil, nil)
	if len(fake.Calls()) != 0 {
		t.Fatalf("no operator chat configured, calls=%v", fake.Calls())
	}
	var nilReporter *Reporter
	nilReporter.Anomaly(context.Background(), "x", nil, nil)
}

func TestFormat(t *testing.T) {
	got := Format("error", "x", map[string]any{"b": 2, "a": 1})
	if !strings.HasPrefix(got, "[ERROR] x\na: 1\nb: 2") {
		t.Fatalf("got=%q", got)
	}
}
