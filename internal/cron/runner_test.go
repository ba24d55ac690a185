package cronrunner

import (
	"context"
	"testing"
	"time"
)

func TestRunner_FiresWithBaseContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "base")
	r := New(nil, ctx, time.UTC)
	got := make(chan any, 1)
	if _, err := r.Add("tick", "@every 1s", func(c context.Context) {
		select {
		case got <- c.Value(key{}):
		default:
		}
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	defer r.Stop()
	select {
	case v := <-got:
		if v != "base" {
			t.Fatalf("ctx value=%v", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not fire")
	}
}

func TestRunner_RecoversPanic(t *testing.T) {
	r := New(nil, context.Background(), nil)
	fired := make(chan struct{}, 4)
	if _, err := r.Add("boom", "@every 1s", func(context.Context) {
		fired <- struct{}{}
		panic("boom")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Start()
	defer r.Stop()
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(3 * time.Second):
			t.Fatalf("runner stopped after panic")
		}
	}
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background(), nil)
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error")
	}
}
