package shikimori

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"animesanta/internal/cache"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/api/animes/5114":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":5114,"name":"Fullmetal Alchemist: Brotherhood","russian":"Стальной алхимик: Братство","url":"/animes/5114-fullmetal-alchemist-brotherhood","score":"9.1","status":"released","episodes":64,"duration":24}`))
		case "/api/animes/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"Bad","score":"n/a"}`))
		case "/api/animes/500":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	srv := newServer(t, nil)
	c := NewClient(srv.Client(), srv.URL+"/", "test-agent")
	ctx := context.Background()

	title, err := c.Lookup(ctx, "5114")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if title.Episodes != 64 || title.Duration != 24 || title.Status != "released" || title.Name != "Стальной алхимик: Братство" {
		t.Fatalf("title=%+v", title)
	}
	if !title.Score.Equal(decimal.RequireFromString("9.1")) {
		t.Fatalf("score=%s", title.Score)
	}
	if title.FullDuration().IntPart() != 64*24 {
		t.Fatalf("full duration=%s", title.FullDuration())
	}

	if title, err := c.Lookup(ctx, "99"); err != nil || title != nil {
		t.Fatalf("missing title=%v err=%v", title, err)
	}
	if title, err := c.Lookup(ctx, "../etc"); err != nil || title != nil {
		t.Fatalf("bad id title=%v err=%v", title, err)
	}
	if _, err := c.Lookup(ctx, "500"); err == nil {
		t.Fatalf("expected upstream error")
	}
	if _, err := c.Lookup(ctx, "1"); err == nil {
		t.Fatalf("expected score parse error")
	}
}

func TestTitleIDFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://shikimori.one/animes/5114-fullmetal-alchemist-brotherhood", "5114", true},
		{"https://shikimori.me/animes/z20", "20", true},
		{"http://www.shikimori.org/animes/y30/", "30", true},
		{"https://shiki.one/animes/42?tab=info", "42", true},
		{"https://shikimori.one/mangas/5114", "", false},
		{"https://example.com/animes/5114", "", false},
		{"not a link", "", false},
	}
	for _, tt := range tests {
		got, ok := TitleIDFromURL(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TitleIDFromURL(%q)=(%q,%v) want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCached(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := &Cached{
		Next:  NewClient(srv.Client(), srv.URL, "test-agent"),
		Cache: cache.NewMemoryStore(),
		TTL:   time.Hour,
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		title, err := c.Lookup(ctx, "5114")
		if err != nil || title == nil || title.Episodes != 64 {
			t.Fatalf("title=%+v err=%v", title, err)
		}
		if !title.Score.Equal(decimal.RequireFromString("9.1")) {
			t.Fatalf("cached score=%s", title.Score)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("hits=%d want 1", hits)
	}
	for i := 0; i < 2; i++ {
		if title, _ := c.Lookup(ctx, "77"); title != nil {
			t.Fatalf("missing title should stay missing")
		}
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("misses should not be cached, hits=%d", hits)
	}
}
