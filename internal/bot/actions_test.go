package bot

import (
	"errors"
	"testing"

	"animesanta/internal/santa"
)

func TestActionRoundTrip(t *testing.T) {
	in := Action{Verb: VerbReject, EventID: "abc", UserID: 42}
	out, err := DecodeAction(in.Encode())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out != in {
		t.Fatalf("out=%+v want %+v", out, in)
	}
}

func TestDecodeAction_Malformed(t *testing.T) {
	for _, data := range []string{"", "accept", "accept:ev", "delete:ev:1", "accept::1", "accept:ev:x", "accept:ev:0", "accept:ev:1:2"} {
		if _, err := DecodeAction(data); !errors.Is(err, santa.ErrMalformedAction) {
			t.Fatalf("%q: err=%v want ErrMalformedAction", data, err)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text, name, arg string
		ok              bool
	}{
		{"/start", "start", "", true},
		{"/start ev1", "start", "ev1", true},
		{"/new@santa_bot", "new", "", true},
		{"/my", "my", "", true},
		{"/myabc123", "my", "abc123", true},
		{"/chooseabc", "choose", "abc", true},
		{"/review abc", "review", "abc", true},
		{"/unknown", "unknown", "", true},
		{"hello", "", "", false},
	}
	for _, c := range cases {
		name, arg, ok := parseCommand(c.text)
		if name != c.name || arg != c.arg || ok != c.ok {
			t.Fatalf("%q: got (%q,%q,%v) want (%q,%q,%v)", c.text, name, arg, ok, c.name, c.arg, c.ok)
		}
	}
}
