package bot

import (
	"fmt"
	"strconv"
	"strings"

	"animesanta/internal/santa"
)

type Verb string

const (
	VerbAccept Verb = "accept"
	VerbReject Verb = "reject"
)

// Action is a decoded inline-button payload "<verb>:<eventId>:<userId>".
type Action struct {
	Verb    Verb
	EventID string
	UserID  int64
}

func (a Action) Encode() string {
	return string(a.Verb) + ":" + a.EventID + ":" + strconv.FormatInt(a.UserID, 10)
}

func DecodeAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("%w: %q", santa.ErrMalformedAction, data)
	}
	verb := Verb(parts[0])
	if verb != VerbAccept && verb != VerbReject {
		return Action{}, fmt.Errorf("%w: verb %q", santa.ErrMalformedAction, parts[0])
	}
	if parts[1] == "" {
		return Action{}, fmt.Errorf("%w: empty event id", santa.ErrMalformedAction)
	}
	userID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || userID == 0 {
		return Action{}, fmt.Errorf("%w: user id %q", santa.ErrMalformedAction, parts[2])
	}
	return Action{Verb: verb, EventID: parts[1], UserID: userID}, nil
}
