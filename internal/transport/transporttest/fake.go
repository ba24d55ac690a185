// Package transporttest provides a recording Transport for tests.
package transporttest

import (
	"context"
	"strings"
	"sync"

	"animesanta/internal/santa"
	"animesanta/internal/transport"
)

type Kind string

const (
	KindSend    Kind = "send"
	KindForward Kind = "forward"
	KindCopy    Kind = "copy"
	KindAnswer  Kind = "answer"
)

// Call is one recorded transport call.
type Call struct {
	Kind    Kind
	To      int64
	Message transport.Message
	From    santa.MessageRef
	ID      string
	Text    string
}

// Fake records every call. Fail, when set, is consulted first and its error
// returned without recording.
type Fake struct {
	mu     sync.Mutex
	calls  []Call
	nextID int
	Fail   func(c Call) error
}

var _ transport.Transport = (*Fake)(nil)

func (f *Fake) record(c Call, to int64) (santa.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		if err := f.Fail(c); err != nil {
			return santa.MessageRef{}, err
		}
	}
	f.calls = append(f.calls, c)
	f.nextID++
	return santa.MessageRef{ChatID: to, MessageID: 1000 + f.nextID}, nil
}

func (f *Fake) Send(ctx context.Context, chatID int64, msg transport.Message) (santa.MessageRef, error) {
	return f.record(Call{Kind: KindSend, To: chatID, Message: msg, Text: msg.Text}, chatID)
}

func (f *Fake) Forward(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	return f.record(Call{Kind: KindForward, To: to, From: from}, to)
}

func (f *Fake) Copy(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	return f.record(Call{Kind: KindCopy, To: to, From: from}, to)
}

func (f *Fake) AnswerInteraction(ctx context.Context, id, text string) error {
	_, err := f.record(Call{Kind: KindAnswer, ID: id, Text: text}, 0)
	return err
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// To returns the calls addressed to chatID.
func (f *Fake) To(chatID int64) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.To == chatID && c.Kind != KindAnswer {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the texts sent to chatID.
func (f *Fake) Texts(chatID int64) []string {
	var out []string
	for _, c := range f.To(chatID) {
		if c.Kind == KindSend {
			out = append(out, c.Text)
		}
	}
	return out
}

// Sent reports whether a message containing substr was sent to chatID.
func (f *Fake) Sent(chatID int64, substr string) bool {
	for _, t := range f.Texts(chatID) {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}
