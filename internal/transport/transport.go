// Package transport is the chat surface the bot talks through.
package transport

import (
	"context"
	"errors"

	"animesanta/internal/santa"
)

// ErrPermanent marks failures a retry cannot fix, such as a chat that blocked
// the bot.
var ErrPermanent = errors.New("permanent transport failure")

type Button struct {
	Text string
	Data string
}

type Message struct {
	Text    string
	Buttons [][]Button
	// RequestChat shows a one-time keyboard asking the user to share a chat.
	RequestChat bool
	// RemoveKeyboard clears a keyboard left by RequestChat.
	RemoveKeyboard bool
}

// Transport sends, forwards and copies messages.
type Transport interface {
	Send(ctx context.Context, chatID int64, msg Message) (santa.MessageRef, error)
	Forward(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error)
	Copy(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error)
	AnswerInteraction(ctx context.Context, id, text string) error
}

type Callback struct {
	ID   string
	Data string
}

// Update is one inbound user action: a message or a button press.
type Update struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	Text        string
	MessageID   int
	// Links are URLs found in the message entities, in order.
	Links        []string
	SharedChatID *int64
	Callback     *Callback
}

// Ref points at the message carried by u.
func (u Update) Ref() santa.MessageRef {
	return santa.MessageRef{ChatID: u.ChatID, MessageID: u.MessageID}
}

// Source delivers inbound updates until ctx ends.
type Source interface {
	Updates(ctx context.Context) (<-chan Update, error)
}
