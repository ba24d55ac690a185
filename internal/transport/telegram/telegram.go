// Package telegram adapts telego to the transport interfaces.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/mymmrac/telego"
	ta "github.com/mymmrac/telego/telegoapi"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"animesanta/internal/santa"
	"animesanta/internal/transport"
)

const requestChatID = 1

type Client struct {
	bot         *telego.Bot
	logger      *zap.Logger
	pollTimeout time.Duration
}

var (
	_ transport.Transport = (*Client)(nil)
	_ transport.Source    = (*Client)(nil)
)

func New(token string, logger *zap.Logger, pollTimeout time.Duration) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bot, err := telego.NewBot(token, telego.WithLogger(logger.Named("telego").Sugar()))
	if err != nil {
		return nil, err
	}
	return &Client{bot: bot, logger: logger, pollTimeout: pollTimeout}, nil
}

// Username asks the API for the bot's own username.
func (c *Client) Username(ctx context.Context) (string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", classify(err)
	}
	return me.Username, nil
}

func (c *Client) Send(ctx context.Context, chatID int64, msg transport.Message) (santa.MessageRef, error) {
	params := &telego.SendMessageParams{
		ChatID:             tu.ID(chatID),
		Text:               msg.Text,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if markup := replyMarkup(msg); markup != nil {
		params.ReplyMarkup = markup
	}
	sent, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return santa.MessageRef{}, classify(err)
	}
	return santa.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

func (c *Client) Forward(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	sent, err := c.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(to),
		FromChatID: tu.ID(from.ChatID),
		MessageID:  from.MessageID,
	})
	if err != nil {
		return santa.MessageRef{}, classify(err)
	}
	return santa.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

func (c *Client) Copy(ctx context.Context, from santa.MessageRef, to int64) (santa.MessageRef, error) {
	id, err := c.bot.CopyMessage(ctx, &telego.CopyMessageParams{
		ChatID:     tu.ID(to),
		FromChatID: tu.ID(from.ChatID),
		MessageID:  from.MessageID,
	})
	if err != nil {
		return santa.MessageRef{}, classify(err)
	}
	return santa.MessageRef{ChatID: to, MessageID: id.MessageID}, nil
}

func (c *Client) AnswerInteraction(ctx context.Context, id, text string) error {
	err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	})
	return classify(err)
}

// Updates long-polls the API and converts what the bot understands.
func (c *Client) Updates(ctx context.Context) (<-chan transport.Update, error) {
	timeout := int(c.pollTimeout / time.Second)
	if timeout <= 0 {
		timeout = 30
	}
	raw, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}
	out := make(chan transport.Update)
	go func() {
		defer close(out)
		for u := range raw {
			conv, ok := convert(u)
			if !ok {
				continue
			}
			select {
			case out <- conv:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func replyMarkup(msg transport.Message) telego.ReplyMarkup {
	switch {
	case len(msg.Buttons) > 0:
		rows := make([][]telego.InlineKeyboardButton, 0, len(msg.Buttons))
		for _, row := range msg.Buttons {
			buttons := make([]telego.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
			}
			rows = append(rows, tu.InlineKeyboardRow(buttons...))
		}
		return tu.InlineKeyboard(rows...)
	case msg.RequestChat:
		return tu.Keyboard(
			tu.KeyboardRow(
				tu.KeyboardButton("Choose a chat").WithRequestChat(&telego.KeyboardButtonRequestChat{
					RequestID:     requestChatID,
					ChatIsChannel: false,
				}),
			),
		).WithResizeKeyboard().WithOneTimeKeyboard()
	case msg.RemoveKeyboard:
		return tu.ReplyKeyboardRemove()
	}
	return nil
}

func convert(u telego.Update) (transport.Update, bool) {
	if q := u.CallbackQuery; q != nil {
		return transport.Update{
			UserID:      q.From.ID,
			ChatID:      q.From.ID,
			DisplayName: displayName(q.From),
			Callback:    &transport.Callback{ID: q.ID, Data: q.Data},
		}, true
	}
	m := u.Message
	if m == nil || m.From == nil || m.Chat.Type != telego.ChatTypePrivate {
		return transport.Update{}, false
	}
	out := transport.Update{
		UserID:      m.From.ID,
		ChatID:      m.Chat.ID,
		DisplayName: displayName(*m.From),
		MessageID:   m.MessageID,
	}
	switch {
	case m.Text != "":
		out.Text = m.Text
		out.Links = extractLinks(m.Text, m.Entities)
	case m.Caption != "":
		out.Text = m.Caption
		out.Links = extractLinks(m.Caption, m.CaptionEntities)
	}
	if m.ChatShared != nil {
		id := m.ChatShared.ChatID
		out.SharedChatID = &id
	}
	return out, true
}

func displayName(u telego.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// extractLinks returns URLs from url and text_link entities. Entity offsets
// count UTF-16 code units.
func extractLinks(text string, entities []telego.MessageEntity) []string {
	var units []uint16
	var out []string
	for _, e := range entities {
		switch e.Type {
		case telego.EntityTypeTextLink:
			if e.URL != "" {
				out = append(out, e.URL)
			}
		case telego.EntityTypeURL:
			if units == nil {
				units = utf16.Encode([]rune(text))
			}
			if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
				continue
			}
			out = append(out, string(utf16.Decode(units[e.Offset:e.Offset+e.Length])))
		}
	}
	return out
}

// classify marks client-side API errors as permanent so the retry layer
// leaves them alone.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *ta.Error
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == 429 || apiErr.ErrorCode >= 500 {
			return err
		}
		if apiErr.ErrorCode >= 400 {
			return fmt.Errorf("%w: %w", transport.ErrPermanent, err)
		}
	}
	return err
}
