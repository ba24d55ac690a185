// Package bot is the conversation state machine behind the chat interface.
package bot

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"animesanta/internal/notify"
	"animesanta/internal/ops"
	"animesanta/internal/repository"
	"animesanta/internal/restriction"
	"animesanta/internal/santa"
	"animesanta/internal/session"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

type Settings struct {
	BotUsername    string
	DateLayout     string
	Location       *time.Location
	Gaps           santa.GapRule
	MinReviewWords int
}

type Bot struct {
	Repo      repository.Repository
	Sessions  *session.Store
	Notifier  *notify.Notifier
	Validator *restriction.Validator
	Reporter  *ops.Reporter
	Logger    *zap.Logger
	Settings  Settings

	Now   func() time.Time
	NewID func() string
}

// NewEventID returns a uuid without dashes so it fits in a chat command.
func NewEventID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func (b *Bot) today() time.Time {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	return santa.Today(now, b.Settings.Location)
}

func (b *Bot) newID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return NewEventID()
}

func (b *Bot) log() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// JoinLink is the deep link that opens the join flow for eventID.
func (b *Bot) JoinLink(eventID string) string {
	return "https://t.me/" + strings.TrimPrefix(b.Settings.BotUsername, "@") + "?start=" + eventID
}

// Handle processes one update. Updates from the same user must not be handled
// concurrently; the Dispatcher takes care of that.
func (b *Bot) Handle(ctx context.Context, u transport.Update) {
	if u.Callback != nil {
		b.handleCallback(ctx, u)
		return
	}
	sess, err := b.Sessions.Load(ctx, u.UserID)
	if err != nil {
		b.log().Warn("session load failed; starting fresh", zap.Int64("user_id", u.UserID), zap.Error(err))
		sess = session.New(u.UserID)
	}

	if err := b.route(ctx, sess, u); err != nil {
		switch santa.Classify(err) {
		case santa.KindInput:
			// stored session is left as it was
			b.Notifier.Text(ctx, u.ChatID, b.errorText(err))
			return
		case santa.KindLookup:
			b.log().Debug("request failed", zap.Int64("user_id", u.UserID), zap.String("state", string(sess.State)), zap.Error(err))
		default:
			b.log().Error("request failed", zap.Int64("user_id", u.UserID), zap.String("state", string(sess.State)), zap.Error(err))
		}
		b.Notifier.Text(ctx, u.ChatID, b.errorText(err))
		sess.Reset()
	}
	if err := b.Sessions.Save(ctx, sess); err != nil {
		b.log().Error("session save failed", zap.Int64("user_id", u.UserID), zap.Error(err))
	}
}

var prefixedCommands = []string{"choose", "review", "my"}

// parseCommand splits "/name@bot arg" and "/my<id>" style commands.
func parseCommand(text string) (name, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	arg = strings.TrimSpace(rest)
	switch head {
	case "start", "new", "cancel", "next":
		return head, arg, true
	}
	for _, p := range prefixedCommands {
		if strings.HasPrefix(head, p) {
			if suffix := head[len(p):]; suffix != "" {
				arg = suffix
			}
			return p, arg, true
		}
	}
	return head, arg, true
}

func (b *Bot) route(ctx context.Context, sess *session.Session, u transport.Update) error {
	if name, arg, ok := parseCommand(u.Text); ok {
		return b.command(ctx, sess, u, name, arg)
	}
	switch sess.State {
	case session.StateChooseName:
		return b.chooseName(ctx, sess, u)
	case session.StateChooseStartDate:
		return b.dateStep(ctx, sess, u, sess.CreatedOn, &sess.RegistrationEnd, session.StateChooseSelectDate,
			transport.Message{Text: texts.CreateSelectDate})
	case session.StateChooseSelectDate:
		return b.dateStep(ctx, sess, u, sess.RegistrationEnd, &sess.SelectionDeadline, session.StateChooseDeadlineDate,
			transport.Message{Text: texts.CreateDeadlineDate})
	case session.StateChooseDeadlineDate:
		return b.dateStep(ctx, sess, u, sess.SelectionDeadline, &sess.ReviewDeadline, session.StateChooseChat,
			transport.Message{Text: texts.CreateChat, RequestChat: true})
	case session.StateChooseChat:
		return b.chooseChat(ctx, sess, u)
	case session.StateWriteRules:
		return b.writeRules(ctx, sess, u)
	case session.StateWriteRestrictions:
		return b.writeRestrictions(ctx, sess, u)
	case session.StateConfirmOptions:
		return b.setOption(ctx, sess, u)
	case session.StateSubmitInfo:
		return b.submitInfo(ctx, sess, u)
	case session.StateSelectTitle:
		return b.selectTitle(ctx, sess, u)
	case session.StateWriteReview:
		return b.writeReview(ctx, sess, u)
	}
	b.Notifier.Text(ctx, u.ChatID, texts.Welcome)
	return nil
}

func (b *Bot) command(ctx context.Context, sess *session.Session, u transport.Update, name, arg string) error {
	switch name {
	case "cancel":
		sess.Reset()
		b.Notifier.Send(ctx, u.ChatID, transport.Message{Text: texts.Cancelled, RemoveKeyboard: true})
		return nil
	case "start":
		if arg == "" {
			sess.Reset()
			b.Notifier.Text(ctx, u.ChatID, texts.Welcome)
			return nil
		}
		return b.join(ctx, sess, u, arg)
	case "new":
		sess.BeginCreate(b.today())
		b.Notifier.Text(ctx, u.ChatID, texts.CreateName)
		return nil
	case "my":
		if arg == "" {
			return b.listEvents(ctx, u)
		}
		return b.eventSummary(ctx, u, arg)
	case "choose":
		return b.beginChoose(ctx, sess, u, arg)
	case "review":
		return b.beginReview(ctx, sess, u, arg)
	case "next":
		return b.next(ctx, sess, u)
	}
	b.Notifier.Text(ctx, u.ChatID, texts.UnknownCommand)
	return nil
}

// next advances the steps that can be skipped and finishes confirm-options.
func (b *Bot) next(ctx context.Context, sess *session.Session, u transport.Update) error {
	switch sess.State {
	case session.StateChooseChat:
		sess.Chat = nil
		sess.State = session.StateWriteRules
		b.Notifier.Send(ctx, u.ChatID, transport.Message{Text: texts.CreateRules, RemoveKeyboard: true})
		return nil
	case session.StateWriteRestrictions:
		sess.Restrictions = nil
		sess.State = session.StateConfirmOptions
		b.Notifier.Text(ctx, u.ChatID, texts.CreateNoRestrictions)
		b.Notifier.Text(ctx, u.ChatID, texts.CreateOptions)
		return nil
	case session.StateConfirmOptions:
		if sess.Flow == session.FlowJoin {
			return b.finishJoin(ctx, sess, u)
		}
		return b.finishCreate(ctx, sess, u)
	}
	b.Notifier.Text(ctx, u.ChatID, texts.NothingToSkip)
	return nil
}

func (b *Bot) setOption(ctx context.Context, sess *session.Session, u transport.Update) error {
	key, val, err := santa.ParseOption(u.Text)
	if err != nil {
		return err
	}
	if sess.Options == nil {
		sess.Options = santa.Options{}
	}
	sess.Options[key] = val
	b.Notifier.Text(ctx, u.ChatID, texts.OptionSet)
	return nil
}
