package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"animesanta/internal/restriction"
	"animesanta/internal/santa"
	"animesanta/internal/session"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

func (b *Bot) chooseName(ctx context.Context, sess *session.Session, u transport.Update) error {
	name := strings.TrimSpace(u.Text)
	if name == "" || utf8.RuneCountInString(name) > santa.MaxNameLength {
		return fmt.Errorf("%w: %d characters", santa.ErrInvalidName, utf8.RuneCountInString(name))
	}
	sess.Name = name
	sess.State = session.StateChooseStartDate
	b.Notifier.Text(ctx, u.ChatID, texts.CreateStartDate)
	return nil
}

// dateStep reads a date that must fall within the gap rule after prev.
func (b *Bot) dateStep(ctx context.Context, sess *session.Session, u transport.Update, prev time.Time, dst *time.Time, next session.State, prompt transport.Message) error {
	d, err := santa.ParseDate(u.Text, b.Settings.DateLayout)
	if err != nil {
		return err
	}
	if err := b.Settings.Gaps.Check(prev, d); err != nil {
		return err
	}
	*dst = d
	sess.State = next
	b.Notifier.Send(ctx, u.ChatID, prompt)
	return nil
}

func (b *Bot) chooseChat(ctx context.Context, sess *session.Session, u transport.Update) error {
	var chat int64
	if u.SharedChatID != nil {
		chat = *u.SharedChatID
	} else {
		id, err := strconv.ParseInt(strings.TrimSpace(u.Text), 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("%w: %q", santa.ErrInvalidChat, u.Text)
		}
		chat = id
	}
	sess.Chat = &chat
	sess.State = session.StateWriteRules
	b.Notifier.Send(ctx, u.ChatID, transport.Message{Text: texts.CreateRules, RemoveKeyboard: true})
	return nil
}

func (b *Bot) writeRules(ctx context.Context, sess *session.Session, u transport.Update) error {
	sess.Rules = u.Ref()
	sess.State = session.StateWriteRestrictions
	b.Notifier.Text(ctx, u.ChatID, texts.CreateRestrictions)
	return nil
}

func (b *Bot) writeRestrictions(ctx context.Context, sess *session.Session, u transport.Update) error {
	rules := restriction.Parse(u.Text)
	if rules == nil {
		return santa.ErrRestrictionParse
	}
	sess.Restrictions = rules
	sess.State = session.StateConfirmOptions
	b.Notifier.Text(ctx, u.ChatID, texts.CreateRestrictionsOK+"\n"+restriction.Format(rules))
	b.Notifier.Text(ctx, u.ChatID, texts.CreateOptions)
	return nil
}

func (b *Bot) finishCreate(ctx context.Context, sess *session.Session, u transport.Update) error {
	if !b.today().Before(sess.RegistrationEnd) {
		return fmt.Errorf("%w: registration end %s already reached", santa.ErrEventAlreadyStarted,
			santa.FormatDate(sess.RegistrationEnd, b.Settings.DateLayout))
	}
	e := &santa.Event{
		ID:                b.newID(),
		CreatorID:         u.UserID,
		Name:              sess.Name,
		RegistrationEnd:   sess.RegistrationEnd,
		SelectionDeadline: sess.SelectionDeadline,
		ReviewDeadline:    sess.ReviewDeadline,
		Rules:             sess.Rules,
		Restrictions:      sess.Restrictions,
		Chat:              sess.Chat,
		Options:           sess.Options.Clone(),
	}
	if err := e.Validate(sess.CreatedOn, b.Settings.Gaps); err != nil {
		return err
	}
	if err := b.Repo.CreateEvent(ctx, e); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	b.log().Info("event created",
		zap.String("event_id", e.ID),
		zap.Int64("creator_id", e.CreatorID),
		zap.Time("registration_end", e.RegistrationEnd),
	)
	sess.Reset()
	b.Notifier.Text(ctx, u.ChatID, texts.CreateFinish(b.JoinLink(e.ID)))
	return nil
}
