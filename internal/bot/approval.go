package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"animesanta/internal/santa"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

func (b *Bot) handleCallback(ctx context.Context, u transport.Update) {
	act, err := DecodeAction(u.Callback.Data)
	if err == nil {
		err = b.decide(ctx, u.UserID, act)
	}
	if err != nil {
		if santa.Classify(err) == santa.KindInternal {
			b.log().Error("callback failed", zap.Int64("user_id", u.UserID), zap.String("data", u.Callback.Data), zap.Error(err))
		} else {
			b.log().Debug("callback rejected", zap.Int64("user_id", u.UserID), zap.String("data", u.Callback.Data), zap.Error(err))
		}
		b.Notifier.Answer(ctx, u.Callback.ID, b.errorText(err))
		return
	}
	answer := texts.Approved
	if act.Verb == VerbReject {
		answer = texts.Rejected
	}
	b.Notifier.Answer(ctx, u.Callback.ID, answer)
}

// decide applies the creator's accept or reject to a waiting participant.
func (b *Bot) decide(ctx context.Context, userID int64, act Action) error {
	e, err := b.Repo.FindEvent(ctx, act.EventID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("%w: %s", santa.ErrEventNotFound, act.EventID)
	}
	if e.CreatorID != userID {
		return santa.ErrNotCreator
	}
	if !b.today().Before(e.RegistrationEnd) {
		return fmt.Errorf("%w: %s", santa.ErrEventAlreadyStarted, e.ID)
	}
	to := santa.StatusApproved
	if act.Verb == VerbReject {
		to = santa.StatusRejected
	}
	if err := b.Repo.UpdateParticipantStatus(ctx, e.ID, act.UserID, to); err != nil {
		return err
	}
	b.log().Info("participant decided", zap.String("event_id", e.ID), zap.Int64("user_id", act.UserID), zap.String("status", string(to)))
	b.Notifier.Text(ctx, act.UserID, texts.Decision(e.Name, to == santa.StatusApproved))
	return nil
}
