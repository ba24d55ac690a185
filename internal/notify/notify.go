// Package notify sends best-effort messages and delivers chosen titles.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"animesanta/internal/repository"
	"animesanta/internal/santa"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

// ErrUnresolvedPairing is a consistency anomaly: the pairing names someone
// who has no participant record.
var ErrUnresolvedPairing = errors.New("pairing entry has no resolvable participant")

// Notifier wraps a Transport. Delivery failures are logged and reported as
// false, never returned.
type Notifier struct {
	Transport  transport.Transport
	Logger     *zap.Logger
	DateLayout string
}

func (n *Notifier) Send(ctx context.Context, chatID int64, msg transport.Message) bool {
	if _, err := n.Transport.Send(ctx, chatID, msg); err != nil {
		n.warn("send failed", chatID, err)
		return false
	}
	return true
}

func (n *Notifier) Text(ctx context.Context, chatID int64, text string) bool {
	return n.Send(ctx, chatID, transport.Message{Text: text})
}

func (n *Notifier) Forward(ctx context.Context, from santa.MessageRef, to int64) bool {
	if _, err := n.Transport.Forward(ctx, from, to); err != nil {
		n.warn("forward failed", to, err)
		return false
	}
	return true
}

func (n *Notifier) Copy(ctx context.Context, from santa.MessageRef, to int64) bool {
	if _, err := n.Transport.Copy(ctx, from, to); err != nil {
		n.warn("copy failed", to, err)
		return false
	}
	return true
}

func (n *Notifier) Answer(ctx context.Context, id, text string) {
	if id == "" {
		return
	}
	if err := n.Transport.AnswerInteraction(ctx, id, text); err != nil && n.Logger != nil {
		n.Logger.Debug("answer interaction failed", zap.Error(err))
	}
}

func (n *Notifier) warn(msg string, chatID int64, err error) {
	if n.Logger != nil {
		n.Logger.Warn(msg, zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// DeliverChoice tells giver's recipient about the chosen title and moves the
// recipient to watching. It reports whether the recipient moved; a recipient
// who already moved is left alone, so calling it twice never notifies twice.
func (n *Notifier) DeliverChoice(ctx context.Context, repo repository.Repository, e *santa.Event, giver santa.Participant) (bool, error) {
	if !giver.HasChoice() {
		return false, nil
	}
	recipientID, ok := e.RecipientOf(giver.UserID)
	if !ok {
		return false, fmt.Errorf("%w: giver %d in event %s", ErrUnresolvedPairing, giver.UserID, e.ID)
	}
	recipient, err := repo.FindParticipant(ctx, e.ID, recipientID)
	if err != nil {
		return false, err
	}
	if recipient == nil {
		return false, fmt.Errorf("%w: recipient %d in event %s", ErrUnresolvedPairing, recipientID, e.ID)
	}
	if recipient.Status != santa.StatusApproved {
		return false, nil
	}
	if err := repo.UpdateParticipantStatus(ctx, e.ID, recipientID, santa.StatusWatching); err != nil {
		if errors.Is(err, santa.ErrInvalidTransition) {
			return false, nil
		}
		return false, err
	}
	n.Text(ctx, recipientID, texts.ChoiceDelivered(
		e.Name,
		giver.Choice.Name,
		giver.Choice.Link,
		santa.FormatDate(e.ReviewDeadline, n.DateLayout),
		e.ID,
	))
	return true, nil
}

// Name is how a participant is shown to others.
func Name(p *santa.Participant) string {
	if p == nil {
		return "someone"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "user " + strconv.FormatInt(p.UserID, 10)
}
