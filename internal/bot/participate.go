package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"animesanta/internal/client/shikimori"
	"animesanta/internal/notify"
	"animesanta/internal/santa"
	"animesanta/internal/session"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

// openEvent loads an event that still accepts registrations.
func (b *Bot) openEvent(ctx context.Context, eventID string) (*santa.Event, error) {
	e, err := b.Repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s", santa.ErrEventNotFound, eventID)
	}
	if !b.today().Before(e.RegistrationEnd) {
		return nil, fmt.Errorf("%w: %s", santa.ErrEventAlreadyStarted, eventID)
	}
	return e, nil
}

func (b *Bot) join(ctx context.Context, sess *session.Session, u transport.Update, eventID string) error {
	e, err := b.openEvent(ctx, eventID)
	if err != nil {
		return err
	}
	p, err := b.Repo.FindParticipant(ctx, e.ID, u.UserID)
	if err != nil {
		return err
	}
	if p != nil {
		return fmt.Errorf("%w: status %s", santa.ErrAlreadyRegistered, p.Status)
	}
	sess.BeginJoin(e.ID)
	b.Notifier.Copy(ctx, e.Rules, u.ChatID)
	b.Notifier.Text(ctx, u.ChatID, texts.ParticipateInfo)
	return nil
}

func (b *Bot) submitInfo(ctx context.Context, sess *session.Session, u transport.Update) error {
	sess.Info = u.Ref()
	sess.State = session.StateConfirmOptions
	b.Notifier.Text(ctx, u.ChatID, texts.ParticipateOptions)
	return nil
}

func (b *Bot) finishJoin(ctx context.Context, sess *session.Session, u transport.Update) error {
	e, err := b.openEvent(ctx, sess.EventID)
	if err != nil {
		return err
	}
	p := &santa.Participant{
		EventID:     e.ID,
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		Status:      santa.StatusWaiting,
		Info:        sess.Info,
		Options:     sess.Options.Clone(),
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := b.Repo.CreateParticipant(ctx, p); err != nil {
		return err
	}
	b.log().Info("participant registered", zap.String("event_id", e.ID), zap.Int64("user_id", u.UserID))
	sess.Reset()
	b.Notifier.Text(ctx, u.ChatID, texts.ParticipateSent)
	b.requestApproval(ctx, e, p)
	return nil
}

// requestApproval shows the creator a participant's introduction with
// accept and reject buttons.
func (b *Bot) requestApproval(ctx context.Context, e *santa.Event, p *santa.Participant) {
	b.Notifier.Forward(ctx, p.Info, e.CreatorID)
	b.Notifier.Send(ctx, e.CreatorID, transport.Message{
		Text: texts.JoinRequest(notify.Name(p), e.Name),
		Buttons: [][]transport.Button{{
			{Text: texts.Approved, Data: Action{Verb: VerbAccept, EventID: e.ID, UserID: p.UserID}.Encode()},
			{Text: texts.Rejected, Data: Action{Verb: VerbReject, EventID: e.ID, UserID: p.UserID}.Encode()},
		}},
	})
}

// selectable loads the event and giver for a title choice.
func (b *Bot) selectable(ctx context.Context, eventID string, userID int64) (*santa.Event, *santa.Participant, error) {
	e, err := b.Repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, fmt.Errorf("%w: %s", santa.ErrEventNotFound, eventID)
	}
	if e.Terminal(b.today()) {
		return nil, nil, fmt.Errorf("%w: %s", santa.ErrEventFinished, eventID)
	}
	if !e.Paired() {
		return nil, nil, fmt.Errorf("%w: %s", santa.ErrNotPaired, eventID)
	}
	p, err := b.Repo.FindParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %d in %s", santa.ErrParticipantNotFound, userID, eventID)
	}
	if p.HasChoice() {
		return nil, nil, santa.ErrChoiceAlreadySet
	}
	if p.Status != santa.StatusApproved {
		return nil, nil, fmt.Errorf("%w: status %s", santa.ErrSelectionClosed, p.Status)
	}
	return e, p, nil
}

func (b *Bot) beginChoose(ctx context.Context, sess *session.Session, u transport.Update, eventID string) error {
	if eventID == "" {
		return santa.ErrEventNotFound
	}
	e, _, err := b.selectable(ctx, eventID, u.UserID)
	if err != nil {
		return err
	}
	recipientID, ok := e.RecipientOf(u.UserID)
	if !ok {
		return b.unresolved(ctx, e, u.UserID, fmt.Errorf("%w: giver %d in event %s", notify.ErrUnresolvedPairing, u.UserID, e.ID))
	}
	recipient, err := b.Repo.FindParticipant(ctx, e.ID, recipientID)
	if err != nil {
		return err
	}
	if recipient == nil {
		return b.unresolved(ctx, e, u.UserID, fmt.Errorf("%w: recipient %d in event %s", notify.ErrUnresolvedPairing, recipientID, e.ID))
	}
	sess.Focus(session.StateSelectTitle, e.ID)
	b.Notifier.Text(ctx, u.ChatID, texts.SelectTitle(notify.Name(recipient)))
	b.Notifier.Forward(ctx, recipient.Info, u.ChatID)
	return nil
}

// unresolved reports a pairing that points nowhere and returns err, which the
// user sees as a generic failure.
func (b *Bot) unresolved(ctx context.Context, e *santa.Event, userID int64, err error) error {
	b.Reporter.Anomaly(ctx, "choose", err, map[string]any{"event_id": e.ID, "user_id": userID})
	return err
}

// titleLinks returns the distinct title ids among links, ignoring links to
// anything other than a title page.
func titleLinks(links []string) []string {
	var ids []string
	for _, l := range links {
		id, ok := shikimori.TitleIDFromURL(l)
		if ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *Bot) selectTitle(ctx context.Context, sess *session.Session, u transport.Update) error {
	ids := titleLinks(u.Links)
	if len(ids) != 1 {
		return fmt.Errorf("%w: got %d title links", santa.ErrLinkCount, len(ids))
	}
	titleID := ids[0]
	e, p, err := b.selectable(ctx, sess.EventID, u.UserID)
	if err != nil {
		return err
	}
	title, err := b.Validator.Check(ctx, titleID, e.Restrictions)
	if err != nil {
		return err
	}
	choice := santa.Choice{TitleID: title.ID, Name: title.Name, Link: shikimori.TitleURL(title.ID)}
	if err := b.Repo.SetChoice(ctx, e.ID, u.UserID, choice); err != nil {
		return err
	}
	p.Choice = &choice
	b.log().Info("title chosen", zap.String("event_id", e.ID), zap.Int64("user_id", u.UserID), zap.String("title_id", title.ID))
	sess.Reset()
	b.Notifier.Text(ctx, u.ChatID, texts.SelectTitleOK)

	// Past the selection deadline the sweep has already run, so deliver now.
	if !b.today().Before(e.SelectionDeadline) {
		if _, err := b.Notifier.DeliverChoice(ctx, b.Repo, e, *p); err != nil {
			b.log().Warn("late choice delivery failed", zap.String("event_id", e.ID), zap.Int64("user_id", u.UserID), zap.Error(err))
		}
	}
	return nil
}

// reviewable loads the event and a participant who is due a review.
func (b *Bot) reviewable(ctx context.Context, eventID string, userID int64) (*santa.Event, *santa.Participant, error) {
	e, err := b.Repo.FindEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, fmt.Errorf("%w: %s", santa.ErrEventNotFound, eventID)
	}
	if e.Terminal(b.today()) {
		return nil, nil, fmt.Errorf("%w: %s", santa.ErrEventFinished, eventID)
	}
	p, err := b.Repo.FindParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %d in %s", santa.ErrParticipantNotFound, userID, eventID)
	}
	if p.Status != santa.StatusWatching {
		return nil, nil, fmt.Errorf("%w: review needs status %s, have %s", santa.ErrInvalidTransition, santa.StatusWatching, p.Status)
	}
	return e, p, nil
}

// receivedTitle finds the link chosen for userID by their giver.
func (b *Bot) receivedTitle(ctx context.Context, e *santa.Event, userID int64) string {
	for giver, to := range e.Pairing {
		if to != userID {
			continue
		}
		p, err := b.Repo.FindParticipant(ctx, e.ID, giver)
		if err != nil || p == nil || !p.HasChoice() {
			return ""
		}
		return p.Choice.Link
	}
	return ""
}

func (b *Bot) beginReview(ctx context.Context, sess *session.Session, u transport.Update, eventID string) error {
	if eventID == "" {
		return santa.ErrEventNotFound
	}
	e, _, err := b.reviewable(ctx, eventID, u.UserID)
	if err != nil {
		return err
	}
	sess.Focus(session.StateWriteReview, e.ID)
	b.Notifier.Text(ctx, u.ChatID, texts.WriteReview(b.receivedTitle(ctx, e, u.UserID), b.Settings.MinReviewWords))
	return nil
}

func (b *Bot) writeReview(ctx context.Context, sess *session.Session, u transport.Update) error {
	if words := len(strings.Fields(u.Text)); words < b.Settings.MinReviewWords {
		return fmt.Errorf("%w: %d words (%d characters)", santa.ErrReviewTooShort, words, utf8.RuneCountInString(u.Text))
	}
	e, _, err := b.reviewable(ctx, sess.EventID, u.UserID)
	if err != nil {
		return err
	}
	if err := b.Repo.UpdateParticipantStatus(ctx, e.ID, u.UserID, santa.StatusCompleted); err != nil {
		return err
	}
	dest := e.Destination()
	b.Notifier.Text(ctx, dest, texts.ReviewHeader(e.Name))
	if e.Options.Enabled(santa.OptionAnonymousReviews, false) {
		b.Notifier.Copy(ctx, u.Ref(), dest)
	} else {
		b.Notifier.Forward(ctx, u.Ref(), dest)
	}
	b.log().Info("review posted", zap.String("event_id", e.ID), zap.Int64("user_id", u.UserID))
	sess.Reset()
	b.Notifier.Text(ctx, u.ChatID, texts.WriteReviewOK)
	return nil
}
