package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"animesanta/internal/restriction"
	"animesanta/internal/santa"
	"animesanta/internal/texts"
	"animesanta/internal/transport"
)

func (b *Bot) listEvents(ctx context.Context, u transport.Update) error {
	events, err := b.Repo.ListEventsByCreator(ctx, u.UserID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		b.Notifier.Text(ctx, u.ChatID, texts.NoEvents())
		return nil
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, texts.EventLine(e.Name, e.ID))
	}
	b.Notifier.Text(ctx, u.ChatID, strings.Join(lines, "\n"))
	return nil
}

// eventSummary shows the creator an event and, while registration is open,
// re-sends every request still waiting for a decision.
func (b *Bot) eventSummary(ctx context.Context, u transport.Update, eventID string) error {
	e, err := b.Repo.FindEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("%w: %s", santa.ErrEventNotFound, eventID)
	}
	if e.CreatorID != u.UserID {
		return santa.ErrNotCreator
	}
	counts, err := b.Repo.CountParticipantsByStatus(ctx, e.ID)
	if err != nil {
		return err
	}
	byName := make(map[string]int64, len(counts))
	for st, n := range counts {
		byName[string(st)] = n
	}
	layout := b.Settings.DateLayout
	phase := e.Phase(b.today())
	b.Notifier.Text(ctx, u.ChatID, texts.EventSummary(texts.Summary{
		Name:  e.Name,
		Phase: string(phase),
		Dates: [3]string{
			santa.FormatDate(e.RegistrationEnd, layout),
			santa.FormatDate(e.SelectionDeadline, layout),
			santa.FormatDate(e.ReviewDeadline, layout),
		},
		Counts:       byName,
		Restrictions: restriction.Format(e.Restrictions),
		JoinLink:     b.JoinLink(e.ID),
	}))
	if phase != santa.PhaseRegistration {
		return nil
	}
	waiting, err := b.Repo.ListParticipants(ctx, e.ID, santa.StatusWaiting)
	if err != nil {
		return err
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].CreatedAt.Before(waiting[j].CreatedAt) })
	for i := range waiting {
		b.requestApproval(ctx, e, &waiting[i])
	}
	return nil
}
