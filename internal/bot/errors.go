package bot

import (
	"errors"
	"fmt"

	"animesanta/internal/santa"
	"animesanta/internal/texts"
)

// errorText picks the message shown to a user for err.
func (b *Bot) errorText(err error) string {
	switch {
	case errors.Is(err, santa.ErrDateParse):
		return "That doesn't look like DD.MM.YYYY. Try again..."
	case errors.Is(err, santa.ErrDateRange):
		return fmt.Sprintf("Something is off with the date: it must be %d to %d days after the previous one.",
			b.Settings.Gaps.MinDays, b.Settings.Gaps.MaxDays)
	case errors.Is(err, santa.ErrRestrictionParse):
		return "Couldn't parse the restrictions, try again..."
	case errors.Is(err, santa.ErrLinkCount):
		return "Send exactly one link to an anime on Shikimori."
	case errors.Is(err, santa.ErrRestrictionFailed):
		return "This title doesn't satisfy the event restrictions or isn't released yet. Pick another one."
	case errors.Is(err, santa.ErrReviewTooShort):
		return fmt.Sprintf("The review is too short: at least %d words, please.", b.Settings.MinReviewWords)
	case errors.Is(err, santa.ErrMalformedAction):
		return "This button doesn't work any more."
	case errors.Is(err, santa.ErrInvalidOption):
		return "Options look like key=value, for example anonymous_reviews=yes."
	case errors.Is(err, santa.ErrInvalidName):
		return fmt.Sprintf("The name must be 1 to %d characters.", santa.MaxNameLength)
	case errors.Is(err, santa.ErrInvalidChat):
		return "Pick a chat with the button, send its numeric id, or skip with /next."
	case errors.Is(err, santa.ErrEventNotFound):
		return "Event not found."
	case errors.Is(err, santa.ErrParticipantNotFound):
		return "Participant not found."
	case errors.Is(err, santa.ErrEventAlreadyStarted):
		return "Registration for this event is closed."
	case errors.Is(err, santa.ErrAlreadyRegistered):
		return "You have already sent a request to this event."
	case errors.Is(err, santa.ErrEventFinished):
		return "This event is over."
	case errors.Is(err, santa.ErrSelectionClosed):
		return "You can't choose a title in this event."
	case errors.Is(err, santa.ErrNotPaired):
		return "Pairs for this event haven't been drawn yet."
	case errors.Is(err, santa.ErrChoiceAlreadySet):
		return "You have already chosen a title."
	case errors.Is(err, santa.ErrNotCreator):
		return "Only the organizer can do that."
	case errors.Is(err, santa.ErrInvalidTransition):
		return "That isn't possible at this stage."
	}
	return texts.GenericFailure
}
