package santa

import "errors"

// Input errors: the user is re-prompted and the session stays where it was.
var (
	ErrDateParse         = errors.New("date parse error")
	ErrDateRange         = errors.New("date out of allowed range")
	ErrRestrictionParse  = errors.New("restrictions could not be parsed")
	ErrLinkCount         = errors.New("exactly one title link is required")
	ErrRestrictionFailed = errors.New("title does not satisfy restrictions")
	ErrReviewTooShort    = errors.New("review is too short")
	ErrMalformedAction   = errors.New("malformed action")
	ErrInvalidOption     = errors.New("invalid option")
	ErrInvalidName       = errors.New("invalid event name")
	ErrInvalidChat       = errors.New("invalid chat reference")
)

// Lookup errors: surfaced as a generic failure and the session is reset.
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrTitleNotFound       = errors.New("title not found")
	ErrEventAlreadyStarted = errors.New("event already started")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrEventFinished       = errors.New("event finished")
	ErrSelectionClosed     = errors.New("selection is not open")
	ErrNotPaired           = errors.New("event is not paired yet")
	ErrChoiceAlreadySet    = errors.New("choice already set")
	ErrNotCreator          = errors.New("only the creator can do this")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// ErrInvalidEvent is returned by construction-time checks on Event.
var ErrInvalidEvent = errors.New("invalid event")

type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindLookup
)

var inputErrors = []error{
	ErrDateParse,
	ErrDateRange,
	ErrRestrictionParse,
	ErrLinkCount,
	ErrRestrictionFailed,
	ErrReviewTooShort,
	ErrMalformedAction,
	ErrInvalidOption,
	ErrInvalidName,
	ErrInvalidChat,
}

var lookupErrors = []error{
	ErrEventNotFound,
	ErrParticipantNotFound,
	ErrTitleNotFound,
	ErrEventAlreadyStarted,
	ErrAlreadyRegistered,
	ErrEventFinished,
	ErrSelectionClosed,
	ErrNotPaired,
	ErrChoiceAlreadySet,
	ErrNotCreator,
	ErrInvalidTransition,
}

// Classify tells the conversation layer how to recover from err.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return KindInput
		}
	}
	for _, target := range lookupErrors {
		if errors.Is(err, target) {
			return KindLookup
		}
	}
	return KindInternal
}
