// Package texts holds every user-facing message.
package texts

import (
	"fmt"
	"strings"
)

const Welcome = `Hi! This bot runs a Secret Santa style event, except that instead of gifts you recommend anime titles to each other.

Commands:
/new - create a new event
/my - list your events
/cancel - cancel the current operation at any time`

const (
	Cancelled = "Cancelled. Nothing was saved."

	CreateName = "Let's create an event. How should it be called? (up to 64 characters)"

	CreateStartDate = `A Secret Anime Santa has three stages:
1. Registration
2. Choosing titles
3. Watching and writing reviews

First pick the day registration closes. Pairs are drawn on that day and the second stage begins.

Send the date as DD.MM.YYYY:`

	CreateSelectDate = `Great! Now pick the day by which everyone must choose a title.

Send the date as DD.MM.YYYY:`

	CreateDeadlineDate = `Last date: the deadline for watching the title and writing a review.

Send the date as DD.MM.YYYY:`

	CreateChat = `Reviews are usually posted to a group chat. Pick a chat with the button, send its numeric id, or skip with /next to receive reviews privately. Don't forget to add me to that chat.`

	CreateRules = `Now write the rules. This message is shown to everyone who joins, so mention the restrictions too.`

	CreateRestrictions = `Restrictions in text are nice, checking them automatically is nicer. Send one restriction per line, for example:
score>7
episodes<26
duration>20
fullDuration<600

Or skip with /next.`

	CreateRestrictionsOK = "Restrictions added!"
	CreateNoRestrictions = "No restrictions then."

	CreateOptions = `Finishing touches. Send options as key=value (for example anonymous_reviews=yes) or finish with /next.`

	ParticipateInfo = `Tell your future Santa about yourself: what you have already watched, what you like and what you'd rather avoid. Your next message will be shown to them.`

	ParticipateOptions = `Finishing touches. Send options as key=value (for example notify_reminders=no) or send the request with /next.`

	ParticipateSent = "Your request was sent! Now wait for the organizer to approve it."

	SelectTitleOK = "Title chosen! It will be delivered to your recipient when the time comes :3"

	WriteReviewOK = "Review sent :3"

	OptionSet = "Option saved."

	NothingToSkip = "There is nothing to skip at this step."

	UnknownCommand = "Unknown command. Send /start to see what I can do."

	GenericFailure = "Something went wrong. Please start over."

	Approved = "Approved"
	Rejected = "Rejected"
)

func SelectTitle(recipient string) string {
	return fmt.Sprintf("Your recipient: %s. Reply with a link to the title you recommend for them.", recipient)
}

func WriteReview(link string, minWords int) string {
	return fmt.Sprintf("Your title: %s. Send your review (at least %d words) as one message.", link, minWords)
}

func CreateFinish(link string) string {
	return fmt.Sprintf("Hooray, the event is ready! Join link: %s", link)
}

func JoinRequest(name, event string) string {
	return fmt.Sprintf("%s wants to join %q. Their introduction is above.", name, event)
}

func Decision(event string, approved bool) string {
	if approved {
		return fmt.Sprintf("Your request to join %q was approved!", event)
	}
	return fmt.Sprintf("Your request to join %q was rejected.", event)
}

func Assignment(event, recipient, eventID, deadline string) string {
	return fmt.Sprintf("Pairs for %q are drawn! Your recipient is %s, their introduction follows. Choose a title with /choose%s before %s.", event, recipient, eventID, deadline)
}

func TooFewParticipants(event string) string {
	return fmt.Sprintf("Registration for %q closed with fewer than two approved participants, so the event was cancelled.", event)
}

func SelectionReminder(event, eventID string) string {
	return fmt.Sprintf("The selection deadline for %q has passed and you haven't chosen a title yet. Do it now with /choose%s.", event, eventID)
}

func ChoiceDelivered(event, title, link, deadline, eventID string) string {
	return fmt.Sprintf("Your Santa in %q recommends: %s %s\nWatch it and send a review with /review%s before %s.", event, title, link, eventID, deadline)
}

func DeadlineReport(event string, pending int) string {
	if pending == 0 {
		return fmt.Sprintf("%q is over, everyone wrote a review!", event)
	}
	return fmt.Sprintf("%q is over. %d participant(s) did not write a review.", event, pending)
}

func ReviewHeader(event string) string {
	return fmt.Sprintf("New review in %q:", event)
}

// EventLine is one row in the /my list.
func EventLine(name, eventID string) string {
	return fmt.Sprintf("%s: /my%s", name, eventID)
}

func NoEvents() string {
	return "You haven't created any events yet. Start with /new."
}

type Summary struct {
	Name         string
	Phase        string
	Dates        [3]string
	Counts       map[string]int64
	Restrictions string
	JoinLink     string
}

func EventSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nStage: %s\n", s.Name, s.Phase)
	fmt.Fprintf(&b, "Registration until: %s\nSelection until: %s\nReviews until: %s\n", s.Dates[0], s.Dates[1], s.Dates[2])
	for _, st := range []string{"waiting", "approved", "rejected", "watching", "completed"} {
		if n := s.Counts[st]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", st, n)
		}
	}
	if s.Restrictions != "" {
		fmt.Fprintf(&b, "Restrictions:\n%s\n", s.Restrictions)
	}
	fmt.Fprintf(&b, "Join link: %s", s.JoinLink)
	return b.String()
}
