package santa

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// OptionAnonymousReviews copies reviews to the event chat instead of
	// forwarding them, hiding the author.
	OptionAnonymousReviews = "anonymous_reviews"
	// OptionNotifyReminders lets a participant opt out of the selection reminder.
	OptionNotifyReminders = "notify_reminders"
)

var optionKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

type Options map[string]bool

func (o Options) Enabled(key string, def bool) bool {
	if o == nil {
		return def
	}
	v, ok := o[key]
	if !ok {
		return def
	}
	return v
}

func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// ParseOption parses one `key=value` submission.
func ParseOption(text string) (string, bool, error) {
	key, raw, ok := strings.Cut(strings.TrimSpace(text), "=")
	if !ok {
		return "", false, fmt.Errorf("%w: want key=value", ErrInvalidOption)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if !optionKeyRe.MatchString(key) {
		return "", false, fmt.Errorf("%w: bad key %q", ErrInvalidOption, key)
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "yes", "on":
		return key, true, nil
	case "no", "off":
		return key, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return "", false, fmt.Errorf("%w: bad value %q", ErrInvalidOption, raw)
	}
	return key, v, nil
}
