// Package restriction parses textual rule sets into predicates and checks
// titles against them.
package restriction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"animesanta/internal/santa"
)

var lineRe = regexp.MustCompile(`^(score|episodes|duration|fullDuration)\s*(<|>)\s*(\d+(?:\.\d+)?)$`)

// Parse turns rule text (one rule per line) into restrictions. Blank lines are
// ignored. Any malformed line rejects the whole set, and so does a text with no
// rules at all: the result is nil in both cases.
func Parse(text string) []santa.Restriction {
	var out []santa.Restriction
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return nil
		}
		v, err := decimal.NewFromString(m[3])
		if err != nil {
			return nil
		}
		out = append(out, santa.Restriction{
			Kind:     santa.RestrictionKind(m[1]),
			Operator: santa.Operator(m[2]),
			Value:    v,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Format renders restrictions back to the text form accepted by Parse.
func Format(rules []santa.Restriction) string {
	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}

const StatusReleased = "released"

// Title is the metadata the validator needs about one external title.
type Title struct {
	ID       string
	Name     string
	Episodes int
	Status   string
	Score    decimal.Decimal
	// Duration is minutes per episode.
	Duration int
}

// FullDuration is the total watch time in minutes.
func (t Title) FullDuration() decimal.Decimal {
	return decimal.NewFromInt(int64(t.Duration)).Mul(decimal.NewFromInt(int64(t.Episodes)))
}

func (t Title) value(kind santa.RestrictionKind) (decimal.Decimal, bool) {
	switch kind {
	case santa.KindScore:
		return t.Score, true
	case santa.KindEpisodes:
		return decimal.NewFromInt(int64(t.Episodes)), true
	case santa.KindDuration:
		return decimal.NewFromInt(int64(t.Duration)), true
	case santa.KindFullDuration:
		return t.FullDuration(), true
	}
	return decimal.Zero, false
}

// MetadataService looks titles up. A missing title is (nil, nil).
type MetadataService interface {
	Lookup(ctx context.Context, titleID string) (*Title, error)
}

// Evaluate is a strict AND over rules. An empty rule set always passes.
func Evaluate(title Title, rules []santa.Restriction) (bool, *santa.Restriction) {
	for i := range rules {
		actual, ok := title.value(rules[i].Kind)
		if !ok || !rules[i].Holds(actual) {
			return false, &rules[i]
		}
	}
	return true, nil
}

type Validator struct {
	Metadata MetadataService
	Logger   *zap.Logger
}

// Check fetches titleID and evaluates rules against it. Every failure,
// including a failed lookup, is reported as santa.ErrRestrictionFailed.
func (v *Validator) Check(ctx context.Context, titleID string, rules []santa.Restriction) (*Title, error) {
	if v == nil || v.Metadata == nil {
		return nil, fmt.Errorf("%w: metadata service unavailable", santa.ErrRestrictionFailed)
	}
	title, err := v.Metadata.Lookup(ctx, titleID)
	if err != nil {
		if v.Logger != nil {
			v.Logger.Warn("title lookup failed", zap.String("title_id", titleID), zap.Error(err))
		}
		return nil, fmt.Errorf("%w: lookup: %v", santa.ErrRestrictionFailed, err)
	}
	if title == nil {
		return nil, fmt.Errorf("%w: %w", santa.ErrRestrictionFailed, santa.ErrTitleNotFound)
	}
	if title.Status != StatusReleased {
		return title, fmt.Errorf("%w: title status %q", santa.ErrRestrictionFailed, title.Status)
	}
	if ok, failed := Evaluate(*title, rules); !ok {
		return title, fmt.Errorf("%w: %s", santa.ErrRestrictionFailed, failed)
	}
	return title, nil
}
