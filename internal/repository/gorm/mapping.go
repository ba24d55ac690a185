package gormrepository

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"animesanta/internal/models"
	"animesanta/internal/santa"
)

func eventToRow(e *santa.Event) (models.Event, error) {
	restrictions := e.Restrictions
	if restrictions == nil {
		restrictions = []santa.Restriction{}
	}
	rawRestrictions, err := json.Marshal(restrictions)
	if err != nil {
		return models.Event{}, fmt.Errorf("encode restrictions: %w", err)
	}
	rawOptions, err := encodeOptions(e.Options)
	if err != nil {
		return models.Event{}, err
	}
	row := models.Event{
		ID:                e.ID,
		CreatorID:         e.CreatorID,
		Name:              e.Name,
		RegistrationEnd:   e.RegistrationEnd,
		SelectionDeadline: e.SelectionDeadline,
		ReviewDeadline:    e.ReviewDeadline,
		RulesChatID:       e.Rules.ChatID,
		RulesMessageID:    e.Rules.MessageID,
		Restrictions:      datatypes.JSON(rawRestrictions),
		ChatID:            e.Chat,
		Options:           rawOptions,
		CreatedAt:         e.CreatedAt,
	}
	if len(e.Pairing) > 0 {
		raw, err := json.Marshal(e.Pairing)
		if err != nil {
			return models.Event{}, fmt.Errorf("encode pairing: %w", err)
		}
		row.Pairing = datatypes.JSON(raw)
	}
	return row, nil
}

func eventFromRow(row models.Event) (santa.Event, error) {
	e := santa.Event{
		ID:                row.ID,
		CreatorID:         row.CreatorID,
		Name:              row.Name,
		RegistrationEnd:   asDate(row.RegistrationEnd),
		SelectionDeadline: asDate(row.SelectionDeadline),
		ReviewDeadline:    asDate(row.ReviewDeadline),
		Rules:             santa.MessageRef{ChatID: row.RulesChatID, MessageID: row.RulesMessageID},
		Chat:              row.ChatID,
		CreatedAt:         row.CreatedAt,
	}
	if len(row.Restrictions) > 0 {
		if err := json.Unmarshal(row.Restrictions, &e.Restrictions); err != nil {
			return santa.Event{}, fmt.Errorf("decode restrictions of %s: %w", row.ID, err)
		}
	}
	opts, err := decodeOptions(row.Options)
	if err != nil {
		return santa.Event{}, fmt.Errorf("decode options of %s: %w", row.ID, err)
	}
	e.Options = opts
	if len(row.Pairing) > 0 && string(row.Pairing) != "null" {
		if err := json.Unmarshal(row.Pairing, &e.Pairing); err != nil {
			return santa.Event{}, fmt.Errorf("decode pairing of %s: %w", row.ID, err)
		}
	}
	return e, nil
}

func participantToRow(p *santa.Participant) (models.Participant, error) {
	rawOptions, err := encodeOptions(p.Options)
	if err != nil {
		return models.Participant{}, err
	}
	row := models.Participant{
		EventID:       p.EventID,
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		Status:        string(p.Status),
		InfoChatID:    p.Info.ChatID,
		InfoMessageID: p.Info.MessageID,
		Options:       rawOptions,
		CreatedAt:     p.CreatedAt,
	}
	if p.Choice != nil {
		row.ChoiceTitleID = &p.Choice.TitleID
		row.ChoiceName = &p.Choice.Name
		row.ChoiceLink = &p.Choice.Link
	}
	return row, nil
}

func participantFromRow(row models.Participant) (santa.Participant, error) {
	status, err := santa.ParseStatus(row.Status)
	if err != nil {
		return santa.Participant{}, fmt.Errorf("participant %s/%d: %w", row.EventID, row.UserID, err)
	}
	p := santa.Participant{
		EventID:     row.EventID,
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Status:      status,
		Info:        santa.MessageRef{ChatID: row.InfoChatID, MessageID: row.InfoMessageID},
		CreatedAt:   row.CreatedAt,
	}
	if row.ChoiceTitleID != nil && *row.ChoiceTitleID != "" {
		p.Choice = &santa.Choice{
			TitleID: *row.ChoiceTitleID,
			Name:    deref(row.ChoiceName),
			Link:    deref(row.ChoiceLink),
		}
	}
	opts, err := decodeOptions(row.Options)
	if err != nil {
		return santa.Participant{}, fmt.Errorf("participant %s/%d options: %w", row.EventID, row.UserID, err)
	}
	p.Options = opts
	return p, nil
}

func encodeOptions(opts santa.Options) (datatypes.JSON, error) {
	if opts == nil {
		opts = santa.Options{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func decodeOptions(raw datatypes.JSON) (santa.Options, error) {
	opts := santa.Options{}
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// asDate drops whatever zone the driver attached to a date column.
func asDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return santa.Date(y, m, d)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
