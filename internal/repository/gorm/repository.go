package gormrepository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"animesanta/internal/models"
	"animesanta/internal/repository"
	"animesanta/internal/santa"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- events -----------------------------------------------------------------

func (s *Store) CreateEvent(ctx context.Context, item *santa.Event) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	row, err := eventToRow(item)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	item.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) FindEvent(ctx context.Context, id string) (*santa.Event, error) {
	if s == nil || s.db == nil || id == "" {
		return nil, nil
	}
	var row models.Event
	err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e, err := eventFromRow(row)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListEventsByCreator(ctx context.Context, creatorID int64) ([]santa.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.Event
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("creator_id = ?", creatorID).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return eventsFromRows(rows)
}

func (s *Store) ListEventsOnDate(ctx context.Context, field repository.DateField, day time.Time) ([]santa.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if !field.Valid() {
		return nil, fmt.Errorf("unknown date field %q", field)
	}
	var rows []models.Event
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where(string(field)+" = ?", day).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return eventsFromRows(rows)
}

func (s *Store) SetPairing(ctx context.Context, eventID string, pairing map[int64]int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	if len(pairing) == 0 {
		return false, errors.New("empty pairing")
	}
	raw, err := json.Marshal(pairing)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Where("pairing IS NULL").
		Updates(map[string]any{
			"pairing":    datatypes.JSON(raw),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	existing, err := s.FindEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, santa.ErrEventNotFound
	}
	return false, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Event{}).Error
	})
}

// --- participants -----------------------------------------------------------

func (s *Store) CreateParticipant(ctx context.Context, item *santa.Participant) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	existing, err := s.FindParticipant(ctx, item.EventID, item.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return santa.ErrAlreadyRegistered
	}
	row, err := participantToRow(item)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return santa.ErrAlreadyRegistered
		}
		return err
	}
	item.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) FindParticipant(ctx context.Context, eventID string, userID int64) (*santa.Participant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return findParticipant(s.db.WithContext(ctx), eventID, userID)
}

func findParticipant(db *gorm.DB, eventID string, userID int64) (*santa.Participant, error) {
	var row models.Participant
	err := db.Model(&models.Participant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p, err := participantFromRow(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID string, statuses ...santa.Status) ([]santa.Participant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Participant{}).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		raw := make([]string, 0, len(statuses))
		for _, st := range statuses {
			raw = append(raw, string(st))
		}
		query = query.Where("status IN ?", raw)
	}
	var rows []models.Participant
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]santa.Participant, 0, len(rows))
	for _, row := range rows {
		p, err := participantFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) CountParticipantsByStatus(ctx context.Context, eventID string) (map[santa.Status]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Model(&models.Participant{}).
		Select("status, COUNT(*) AS n").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[santa.Status]int64, len(rows))
	for _, r := range rows {
		out[santa.Status(r.Status)] = r.N
	}
	return out, nil
}

func (s *Store) UpdateParticipantStatus(ctx context.Context, eventID string, userID int64, to santa.Status) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		current, err := findParticipant(tx, eventID, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return santa.ErrParticipantNotFound
		}
		if !santa.CanTransition(current.Status, to) {
			return fmt.Errorf("%w: %s -> %s", santa.ErrInvalidTransition, current.Status, to)
		}
		res := tx.Model(&models.Participant{}).
			Where("event_id = ? AND user_id = ?", eventID, userID).
			Where("status = ?", string(current.Status)).
			Updates(map[string]any{
				"status":     string(to),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: status changed concurrently", santa.ErrInvalidTransition)
		}
		return nil
	})
}

func (s *Store) SetChoice(ctx context.Context, eventID string, userID int64, choice santa.Choice) error {
	if s == nil || s.db == nil {
		return nil
	}
	if choice.TitleID == "" {
		return errors.New("empty choice")
	}
	res := s.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Where("status = ?", string(santa.StatusApproved)).
		Where("choice_title_id IS NULL").
		Updates(map[string]any{
			"choice_title_id": choice.TitleID,
			"choice_name":     choice.Name,
			"choice_link":     choice.Link,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	current, err := s.FindParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	switch {
	case current == nil:
		return santa.ErrParticipantNotFound
	case current.HasChoice():
		return santa.ErrChoiceAlreadySet
	default:
		return fmt.Errorf("%w: choice needs status %s, have %s", santa.ErrInvalidTransition, santa.StatusApproved, current.Status)
	}
}

// --- scheduler --------------------------------------------------------------

func (s *Store) ClaimRunDay(ctx context.Context, day time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	now := time.Now().UTC()
	row := models.SchedulerRun{Day: day, StartedAt: now}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	res = s.db.WithContext(ctx).
		Model(&models.SchedulerRun{}).
		Where("day = ? AND completed_at IS NULL", day).
		Update("started_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) RecordRunStats(ctx context.Context, day time.Time, stats map[string]int) error {
	if s == nil || s.db == nil {
		return nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.SchedulerRun{}).
		Where("day = ?", day).
		Updates(map[string]any{
			"stats_json":   datatypes.JSON(raw),
			"completed_at": time.Now().UTC(),
		}).Error
}

func eventsFromRows(rows []models.Event) ([]santa.Event, error) {
	out := make([]santa.Event, 0, len(rows))
	for _, row := range rows {
		e, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
