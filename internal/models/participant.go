package models

import (
	"time"

	"gorm.io/datatypes"
)

// Participant is unique per (event, user).
type Participant struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement"`
	EventID       string         `gorm:"type:text;not null;uniqueIndex:idx_participant_event_user"`
	UserID        int64          `gorm:"not null;uniqueIndex:idx_participant_event_user;index"`
	DisplayName   string         `gorm:"type:text;not null;default:''"`
	Status        string         `gorm:"type:varchar(16);not null;index"`
	InfoChatID    int64          `gorm:"not null"`
	InfoMessageID int            `gorm:"not null"`
	ChoiceTitleID *string        `gorm:"type:text"`
	ChoiceName    *string        `gorm:"type:text"`
	ChoiceLink    *string        `gorm:"type:text"`
	Options       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"type:timestamptz;autoUpdateTime"`

	Event *Event `gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Participant) TableName() string {
	return "santa_participants"
}
