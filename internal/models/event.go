package models

import (
	"time"

	"gorm.io/datatypes"
)

type Event struct {
	ID                string         `gorm:"primaryKey;type:text;comment:generated event id"`
	CreatorID         int64          `gorm:"not null;index;comment:creator chat user id"`
	Name              string         `gorm:"type:text;not null"`
	RegistrationEnd   time.Time      `gorm:"type:date;not null;index"`
	SelectionDeadline time.Time      `gorm:"type:date;not null;index"`
	ReviewDeadline    time.Time      `gorm:"type:date;not null;index"`
	RulesChatID       int64          `gorm:"not null"`
	RulesMessageID    int            `gorm:"not null"`
	Restrictions      datatypes.JSON `gorm:"type:jsonb;not null;comment:ordered restriction list"`
	ChatID            *int64         `gorm:"comment:review destination, creator when null"`
	Options           datatypes.JSON `gorm:"type:jsonb;not null"`
	Pairing           datatypes.JSON `gorm:"type:jsonb;comment:giver to recipient map, null until paired"`
	CreatedAt         time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Event) TableName() string {
	return "santa_events"
}
