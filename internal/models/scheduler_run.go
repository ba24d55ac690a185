package models

import (
	"time"

	"gorm.io/datatypes"
)

// SchedulerRun marks a calendar day whose sweeps were started. A run without
// CompletedAt was interrupted and may be claimed again.
type SchedulerRun struct {
	Day         time.Time      `gorm:"primaryKey;type:date"`
	StartedAt   time.Time      `gorm:"type:timestamptz;not null"`
	CompletedAt *time.Time     `gorm:"type:timestamptz"`
	StatsJSON   datatypes.JSON `gorm:"type:jsonb"`
}

func (SchedulerRun) TableName() string {
	return "santa_scheduler_runs"
}
