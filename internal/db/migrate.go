package db

import (
	"animesanta/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Event{},
		&models.Participant{},
		&models.SchedulerRun{},
	)
}
