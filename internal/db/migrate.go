package db

import (
	"signalarchive/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.SheetTab{},
		&models.SheetRow{},
		&models.ArchiveRow{},
		&models.ErrorRecord{},
		&models.PipelineRun{},
		&models.SystemSetting{},
	)
}
