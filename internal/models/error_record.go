package models

import (
	"time"

	"gorm.io/datatypes"
)

// ErrorRecord is one row of the append-only pipeline error ledger.
type ErrorRecord struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"-"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Error     string         `gorm:"type:text;not null" json:"error"`
	Details   datatypes.JSON `json:"details"`
}

func (ErrorRecord) TableName() string {
	return "error_records"
}
