package models

import (
	"time"

	"gorm.io/datatypes"
)

type SystemSetting struct {
	Key       string         `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
