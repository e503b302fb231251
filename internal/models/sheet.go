package models

import (
	"time"

	"gorm.io/datatypes"
)

// SheetTab is the header row of one named tabular source.
type SheetTab struct {
	Name      string         `gorm:"primaryKey;type:varchar(100)" json:"name"`
	Headers   datatypes.JSON `gorm:"not null" json:"headers"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SheetTab) TableName() string {
	return "sheet_tabs"
}

// SheetRow is one data row of a tabular source, ordered by Position within
// its tab. Cells holds the row as a JSON array of strings.
type SheetRow struct {
	ID       uint64         `gorm:"primaryKey;autoIncrement" json:"-"`
	Tab      string         `gorm:"type:varchar(100);not null;index:idx_sheet_rows_tab_pos,priority:1" json:"tab"`
	Position int            `gorm:"not null;index:idx_sheet_rows_tab_pos,priority:2" json:"position"`
	Cells    datatypes.JSON `gorm:"not null" json:"cells"`
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}
