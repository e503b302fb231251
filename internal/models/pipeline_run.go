package models

import (
	"time"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun doubles as the run-overlap lease and the per-run audit record.
// A row in status "running" whose started_at is within the lease TTL blocks
// any other trigger from starting a second run.
type PipelineRun struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Trigger    string     `gorm:"type:varchar(10);not null" json:"trigger"`
	RunDate    string     `gorm:"type:varchar(10);not null;index" json:"run_date"`
	Status     string     `gorm:"type:varchar(10);not null;index" json:"status"`
	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	SignalsRead int `gorm:"not null;default:0" json:"signals_read"`
	Duplicates  int `gorm:"not null;default:0" json:"duplicates"`
	Rejected    int `gorm:"not null;default:0" json:"rejected"`
	Archived    int `gorm:"not null;default:0" json:"archived"`
	Swept       int `gorm:"not null;default:0" json:"swept"`

	Error *string `gorm:"type:text" json:"error"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
