package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"signalarchive/internal/models"
)

// ErrRunInProgress is returned by AcquireRunLease when another pipeline run
// holds the lease.
var ErrRunInProgress = errors.New("pipeline run already in progress")

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Archive.
	InsertArchiveRowsTx(ctx context.Context, tx *gorm.DB, items []models.ArchiveRow) error
	ListArchiveRows(ctx context.Context) ([]models.ArchiveRow, error)
	CountArchiveRows(ctx context.Context) (int64, error)
	LatestArchiveCreatedAt(ctx context.Context) (*time.Time, error)
	DeleteArchiveRowsBefore(ctx context.Context, date string) (int64, error)

	// Error ledger.
	InsertErrorRecord(ctx context.Context, item *models.ErrorRecord) error
	ListErrorRecords(ctx context.Context, limit int) ([]models.ErrorRecord, error)

	// Pipeline runs and the run lease.
	AcquireRunLease(ctx context.Context, run *models.PipelineRun, ttl time.Duration) error
	FinishRun(ctx context.Context, run *models.PipelineRun) error
	ListRuns(ctx context.Context, limit int) ([]models.PipelineRun, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// Tabular source sheets.
	GetSheetTab(ctx context.Context, name string) (*models.SheetTab, error)
	ListSheetTabs(ctx context.Context) ([]models.SheetTab, error)
	ListSheetRows(ctx context.Context, tab string) ([]models.SheetRow, error)
	UpsertSheetTabTx(ctx context.Context, tx *gorm.DB, item *models.SheetTab) error
	InsertSheetRowsTx(ctx context.Context, tx *gorm.DB, items []models.SheetRow) error
	DeleteSheetRowsTx(ctx context.Context, tx *gorm.DB, tab string, positions []int) error
	DeleteAllSheetRowsTx(ctx context.Context, tx *gorm.DB, tab string) error
	MaxSheetRowPosition(ctx context.Context, tab string) (int, error)

	// Settings.
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}
