package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalarchive/internal/models"
	"signalarchive/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Archive ----------------------------------------------------------------

func (s *Store) InsertArchiveRowsTx(ctx context.Context, tx *gorm.DB, items []models.ArchiveRow) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	return tx.CreateInBatches(items, 200).Error
}

func (s *Store) ListArchiveRows(ctx context.Context) ([]models.ArchiveRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ArchiveRow
	if err := s.db.WithContext(ctx).
		Model(&models.ArchiveRow{}).
		Order("date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountArchiveRows(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ArchiveRow{}).Count(&n).Error
	return n, err
}

func (s *Store) LatestArchiveCreatedAt(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ArchiveRow
	err := s.db.WithContext(ctx).
		Model(&models.ArchiveRow{}).
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item.CreatedAt, nil
}

// DeleteArchiveRowsBefore removes every row strictly older than date in one
// statement. Date strings are YYYY-MM-DD, so lexicographic compare is date
// compare on both drivers.
func (s *Store) DeleteArchiveRowsBefore(ctx context.Context, date string) (int64, error) {
	if s == nil || s.db == nil || strings.TrimSpace(date) == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&models.ArchiveRow{})
	return res.RowsAffected, res.Error
}

// --- Error ledger -----------------------------------------------------------

func (s *Store) InsertErrorRecord(ctx context.Context, item *models.ErrorRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListErrorRecords(ctx context.Context, limit int) ([]models.ErrorRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.ErrorRecord
	if err := s.db.WithContext(ctx).
		Model(&models.ErrorRecord{}).
		Order("timestamp desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Pipeline runs ----------------------------------------------------------

func (s *Store) AcquireRunLease(ctx context.Context, run *models.PipelineRun, ttl time.Duration) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cutoff := run.StartedAt.Add(-ttl)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.PipelineRun{}).
			Where("status = ?", models.RunStatusRunning).
			Where("started_at > ?", cutoff).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return repository.ErrRunInProgress
		}
		return tx.Create(run).Error
	})
}

func (s *Store) FinishRun(ctx context.Context, run *models.PipelineRun) error {
	if s == nil || s.db == nil || run == nil || run.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.PipelineRun
	if err := s.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Order("started_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// PruneRuns drops audit records beyond the newest keep entries.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s == nil || s.db == nil || keep <= 0 {
		return 0, nil
	}
	var ids []uint64
	if err := s.db.WithContext(ctx).
		Model(&models.PipelineRun{}).
		Order("started_at desc").
		Limit(keep).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) < keep {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("id NOT IN ?", ids).
		Delete(&models.PipelineRun{})
	return res.RowsAffected, res.Error
}

// --- Sheets -----------------------------------------------------------------

func (s *Store) GetSheetTab(ctx context.Context, name string) (*models.SheetTab, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SheetTab
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSheetTabs(ctx context.Context) ([]models.SheetTab, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SheetTab
	if err := s.db.WithContext(ctx).
		Model(&models.SheetTab{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSheetRows(ctx context.Context, tab string) ([]models.SheetRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SheetRow
	if err := s.db.WithContext(ctx).
		Model(&models.SheetRow{}).
		Where("tab = ?", tab).
		Order("position asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertSheetTabTx(ctx context.Context, tx *gorm.DB, item *models.SheetTab) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"headers", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) InsertSheetRowsTx(ctx context.Context, tx *gorm.DB, items []models.SheetRow) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	return tx.CreateInBatches(items, 500).Error
}

func (s *Store) DeleteSheetRowsTx(ctx context.Context, tx *gorm.DB, tab string, positions []int) error {
	if s == nil || s.db == nil || len(positions) == 0 {
		return nil
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	return tx.
		Where("tab = ?", tab).
		Where("position IN ?", positions).
		Delete(&models.SheetRow{}).Error
}

func (s *Store) DeleteAllSheetRowsTx(ctx context.Context, tx *gorm.DB, tab string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if tx == nil {
		tx = s.db.WithContext(ctx)
	}
	return tx.
		Where("tab = ?", tab).
		Delete(&models.SheetRow{}).Error
}

func (s *Store) MaxSheetRowPosition(ctx context.Context, tab string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var max *int
	err := s.db.WithContext(ctx).
		Model(&models.SheetRow{}).
		Where("tab = ?", tab).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// --- Settings ---------------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	if err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Order("key asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
