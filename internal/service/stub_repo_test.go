package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"signalarchive/internal/models"
	"signalarchive/internal/repository"
)

// stubRepo is an in-memory repository.Repository for service tests. Sheet
// storage is left inert; tests feed tabular data through memSource instead.
type stubRepo struct {
	mu       sync.Mutex
	archive  []models.ArchiveRow
	errs     []models.ErrorRecord
	runs     []models.PipelineRun
	settings map[string]models.SystemSetting
	nextID   uint64
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{settings: make(map[string]models.SystemSetting)}
}

func (s *stubRepo) InTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) InsertArchiveRowsTx(_ context.Context, _ *gorm.DB, items []models.ArchiveRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, item := range items {
		s.nextID++
		item.ID = s.nextID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		s.archive = append(s.archive, item)
	}
	return nil
}

func (s *stubRepo) ListArchiveRows(context.Context) ([]models.ArchiveRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ArchiveRow, len(s.archive))
	copy(out, s.archive)
	return out, nil
}

func (s *stubRepo) CountArchiveRows(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.archive)), nil
}

func (s *stubRepo) LatestArchiveCreatedAt(context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for i := range s.archive {
		if latest == nil || s.archive[i].CreatedAt.After(*latest) {
			t := s.archive[i].CreatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *stubRepo) DeleteArchiveRowsBefore(_ context.Context, date string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.archive[:0]
	var removed int64
	for _, row := range s.archive {
		if row.Date < date {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.archive = kept
	return removed, nil
}

func (s *stubRepo) InsertErrorRecord(_ context.Context, item *models.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item.ID = s.nextID
	s.errs = append(s.errs, *item)
	return nil
}

func (s *stubRepo) ListErrorRecords(_ context.Context, _ int) ([]models.ErrorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ErrorRecord, len(s.errs))
	copy(out, s.errs)
	return out, nil
}

func (s *stubRepo) AcquireRunLease(_ context.Context, run *models.PipelineRun, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cutoff := run.StartedAt.Add(-ttl)
	for _, existing := range s.runs {
		if existing.Status == models.RunStatusRunning && existing.StartedAt.After(cutoff) {
			return repository.ErrRunInProgress
		}
	}
	s.nextID++
	run.ID = s.nextID
	s.runs = append(s.runs, *run)
	return nil
}

func (s *stubRepo) FinishRun(_ context.Context, run *models.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	return nil
}

func (s *stubRepo) ListRuns(_ context.Context, _ int) ([]models.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PipelineRun, len(s.runs))
	copy(out, s.runs)
	return out, nil
}

func (s *stubRepo) PruneRuns(_ context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep <= 0 || len(s.runs) <= keep {
		return 0, nil
	}
	sort.Slice(s.runs, func(i, j int) bool {
		return s.runs[i].StartedAt.After(s.runs[j].StartedAt)
	})
	removed := int64(len(s.runs) - keep)
	s.runs = s.runs[:keep]
	return removed, nil
}

func (s *stubRepo) GetSheetTab(context.Context, string) (*models.SheetTab, error) {
	return nil, nil
}

func (s *stubRepo) ListSheetTabs(context.Context) ([]models.SheetTab, error) {
	return nil, nil
}

func (s *stubRepo) ListSheetRows(context.Context, string) ([]models.SheetRow, error) {
	return nil, nil
}

func (s *stubRepo) UpsertSheetTabTx(context.Context, *gorm.DB, *models.SheetTab) error {
	return nil
}

func (s *stubRepo) InsertSheetRowsTx(context.Context, *gorm.DB, []models.SheetRow) error {
	return nil
}

func (s *stubRepo) DeleteSheetRowsTx(context.Context, *gorm.DB, string, []int) error {
	return nil
}

func (s *stubRepo) DeleteAllSheetRowsTx(context.Context, *gorm.DB, string) error {
	return nil
}

func (s *stubRepo) MaxSheetRowPosition(context.Context, string) (int, error) {
	return 0, nil
}

func (s *stubRepo) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubRepo) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[item.Key] = *item
	return nil
}

func (s *stubRepo) ListSystemSettings(context.Context) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SystemSetting, 0, len(s.settings))
	for _, item := range s.settings {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
