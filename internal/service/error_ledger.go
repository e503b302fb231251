package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"signalarchive/internal/models"
	"signalarchive/internal/repository"
)

// ErrorLedgerService appends pipeline-level failures to the durable error
// ledger. Its own failure path never propagates: a ledger write error is
// logged locally and swallowed, so logging can never crash a run.
type ErrorLedgerService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *ErrorLedgerService) Record(ctx context.Context, message string, details map[string]any) {
	if s == nil || s.Repo == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte(`{}`)
	}
	rec := &models.ErrorRecord{
		Timestamp: time.Now().UTC(),
		Error:     message,
		Details:   datatypes.JSON(raw),
	}
	if err := s.Repo.InsertErrorRecord(ctx, rec); err != nil && s.Logger != nil {
		s.Logger.Warn("error ledger write failed", zap.Error(err))
	}
}
