package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"signalarchive/internal/config"
	"signalarchive/internal/models"
	"signalarchive/internal/pipeline"
	"signalarchive/internal/repository"
	"signalarchive/internal/tabular"
)

const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// ErrPipelineDisabled is returned when the pipeline feature switch is off.
// Both the scheduled and the manual trigger observe it the same way.
var ErrPipelineDisabled = errors.New("pipeline runs are disabled")

// RunResult summarizes one pipeline run for callers and the run audit trail.
type RunResult struct {
	RunID       uint64 `json:"run_id"`
	RunDate     string `json:"run_date"`
	SignalsRead int    `json:"signals_read"`
	Duplicates  int    `json:"duplicates"`
	Rejected    int    `json:"rejected"`
	Archived    int    `json:"archived"`
	Swept       int    `json:"swept"`
}

// PipelineService sequences one run: read sources → validate → dedupe →
// merge → validate → filter → archive → retention sweep. Fatal failures are
// recorded to the error ledger and returned to the caller; a failed run
// archives nothing.
type PipelineService struct {
	Repo      repository.Repository
	Source    tabular.Source
	Ledger    *ErrorLedgerService
	Flags     *SystemSettingsService
	Logger    *zap.Logger
	Sources   config.SourcesConfig
	Pipeline  config.PipelineConfig
	Retention config.RetentionConfig
}

func (s *PipelineService) Run(ctx context.Context, trigger string) (RunResult, error) {
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeaturePipeline, true) {
		return RunResult{}, ErrPipelineDisabled
	}
	now := time.Now().UTC()
	runDate := now.Format("2006-01-02")
	run := &models.PipelineRun{
		Trigger:   trigger,
		RunDate:   runDate,
		Status:    models.RunStatusRunning,
		StartedAt: now,
	}
	if err := s.Repo.AcquireRunLease(ctx, run, s.Pipeline.LeaseTTL); err != nil {
		if errors.Is(err, repository.ErrRunInProgress) && s.Logger != nil {
			s.Logger.Warn("pipeline trigger skipped, run in progress", zap.String("trigger", trigger))
		}
		return RunResult{}, err
	}

	result, err := s.runStages(ctx, run)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunStatusFailed
		msg := err.Error()
		run.Error = &msg
		s.Ledger.Record(ctx, msg, map[string]any{
			"trigger":  trigger,
			"run_date": runDate,
		})
	} else {
		run.Status = models.RunStatusSucceeded
	}
	if ferr := s.Repo.FinishRun(ctx, run); ferr != nil && s.Logger != nil {
		s.Logger.Warn("failed to persist run record", zap.Error(ferr))
	}
	if s.Pipeline.RunsKept > 0 {
		if _, perr := s.Repo.PruneRuns(ctx, s.Pipeline.RunsKept); perr != nil && s.Logger != nil {
			s.Logger.Warn("prune run history failed", zap.Error(perr))
		}
	}
	result.RunID = run.ID
	result.RunDate = runDate
	if err != nil {
		// Re-raise so the scheduler or HTTP caller observes the failure.
		return result, err
	}
	if s.Logger != nil {
		s.Logger.Info("pipeline run complete",
			zap.String("trigger", trigger),
			zap.String("run_date", runDate),
			zap.Int("signals_read", result.SignalsRead),
			zap.Int("duplicates", result.Duplicates),
			zap.Int("rejected", result.Rejected),
			zap.Int("archived", result.Archived),
			zap.Int("swept", result.Swept),
		)
	}
	return result, nil
}

func (s *PipelineService) runStages(ctx context.Context, run *models.PipelineRun) (RunResult, error) {
	var result RunResult

	signals, err := pipeline.ReadSignals(ctx, s.Source, s.Sources.Signals, s.Logger)
	if err != nil {
		return result, err
	}
	result.SignalsRead = len(signals)
	run.SignalsRead = len(signals)

	if err := pipeline.ValidateSources(signals); err != nil {
		return result, err
	}

	unique, removed := pipeline.DedupeSignals(signals)
	result.Duplicates = removed
	run.Duplicates = removed

	technical, err := pipeline.ReadTechnicals(ctx, s.Source, s.Sources.Technical, s.Logger)
	if err != nil {
		return result, err
	}
	fundamental, err := pipeline.ReadFundamentals(ctx, s.Source, s.Sources.Fundamental, s.Logger)
	if err != nil {
		return result, err
	}
	sentiment, err := pipeline.ReadSentiment(ctx, s.Source, s.Sources.Sentiment, s.Logger)
	if err != nil {
		return result, err
	}
	names, err := pipeline.ReadNameMap(ctx, s.Source, s.Sources.TickerNames, s.Logger)
	if err != nil {
		return result, err
	}

	rows := pipeline.Merge(unique, technical, fundamental, sentiment, names, run.RunDate)
	if err := pipeline.ValidateEnriched(rows); err != nil {
		return result, err
	}

	kept, rejected := pipeline.FilterRows(rows, s.Logger)
	result.Rejected = rejected
	run.Rejected = rejected
	if len(kept) == 0 {
		return result, pipeline.ErrNoValidSignals
	}

	items := make([]models.ArchiveRow, 0, len(kept))
	for _, row := range kept {
		items = append(items, toArchiveRow(row))
	}
	// One transaction per run: either every validated row lands or none do.
	if err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.InsertArchiveRowsTx(ctx, tx, items)
	}); err != nil {
		return result, err
	}
	result.Archived = len(items)
	run.Archived = len(items)

	if s.Flags == nil || s.Flags.IsEnabled(ctx, FeatureRetentionSweep, true) {
		swept, err := s.Sweep(ctx)
		if err != nil {
			return result, err
		}
		result.Swept = int(swept)
		run.Swept = int(swept)
	}
	return result, nil
}

// Sweep deletes archive rows dated strictly before today − retention window.
// The deletion is a single range statement, so sweeping twice with no new
// data is a no-op the second time.
func (s *PipelineService) Sweep(ctx context.Context) (int64, error) {
	days := s.Retention.Days
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	swept, err := s.Repo.DeleteArchiveRowsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 && s.Logger != nil {
		s.Logger.Info("retention sweep removed rows",
			zap.String("cutoff", cutoff),
			zap.Int64("rows", swept),
		)
	}
	return swept, nil
}

func toArchiveRow(row pipeline.EnrichedRow) models.ArchiveRow {
	return models.ArchiveRow{
		Date:      row.Date,
		Timestamp: row.Timestamp,
		Ticker:    row.Ticker,

		CompanyName:   row.CompanyName,
		Decision:      row.Decision,
		SellTarget:    row.SellTarget,
		TargetHorizon: row.TargetHorizon,
		Confidence:    row.Confidence,
		RiskLevel:     row.RiskLevel,
		Summary:       row.Summary,
		MacroMood:     row.MacroMood,
		TechScore:     row.TechScore,

		CurrentPrice:   row.CurrentPrice,
		Week52High:     row.Week52High,
		Week52Low:      row.Week52Low,
		RSI:            row.RSI,
		VolumeSpike:    row.VolumeSpike,
		MACD:           row.MACD,
		GapStatus:      row.GapStatus,
		MA50:           row.MA50,
		MA200:          row.MA200,
		ATR:            row.ATR,
		TechnicalScore: row.TechnicalScore,

		MarketCap:     row.MarketCap,
		PERatio:       row.PERatio,
		RevenueGrowth: row.RevenueGrowth,
		ProfitMargin:  row.ProfitMargin,
		ROE:           row.ROE,
		EPSGrowth:     row.EPSGrowth,
		DebtToEquity:  row.DebtToEquity,
		PEG:           row.PEG,
		EVEbitda:      row.EVEbitda,
		FCFShare:      row.FCFShare,
		Sector:        row.Sector,
		Industry:      row.Industry,
		CurrentRatio:  row.CurrentRatio,

		Upside: row.Upside,

		MarketMood:       row.MarketMood,
		MacroStrength:    row.MacroStrength,
		VolatilityLevel:  row.VolatilityLevel,
		SentimentSummary: row.SentimentSummary,
		SentimentDate:    row.SentimentDate,
	}
}
