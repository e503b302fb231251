package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signalarchive/internal/config"
	"signalarchive/internal/models"
	"signalarchive/internal/pipeline"
	"signalarchive/internal/repository"
	"signalarchive/internal/tabular"
)

type memSource struct {
	tables map[string]*tabular.Table
}

func (m *memSource) ReadAll(_ context.Context, name string) (*tabular.Table, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tabular.ErrTableNotFound, name)
	}
	return t, nil
}

var testSources = config.SourcesConfig{
	Signals:     "Signals",
	Technical:   "TechnicalData",
	Fundamental: "FundamentalData",
	Sentiment:   "MarketSentiment",
	TickerNames: "TickerNames",
}

// testTables builds the five source tables with the given signal rows and a
// fixed technical/fundamental/sentiment backdrop.
func testTables(signalRows [][]string) map[string]*tabular.Table {
	return map[string]*tabular.Table{
		"Signals": {
			Name:    "Signals",
			Headers: []string{"Timestamp", "Ticker", "Decision", "SellTarget", "Confidence", "RiskLevel", "Summary"},
			Rows:    signalRows,
		},
		"TechnicalData": {
			Name:    "TechnicalData",
			Headers: []string{"Ticker", "CurrentPrice", "RSI", "MA50"},
			Rows: [][]string{
				{"AAPL", "200", "55", "195.2"},
				{"MSFT", "400", "60", "390.0"},
			},
		},
		"FundamentalData": {
			Name:    "FundamentalData",
			Headers: []string{"Ticker", "Sector", "PERatio"},
			Rows: [][]string{
				{"AAPL", "Technology", "28.4"},
				{"MSFT", "Technology", "32.1"},
			},
		},
		"MarketSentiment": {
			Name:    "MarketSentiment",
			Headers: []string{"MarketMood", "MacroStrength", "VolatilityLevel", "Summary", "Date"},
			Rows: [][]string{
				{"Bullish", "Strong", "Low", "calm week", "2025-01-02"},
			},
		},
		"TickerNames": {
			Name:    "TickerNames",
			Headers: []string{"Ticker", "CompanyName"},
			Rows: [][]string{
				{"AAPL", "Apple Inc."},
				{"MSFT", "Microsoft Corporation"},
			},
		},
	}
}

func newTestPipeline(repo *stubRepo, tables map[string]*tabular.Table) *PipelineService {
	return &PipelineService{
		Repo:      repo,
		Source:    &memSource{tables: tables},
		Ledger:    &ErrorLedgerService{Repo: repo, Logger: zap.NewNop()},
		Flags:     &SystemSettingsService{Repo: repo},
		Logger:    zap.NewNop(),
		Sources:   testSources,
		Pipeline:  config.PipelineConfig{LeaseTTL: 30 * time.Minute},
		Retention: config.RetentionConfig{Days: 30},
	}
}

func TestRunArchivesLatestSignalPerTicker(t *testing.T) {
	repo := newStubRepo()
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T09:00:00Z", "AAPL", "BUY", "240", "80", "Medium", "early call"},
		{"2025-01-02T15:00:00Z", "AAPL", "BUY", "250", "85", "Medium", "late call"},
	}))

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SignalsRead != 2 || result.Duplicates != 1 || result.Archived != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(repo.archive) != 1 {
		t.Fatalf("expected 1 archived row, got %d", len(repo.archive))
	}
	row := repo.archive[0]
	if row.SellTarget == nil || row.SellTarget.String() != "250" {
		t.Fatalf("expected latest signal archived, got target %v", row.SellTarget)
	}
	if row.CompanyName != "Apple Inc." {
		t.Fatalf("unexpected company name: %q", row.CompanyName)
	}
	if row.Upside == nil || !row.Upside.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected upside: %v", row.Upside)
	}
	if row.MarketMood != "Bullish" {
		t.Fatalf("sentiment not attached: %q", row.MarketMood)
	}
	if len(repo.runs) != 1 || repo.runs[0].Status != models.RunStatusSucceeded {
		t.Fatalf("expected one succeeded run, got %+v", repo.runs)
	}
}

func TestRunDropsBadRowsButSucceeds(t *testing.T) {
	repo := newStubRepo()
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
		{"2025-01-02T10:00:00Z", "MSFT", "BUY", "450", "150", "Low", ""},
	}))

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Rejected != 1 || result.Archived != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(repo.archive) != 1 || repo.archive[0].Ticker != "AAPL" {
		t.Fatalf("wrong row archived: %+v", repo.archive)
	}
	if len(repo.errs) != 0 {
		t.Fatalf("partial rejection must not hit the error ledger: %+v", repo.errs)
	}
}

func TestRunMissingEnrichmentLeavesNulls(t *testing.T) {
	repo := newStubRepo()
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "GOOGL", "BUY", "200", "70", "Medium", ""},
	}))

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Archived != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	row := repo.archive[0]
	if row.CurrentPrice != nil || row.Upside != nil || row.Sector != "" {
		t.Fatalf("expected null enrichment fields, got %+v", row)
	}
	if row.CompanyName != "GOOGL" {
		t.Fatalf("expected ticker fallback, got %q", row.CompanyName)
	}
}

func TestRunSweepsExpiredArchiveRows(t *testing.T) {
	repo := newStubRepo()
	now := time.Now().UTC()
	repo.archive = []models.ArchiveRow{
		{ID: 1, Date: now.AddDate(0, 0, -45).Format("2006-01-02"), Ticker: "OLD", Decision: "BUY"},
		{ID: 2, Date: now.AddDate(0, 0, -10).Format("2006-01-02"), Ticker: "FRESH", Decision: "BUY"},
	}
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
	}))

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Swept != 1 {
		t.Fatalf("expected 1 swept, got %d", result.Swept)
	}
	for _, row := range repo.archive {
		if row.Ticker == "OLD" {
			t.Fatal("expired row survived the sweep")
		}
	}

	// Nothing new expired, so a second sweep is a no-op.
	swept, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected idempotent sweep, got %d", swept)
	}
}

func TestRunSweepDisabledBySetting(t *testing.T) {
	repo := newStubRepo()
	now := time.Now().UTC()
	repo.archive = []models.ArchiveRow{
		{ID: 1, Date: now.AddDate(0, 0, -45).Format("2006-01-02"), Ticker: "OLD", Decision: "BUY"},
	}
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
	}))
	if err := svc.Flags.SetEnabled(context.Background(), FeatureRetentionSweep, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Swept != 0 {
		t.Fatalf("sweep ran despite disabled switch: %+v", result)
	}
	found := false
	for _, row := range repo.archive {
		if row.Ticker == "OLD" {
			found = true
		}
	}
	if !found {
		t.Fatal("expired row was swept with the switch off")
	}
}

func TestRunRefusedWhenPipelineSwitchOff(t *testing.T) {
	repo := newStubRepo()
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
	}))
	if err := svc.Flags.SetEnabled(context.Background(), FeaturePipeline, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	// Manual and scheduled triggers observe the switch identically.
	for _, trigger := range []string{TriggerManual, TriggerCron} {
		_, err := svc.Run(context.Background(), trigger)
		if !errors.Is(err, ErrPipelineDisabled) {
			t.Fatalf("trigger %s: expected ErrPipelineDisabled, got %v", trigger, err)
		}
	}
	if len(repo.runs) != 0 {
		t.Fatalf("disabled pipeline must not create run records, got %d", len(repo.runs))
	}
	if len(repo.archive) != 0 {
		t.Fatalf("disabled pipeline must archive nothing, got %d", len(repo.archive))
	}
}

func TestRunFailsWhenEveryRowRejected(t *testing.T) {
	repo := newStubRepo()
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "150", "Medium", ""},
	}))

	_, err := svc.Run(context.Background(), TriggerManual)
	if !errors.Is(err, pipeline.ErrNoValidSignals) {
		t.Fatalf("expected ErrNoValidSignals, got %v", err)
	}
	if len(repo.archive) != 0 {
		t.Fatalf("failed run must archive nothing, got %d rows", len(repo.archive))
	}
	if len(repo.errs) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(repo.errs))
	}
	if len(repo.runs) != 1 || repo.runs[0].Status != models.RunStatusFailed {
		t.Fatalf("expected failed run record, got %+v", repo.runs)
	}
}

func TestRunFailsWhenSignalsTableMissing(t *testing.T) {
	repo := newStubRepo()
	tables := testTables(nil)
	delete(tables, "Signals")
	svc := newTestPipeline(repo, tables)

	_, err := svc.Run(context.Background(), TriggerManual)
	if !errors.Is(err, tabular.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound, got %v", err)
	}
	if len(repo.errs) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(repo.errs))
	}
}

func TestRunBlockedByActiveLease(t *testing.T) {
	repo := newStubRepo()
	repo.runs = []models.PipelineRun{{
		ID:        99,
		Trigger:   TriggerCron,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC().Add(-time.Minute),
	}}
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
	}))

	_, err := svc.Run(context.Background(), TriggerManual)
	if !errors.Is(err, repository.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(repo.runs) != 1 {
		t.Fatalf("blocked trigger must not create a run, got %d", len(repo.runs))
	}
	if len(repo.archive) != 0 {
		t.Fatalf("blocked trigger must archive nothing, got %d", len(repo.archive))
	}
}

func TestRunProceedsPastStaleLease(t *testing.T) {
	repo := newStubRepo()
	repo.runs = []models.PipelineRun{{
		ID:        99,
		Trigger:   TriggerCron,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC().Add(-2 * time.Hour),
	}}
	svc := newTestPipeline(repo, testTables([][]string{
		{"2025-01-02T10:00:00Z", "AAPL", "BUY", "250", "85", "Medium", ""},
	}))

	result, err := svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Archived != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}
