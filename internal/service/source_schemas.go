package service

import (
	"context"
	"fmt"

	"signalarchive/internal/config"
	"signalarchive/internal/tabular"
)

// sourceSchemas maps each configured source table to the header it is
// created with when absent. Existing tables keep whatever header the
// upstream writer last pushed.
func sourceSchemas(src config.SourcesConfig) map[string][]string {
	return map[string][]string{
		src.Signals: {
			"Timestamp", "Ticker", "Decision", "SellTarget", "TargetHorizon",
			"Confidence", "RiskLevel", "Summary", "MacroMood", "TechScore",
		},
		src.Technical: {
			"Ticker", "CurrentPrice", "Week52High", "Week52Low", "RSI",
			"VolumeSpike", "MACD", "GapStatus", "MA50", "MA200", "ATR",
			"TechnicalScore",
		},
		src.Fundamental: {
			"Ticker", "MarketCap", "PERatio", "RevenueGrowth", "ProfitMargin",
			"ROE", "EPSGrowth", "DebtToEquity", "PEG", "EVEbitda", "FCFShare",
			"Sector", "Industry", "CurrentRatio",
		},
		src.Sentiment: {
			"MarketMood", "MacroStrength", "VolatilityLevel", "Summary", "Date",
		},
		src.TickerNames: {
			"Ticker", "CompanyName",
		},
	}
}

// EnsureSourceSchemas creates any missing source table with its canonical
// header so the first pipeline run after a fresh deploy fails on empty data,
// not on a missing table.
func EnsureSourceSchemas(ctx context.Context, sink tabular.Sink, src config.SourcesConfig) error {
	if sink == nil {
		return nil
	}
	for name, headers := range sourceSchemas(src) {
		if name == "" {
			continue
		}
		if err := sink.EnsureSchema(ctx, name, headers); err != nil {
			return fmt.Errorf("ensure schema for %s: %w", name, err)
		}
	}
	return nil
}
