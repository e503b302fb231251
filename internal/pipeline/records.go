// Package pipeline holds the pure synchronization/merge logic of the daily
// run: typed source readers, latest-wins deduplication, the join/enrichment
// step, and the validation gates. Nothing in here touches storage beyond the
// tabular.Source it is handed.
package pipeline

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignalRecord is one BUY decision read from the signals table.
// Timestamp keeps the raw source string; parsing happens where ordering or
// validity matters.
type SignalRecord struct {
	Timestamp     string
	Ticker        string
	Decision      string
	SellTarget    *decimal.Decimal
	TargetHorizon string
	Confidence    *float64
	RiskLevel     string
	Summary       string
	MacroMood     string
	TechScore     *float64
}

type TechnicalRecord struct {
	Ticker         string
	CurrentPrice   *decimal.Decimal
	Week52High     *decimal.Decimal
	Week52Low      *decimal.Decimal
	RSI            *float64
	VolumeSpike    string
	MACD           *float64
	GapStatus      string
	MA50           *decimal.Decimal
	MA200          *decimal.Decimal
	ATR            *float64
	TechnicalScore *float64
}

type FundamentalRecord struct {
	Ticker        string
	MarketCap     string
	PERatio       *float64
	RevenueGrowth *float64
	ProfitMargin  *float64
	ROE           *float64
	EPSGrowth     *float64
	DebtToEquity  *float64
	PEG           *float64
	EVEbitda      *float64
	FCFShare      *float64
	Sector        string
	Industry      string
	CurrentRatio  *float64
}

// SentimentRecord describes macro conditions shared by every signal of a run.
type SentimentRecord struct {
	MarketMood      string
	MacroStrength   string
	VolatilityLevel string
	Summary         string
	Date            string
}

// EnrichedRow is the merge output for one ticker: the signal plus joined
// technical, fundamental and sentiment fields, the run date, and the computed
// upside percentage.
type EnrichedRow struct {
	Date      string
	Timestamp string
	Ticker    string

	CompanyName   string
	Decision      string
	SellTarget    *decimal.Decimal
	TargetHorizon string
	Confidence    *float64
	RiskLevel     string
	Summary       string
	MacroMood     string
	TechScore     *float64

	CurrentPrice   *decimal.Decimal
	Week52High     *decimal.Decimal
	Week52Low      *decimal.Decimal
	RSI            *float64
	VolumeSpike    string
	MACD           *float64
	GapStatus      string
	MA50           *decimal.Decimal
	MA200          *decimal.Decimal
	ATR            *float64
	TechnicalScore *float64

	MarketCap     string
	PERatio       *float64
	RevenueGrowth *float64
	ProfitMargin  *float64
	ROE           *float64
	EPSGrowth     *float64
	DebtToEquity  *float64
	PEG           *float64
	EVEbitda      *float64
	FCFShare      *float64
	Sector        string
	Industry      string
	CurrentRatio  *float64

	Upside *decimal.Decimal

	MarketMood       string
	MacroStrength    string
	VolatilityLevel  string
	SentimentSummary string
	SentimentDate    string
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts the timestamp formats the upstream writers have been
// observed to emit. ok is false for empty or unrecognized input.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
