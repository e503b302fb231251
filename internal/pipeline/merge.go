package pipeline

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Merge joins each deduplicated signal with its technical, fundamental and
// name-map records by ticker and attaches the run-wide sentiment record and
// run date. Absent joins leave fields null; a missing display name falls back
// to the ticker symbol. Merge is a pure function of its inputs.
func Merge(
	signals []SignalRecord,
	technical map[string]TechnicalRecord,
	fundamental map[string]FundamentalRecord,
	sentiment *SentimentRecord,
	names map[string]string,
	runDate string,
) []EnrichedRow {
	rows := make([]EnrichedRow, 0, len(signals))
	for _, sig := range signals {
		row := EnrichedRow{
			Date:      runDate,
			Timestamp: sig.Timestamp,
			Ticker:    sig.Ticker,

			CompanyName:   sig.Ticker,
			Decision:      sig.Decision,
			SellTarget:    sig.SellTarget,
			TargetHorizon: sig.TargetHorizon,
			Confidence:    sig.Confidence,
			RiskLevel:     sig.RiskLevel,
			Summary:       sig.Summary,
			MacroMood:     sig.MacroMood,
			TechScore:     sig.TechScore,
		}
		if name, ok := names[sig.Ticker]; ok {
			row.CompanyName = name
		}
		if tech, ok := technical[sig.Ticker]; ok {
			row.CurrentPrice = tech.CurrentPrice
			row.Week52High = tech.Week52High
			row.Week52Low = tech.Week52Low
			row.RSI = tech.RSI
			row.VolumeSpike = tech.VolumeSpike
			row.MACD = tech.MACD
			row.GapStatus = tech.GapStatus
			row.MA50 = tech.MA50
			row.MA200 = tech.MA200
			row.ATR = tech.ATR
			row.TechnicalScore = tech.TechnicalScore
		}
		if fund, ok := fundamental[sig.Ticker]; ok {
			row.MarketCap = fund.MarketCap
			row.PERatio = fund.PERatio
			row.RevenueGrowth = fund.RevenueGrowth
			row.ProfitMargin = fund.ProfitMargin
			row.ROE = fund.ROE
			row.EPSGrowth = fund.EPSGrowth
			row.DebtToEquity = fund.DebtToEquity
			row.PEG = fund.PEG
			row.EVEbitda = fund.EVEbitda
			row.FCFShare = fund.FCFShare
			row.Sector = fund.Sector
			row.Industry = fund.Industry
			row.CurrentRatio = fund.CurrentRatio
		}
		if sentiment != nil {
			row.MarketMood = sentiment.MarketMood
			row.MacroStrength = sentiment.MacroStrength
			row.VolatilityLevel = sentiment.VolatilityLevel
			row.SentimentSummary = sentiment.Summary
			row.SentimentDate = sentiment.Date
		}
		row.Upside = computeUpside(sig.SellTarget, row.CurrentPrice)
		rows = append(rows, row)
	}
	return rows
}

// computeUpside returns (sellTarget − currentPrice) / currentPrice × 100
// rounded to one decimal, or nil when either input is missing or the price
// is zero.
func computeUpside(sellTarget, currentPrice *decimal.Decimal) *decimal.Decimal {
	if sellTarget == nil || currentPrice == nil || currentPrice.IsZero() {
		return nil
	}
	upside := sellTarget.Sub(*currentPrice).
		Div(*currentPrice).
		Mul(hundred).
		Round(1)
	return &upside
}
