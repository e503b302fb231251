package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signalarchive/internal/tabular"
)

// columnMap resolves header names to positions by exact string match.
type columnMap struct {
	index map[string]int
}

func newColumnMap(headers []string) columnMap {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return columnMap{index: index}
}

// warnMissing logs each required column that is absent from the header.
// Missing columns do not abort the reader; affected fields read as null.
func (m columnMap) warnMissing(logger *zap.Logger, table string, required ...string) {
	if logger == nil {
		return
	}
	for _, col := range required {
		if _, ok := m.index[col]; !ok {
			logger.Warn("required column missing from source table",
				zap.String("table", table),
				zap.String("column", col),
			)
		}
	}
}

func (m columnMap) cell(row []string, name string) string {
	i, ok := m.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (m columnMap) decimalCell(row []string, name string) *decimal.Decimal {
	s := m.cell(row, name)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func (m columnMap) floatCell(row []string, name string) *float64 {
	s := m.cell(row, name)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ReadSignals reads the signals table and keeps only BUY decisions with a
// non-empty ticker. It is the only reader that narrows rows by business rule.
func ReadSignals(ctx context.Context, src tabular.Source, table string, logger *zap.Logger) ([]SignalRecord, error) {
	t, err := src.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := newColumnMap(t.Headers)
	cols.warnMissing(logger, table, "Timestamp", "Ticker", "Decision", "SellTarget", "Confidence")

	var out []SignalRecord
	for _, row := range t.Rows {
		ticker := cols.cell(row, "Ticker")
		decision := cols.cell(row, "Decision")
		if ticker == "" || !strings.EqualFold(decision, "BUY") {
			continue
		}
		out = append(out, SignalRecord{
			Timestamp:     cols.cell(row, "Timestamp"),
			Ticker:        ticker,
			Decision:      decision,
			SellTarget:    cols.decimalCell(row, "SellTarget"),
			TargetHorizon: cols.cell(row, "TargetHorizon"),
			Confidence:    cols.floatCell(row, "Confidence"),
			RiskLevel:     cols.cell(row, "RiskLevel"),
			Summary:       cols.cell(row, "Summary"),
			MacroMood:     cols.cell(row, "MacroMood"),
			TechScore:     cols.floatCell(row, "TechScore"),
		})
	}
	return out, nil
}

// ReadTechnicals returns technical indicators keyed by ticker. All rows with
// a non-empty ticker pass through; a repeated ticker keeps the later row.
func ReadTechnicals(ctx context.Context, src tabular.Source, table string, logger *zap.Logger) (map[string]TechnicalRecord, error) {
	t, err := src.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := newColumnMap(t.Headers)
	cols.warnMissing(logger, table, "Ticker", "CurrentPrice")

	out := make(map[string]TechnicalRecord, len(t.Rows))
	for _, row := range t.Rows {
		ticker := cols.cell(row, "Ticker")
		if ticker == "" {
			continue
		}
		out[ticker] = TechnicalRecord{
			Ticker:         ticker,
			CurrentPrice:   cols.decimalCell(row, "CurrentPrice"),
			Week52High:     cols.decimalCell(row, "Week52High"),
			Week52Low:      cols.decimalCell(row, "Week52Low"),
			RSI:            cols.floatCell(row, "RSI"),
			VolumeSpike:    cols.cell(row, "VolumeSpike"),
			MACD:           cols.floatCell(row, "MACD"),
			GapStatus:      cols.cell(row, "GapStatus"),
			MA50:           cols.decimalCell(row, "MA50"),
			MA200:          cols.decimalCell(row, "MA200"),
			ATR:            cols.floatCell(row, "ATR"),
			TechnicalScore: cols.floatCell(row, "TechnicalScore"),
		}
	}
	return out, nil
}

func ReadFundamentals(ctx context.Context, src tabular.Source, table string, logger *zap.Logger) (map[string]FundamentalRecord, error) {
	t, err := src.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := newColumnMap(t.Headers)
	cols.warnMissing(logger, table, "Ticker")

	out := make(map[string]FundamentalRecord, len(t.Rows))
	for _, row := range t.Rows {
		ticker := cols.cell(row, "Ticker")
		if ticker == "" {
			continue
		}
		out[ticker] = FundamentalRecord{
			Ticker:        ticker,
			MarketCap:     cols.cell(row, "MarketCap"),
			PERatio:       cols.floatCell(row, "PERatio"),
			RevenueGrowth: cols.floatCell(row, "RevenueGrowth"),
			ProfitMargin:  cols.floatCell(row, "ProfitMargin"),
			ROE:           cols.floatCell(row, "ROE"),
			EPSGrowth:     cols.floatCell(row, "EPSGrowth"),
			DebtToEquity:  cols.floatCell(row, "DebtToEquity"),
			PEG:           cols.floatCell(row, "PEG"),
			EVEbitda:      cols.floatCell(row, "EVEbitda"),
			FCFShare:      cols.floatCell(row, "FCFShare"),
			Sector:        cols.cell(row, "Sector"),
			Industry:      cols.cell(row, "Industry"),
			CurrentRatio:  cols.floatCell(row, "CurrentRatio"),
		}
	}
	return out, nil
}

// ReadSentiment returns the single macro-sentiment record for the run: the
// last row of the table. "Most recent" is positional here, matching how the
// upstream writer appends; nil when the table has no rows.
func ReadSentiment(ctx context.Context, src tabular.Source, table string, logger *zap.Logger) (*SentimentRecord, error) {
	t, err := src.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := newColumnMap(t.Headers)
	cols.warnMissing(logger, table, "MarketMood")

	if len(t.Rows) == 0 {
		return nil, nil
	}
	row := t.Rows[len(t.Rows)-1]
	return &SentimentRecord{
		MarketMood:      cols.cell(row, "MarketMood"),
		MacroStrength:   cols.cell(row, "MacroStrength"),
		VolatilityLevel: cols.cell(row, "VolatilityLevel"),
		Summary:         cols.cell(row, "Summary"),
		Date:            cols.cell(row, "Date"),
	}, nil
}

// ReadNameMap builds the ticker → display-name mapping. Rows with an empty
// ticker or empty name are skipped silently.
func ReadNameMap(ctx context.Context, src tabular.Source, table string, logger *zap.Logger) (map[string]string, error) {
	t, err := src.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := newColumnMap(t.Headers)
	cols.warnMissing(logger, table, "Ticker", "CompanyName")

	out := make(map[string]string, len(t.Rows))
	for _, row := range t.Rows {
		ticker := cols.cell(row, "Ticker")
		name := cols.cell(row, "CompanyName")
		if ticker == "" || name == "" {
			continue
		}
		out[ticker] = name
	}
	return out, nil
}
