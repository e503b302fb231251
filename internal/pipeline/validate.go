package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrSourceValidation: the raw signal input is structurally unusable.
	ErrSourceValidation = errors.New("source validation failed")
	// ErrEnrichedValidation: the merge output is structurally unusable.
	ErrEnrichedValidation = errors.New("enriched validation failed")
	// ErrNoValidSignals: every enriched row failed the per-row filter.
	ErrNoValidSignals = errors.New("no valid signals after validation")
)

// ValidateSources is the pre-merge gate. An empty signal set or a first
// record missing required fields signals a structural problem with the data
// source and aborts the whole run; per-row data quality is handled later.
func ValidateSources(signals []SignalRecord) error {
	if len(signals) == 0 {
		return fmt.Errorf("%w: signals table yielded no rows", ErrSourceValidation)
	}
	first := signals[0]
	var missing []string
	if first.Ticker == "" {
		missing = append(missing, "Ticker")
	}
	if first.Decision == "" {
		missing = append(missing, "Decision")
	}
	if first.Timestamp == "" {
		missing = append(missing, "Timestamp")
	}
	if first.SellTarget == nil {
		missing = append(missing, "SellTarget")
	}
	if first.Confidence == nil {
		missing = append(missing, "Confidence")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: first signal record missing %v", ErrSourceValidation, missing)
	}
	return nil
}

// ValidateEnriched is the post-merge gate: same structural check against the
// enriched shape, distinguishing "no usable output" from "some bad rows".
func ValidateEnriched(rows []EnrichedRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: merge produced no rows", ErrEnrichedValidation)
	}
	first := rows[0]
	var missing []string
	if first.Ticker == "" {
		missing = append(missing, "Ticker")
	}
	if first.Date == "" {
		missing = append(missing, "Date")
	}
	if first.Decision == "" {
		missing = append(missing, "Decision")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: first enriched row missing %v", ErrEnrichedValidation, missing)
	}
	return nil
}

// FilterRows applies the per-row range/type checks after the post-merge gate
// has passed. Failing rows are dropped and counted, never fatal here; the
// orchestrator treats an empty result as ErrNoValidSignals.
func FilterRows(rows []EnrichedRow, logger *zap.Logger) (kept []EnrichedRow, rejected int) {
	kept = make([]EnrichedRow, 0, len(rows))
	for _, row := range rows {
		if reason, ok := rejectReason(row); ok {
			rejected++
			if logger != nil {
				logger.Debug("enriched row rejected",
					zap.String("ticker", row.Ticker),
					zap.String("reason", reason),
				)
			}
			continue
		}
		kept = append(kept, row)
	}
	return kept, rejected
}

func rejectReason(row EnrichedRow) (string, bool) {
	if row.CurrentPrice != nil && !row.CurrentPrice.IsPositive() {
		return "current price not positive", true
	}
	if row.SellTarget != nil && !row.SellTarget.IsPositive() {
		return "sell target not positive", true
	}
	// Confidence is a required validated field: a null here means the value
	// never survived the source read, so the row cannot be trusted.
	if row.Confidence == nil || *row.Confidence < 0 || *row.Confidence > 100 {
		return "confidence outside [0,100]", true
	}
	if row.Timestamp != "" {
		if _, ok := parseTimestamp(row.Timestamp); !ok {
			return "unparsable timestamp", true
		}
	}
	return "", false
}
