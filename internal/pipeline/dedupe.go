package pipeline

// DedupeSignals collapses signals sharing a ticker to one record, keeping the
// one with the latest parsable timestamp. A record with an unparsable
// timestamp never beats one with a valid timestamp; on an exact timestamp tie
// the first occurrence wins. Output order is first-occurrence order; removed
// is the number of dropped records (for logging only).
func DedupeSignals(signals []SignalRecord) (unique []SignalRecord, removed int) {
	if len(signals) == 0 {
		return nil, 0
	}
	position := make(map[string]int, len(signals))
	unique = make([]SignalRecord, 0, len(signals))

	for _, sig := range signals {
		at, seen := position[sig.Ticker]
		if !seen {
			position[sig.Ticker] = len(unique)
			unique = append(unique, sig)
			continue
		}
		removed++
		kept := unique[at]
		keptTS, keptOK := parseTimestamp(kept.Timestamp)
		newTS, newOK := parseTimestamp(sig.Timestamp)
		if !newOK {
			continue
		}
		if !keptOK || newTS.After(keptTS) {
			unique[at] = sig
		}
	}
	return unique, removed
}
