package scan

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type HistoryEntry struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
}

var legacyTimeOfDay = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)

var legacyDateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

// DecodeLegacyDispensedTime rebuilds a dispensing timestamp from the old
// time-of-day encoding. The date comes from base, normally the validation time.
// Full datetimes written by even older rows are accepted as-is.
func DecodeLegacyDispensedTime(raw string, base time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if legacyTimeOfDay.MatchString(s) {
		parts := strings.Split(s, ":")
		h, _ := strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		sec, _ := strconv.Atoi(parts[2])
		y, mo, d := base.Date()
		return time.Date(y, mo, d, h, m, sec, 0, base.Location()), true
	}

	for _, layout := range legacyDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, base.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DispensedTime returns when the record was dispensed, decoding legacy rows
// against the validation date (or now when that is missing too).
func (r *Record) DispensedTime(now time.Time) (time.Time, bool) {
	if r.DispensedAt != nil {
		return *r.DispensedAt, true
	}
	base := now
	if r.ValidatedAt != nil {
		base = *r.ValidatedAt
	}
	return DecodeLegacyDispensedTime(r.LegacyDispensedTime, base)
}

// HistoryFor fans records out into one entry per transition performed by actor,
// newest first. Legacy dispensing values that cannot be decoded are returned
// in skipped.
func HistoryFor(records []*Record, actor string, now time.Time) (entries []HistoryEntry, skipped []string) {
	entries = make([]HistoryEntry, 0, len(records)*2)

	for _, rec := range records {
		if rec.ValidatedAt != nil && rec.ValidatedBy != nil && *rec.ValidatedBy == actor {
			entries = append(entries, newEntry(rec.Code, ModeValidation, *rec.ValidatedAt, actor))
		}

		if rec.DispensedBy == nil || *rec.DispensedBy != actor || !rec.IsDispensed() {
			continue
		}
		at, ok := rec.DispensedTime(now)
		if !ok {
			skipped = append(skipped, rec.Code)
			continue
		}
		entries = append(entries, newEntry(rec.Code, ModeDispensing, at, actor))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, skipped
}

func newEntry(code string, mode Mode, at time.Time, actor string) HistoryEntry {
	return HistoryEntry{
		ID:        fmt.Sprintf("%s-%s-%d", code, mode, at.UnixMilli()),
		Code:      code,
		Mode:      mode,
		Timestamp: at.UTC(),
		User:      actor,
	}
}
