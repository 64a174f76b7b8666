// analytics.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package analytics turns raw download and review timestamps into
// contiguous time series and rating histograms.
package analytics

import (
	"strings"
	"time"

	"github.com/localnerve/gamestore/internal/types"
)

// Interval is the bucket width of a series.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// DateLayout is the accepted format of start and end.
const DateLayout = "2006-01-02"

// ParseInterval defaults to daily and rejects unknown names.
func ParseInterval(s string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(s))) {
	case "", Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	}
	return "", types.FieldError("interval", "Must be one of daily, weekly, monthly.")
}

// Range is a half-open [Start, End) window. Nil bounds are open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// ParseRange reads YYYY-MM-DD bounds. end names the last included day,
// so the exclusive bound is the following midnight.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if s := strings.TrimSpace(start); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, time.UTC)
		if err != nil {
			return Range{}, types.FieldError("start", "Invalid date format. Use YYYY-MM-DD.")
		}
		r.Start = &t
	}
	if e := strings.TrimSpace(end); e != "" {
		t, err := time.ParseInLocation(DateLayout, e, time.UTC)
		if err != nil {
			return Range{}, types.FieldError("end", "Invalid date format. Use YYYY-MM-DD.")
		}
		t = t.AddDate(0, 0, 1)
		r.End = &t
	}
	if r.Start != nil && r.End != nil && !r.Start.Before(*r.End) {
		return Range{}, types.FieldError("start", "Start date must not be after end date.")
	}
	return r, nil
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && !t.Before(*r.End) {
		return false
	}
	return true
}

// BucketStart truncates t (in UTC) to the start of its bucket. Weeks start
// on Monday, matching ISO weeks.
func BucketStart(t time.Time, interval Interval) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch interval {
	case Weekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func next(b time.Time, interval Interval) time.Time {
	switch interval {
	case Weekly:
		return b.AddDate(0, 0, 7)
	case Monthly:
		return b.AddDate(0, 1, 0)
	}
	return b.AddDate(0, 0, 1)
}

// Buckets lists every bucket start from the bucket containing first to the
// bucket containing last, inclusive.
func Buckets(first, last time.Time, interval Interval) []time.Time {
	if last.Before(first) {
		return nil
	}
	end := BucketStart(last, interval)
	var out []time.Time
	for b := BucketStart(first, interval); !b.After(end); b = next(b, interval) {
		out = append(out, b)
	}
	return out
}

// bounds picks the first and last instants the series must cover: the
// explicit range bounds, or the earliest/latest sample when a bound is open.
func bounds(r Range, times []time.Time) (time.Time, time.Time, bool) {
	var first, last time.Time
	have := false
	for _, t := range times {
		if !have || t.Before(first) {
			first = t
		}
		if !have || t.After(last) {
			last = t
		}
		have = true
	}
	if r.Start != nil {
		first = *r.Start
	}
	if r.End != nil {
		last = r.End.Add(-time.Nanosecond)
	}
	if r.Start != nil && r.End != nil {
		return first, last, true
	}
	return first, last, have
}

// Period formats a bucket start.
func Period(t time.Time) string {
	return t.Format(DateLayout)
}
