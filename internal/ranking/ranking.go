// ranking.go
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

// Package ranking defines the curated game orderings as plain data.
//
// A Spec fixes the filter, the ordering and the limit of one view. The SQL
// executor in services renders a Spec into a query; Less and Accepts are
// the same definition evaluated in memory, so both can be checked against
// each other without a database.
package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// View names a home section.
type View string

const (
	MostPopular  View = "most_popular"
	NewReleases  View = "new_releases"
	TopRated     View = "top_rated"
	TrendingNow  View = "trending_now"
	HiddenGems   View = "hidden_gems"
	DefaultOrder View = "default"
)

const (
	// SectionLimit is the size of every home section.
	SectionLimit = 10
	// TrendingWindow is the trailing period counted by trending_now.
	TrendingWindow = 7 * 24 * time.Hour
	// GemMinRating is the minimum mean rating of a hidden gem.
	GemMinRating = 4.0
)

// Metric is an aggregate or column a view can order by.
type Metric string

const (
	Downloads       Metric = "downloads"
	WeeklyDownloads Metric = "weekly_downloads"
	AvgRating       Metric = "avg_rating"
	ReviewCount     Metric = "review_count"
	CreatedAt       Metric = "created_at"
	ID              Metric = "game_id"
)

// Term is one ORDER BY key.
type Term struct {
	Metric Metric
	Desc   bool
}

// Filter restricts a view beyond the actor scope.
type Filter struct {
	ApprovedOnly bool
	MinReviews   int64
	MinAvgRating float64
}

// Spec is the complete definition of a ranked list.
type Spec struct {
	View   View
	Filter Filter
	Order  []Term
	Limit  int
}

// Stats are the per-game aggregates a Spec is evaluated over.
type Stats struct {
	GameID          uint64
	CreatedAt       time.Time
	Downloads       int64
	WeeklyDownloads int64
	AvgRating       float64
	ReviewCount     int64
}

// tieBreak orders otherwise equal games newest first, then by id for a total order.
var tieBreak = []Term{{Metric: CreatedAt, Desc: true}, {Metric: ID, Desc: true}}

func spec(view View, filter Filter, order ...Term) Spec {
	terms := append([]Term{}, order...)
	for _, tb := range tieBreak {
		if !hasMetric(terms, tb.Metric) {
			terms = append(terms, tb)
		}
	}
	return Spec{View: view, Filter: filter, Order: terms, Limit: SectionLimit}
}

func hasMetric(terms []Term, m Metric) bool {
	for _, t := range terms {
		if t.Metric == m {
			return true
		}
	}
	return false
}

var approved = Filter{ApprovedOnly: true}

var views = map[View]Spec{
	MostPopular: spec(MostPopular, approved, Term{Metric: Downloads, Desc: true}),
	NewReleases: spec(NewReleases, approved, Term{Metric: CreatedAt, Desc: true}),
	TopRated:    spec(TopRated, Filter{ApprovedOnly: true, MinReviews: 1}, Term{Metric: AvgRating, Desc: true}),
	TrendingNow: spec(TrendingNow, approved, Term{Metric: WeeklyDownloads, Desc: true}),
	HiddenGems: spec(HiddenGems, Filter{ApprovedOnly: true, MinReviews: 1, MinAvgRating: GemMinRating},
		Term{Metric: Downloads}, Term{Metric: AvgRating, Desc: true}),
}

// Sections lists the home sections in display order.
func Sections() []View {
	return []View{MostPopular, NewReleases, TopRated, TrendingNow, HiddenGems}
}

// ForView returns the Spec of a home section.
func ForView(v View) (Spec, error) {
	s, ok := views[v]
	if !ok {
		return Spec{}, fmt.Errorf("unknown ranking view %q", v)
	}
	return s, nil
}

// sortKeys maps the list ?sort= values onto views.
var sortKeys = map[string]View{
	"popular":   MostPopular,
	"top-rated": TopRated,
	"trending":  TrendingNow,
	"gems":      HiddenGems,
}

// SortKeys returns the accepted ?sort= values.
func SortKeys() []string {
	keys := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForSort returns the Spec behind a ?sort= value. An empty key yields the
// default listing order (newest first, no extra filter). The returned Spec
// has no limit; callers paginate.
func ForSort(key string) (Spec, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return Default(), nil
	}
	v, ok := sortKeys[key]
	if !ok {
		return Spec{}, fmt.Errorf("unknown sort %q, expected one of %s", key, strings.Join(SortKeys(), ", "))
	}
	s := views[v]
	s.Limit = 0
	return s, nil
}

// Default is the unfiltered listing order.
func Default() Spec {
	s := spec(DefaultOrder, Filter{}, Term{Metric: CreatedAt, Desc: true})
	s.Limit = 0
	return s
}

// WithLimit returns a copy of s limited to n rows.
func (s Spec) WithLimit(n int) Spec {
	s.Order = append([]Term{}, s.Order...)
	s.Limit = n
	return s
}

// NeedsWindow reports whether the spec reads trailing-window downloads.
func (s Spec) NeedsWindow() bool {
	return hasMetric(s.Order, WeeklyDownloads)
}

// Accepts applies the spec filter to aggregates. Status is checked by the
// caller because Stats carry no status.
func (s Spec) Accepts(st Stats) bool {
	if st.ReviewCount < s.Filter.MinReviews {
		return false
	}
	if s.Filter.MinAvgRating > 0 && st.AvgRating < s.Filter.MinAvgRating {
		return false
	}
	return true
}

// Less reports whether a ranks before b.
func (s Spec) Less(a, b Stats) bool {
	for _, t := range s.Order {
		c := compare(t.Metric, a, b)
		if c == 0 {
			continue
		}
		if t.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Apply filters and orders stats in memory, then applies the limit.
func (s Spec) Apply(stats []Stats) []Stats {
	out := make([]Stats, 0, len(stats))
	for _, st := range stats {
		if s.Accepts(st) {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return s.Less(out[i], out[j]) })
	if s.Limit > 0 && len(out) > s.Limit {
		out = out[:s.Limit]
	}
	return out
}

func compare(m Metric, a, b Stats) int {
	switch m {
	case Downloads:
		return cmpInt(a.Downloads, b.Downloads)
	case WeeklyDownloads:
		return cmpInt(a.WeeklyDownloads, b.WeeklyDownloads)
	case AvgRating:
		switch {
		case a.AvgRating < b.AvgRating:
			return -1
		case a.AvgRating > b.AvgRating:
			return 1
		}
		return 0
	case ReviewCount:
		return cmpInt(a.ReviewCount, b.ReviewCount)
	case CreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case ID:
		return cmpInt(int64(a.GameID), int64(b.GameID))
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
