package ranking

import (
	"strings"
)

// Aliases used by the SQL executor: the games table joined with the
// derived tables dl (all-time downloads), wk (trailing-window downloads)
// and rv (review aggregates), each keyed by game_id.
const (
	GamesTable   = "games"
	DownloadsAs  = "dl"
	WeeklyAs     = "wk"
	ReviewsAs    = "rv"
	statusColumn = GamesTable + ".status"
)

// Expr returns the SQL expression of a metric over the executor aliases.
func (m Metric) Expr() string {
	switch m {
	case Downloads:
		return "COALESCE(" + DownloadsAs + ".cnt, 0)"
	case WeeklyDownloads:
		return "COALESCE(" + WeeklyAs + ".cnt, 0)"
	case AvgRating:
		return "COALESCE(" + ReviewsAs + ".avg_rating, 0)"
	case ReviewCount:
		return "COALESCE(" + ReviewsAs + ".cnt, 0)"
	case CreatedAt:
		return GamesTable + ".created_at"
	case ID:
		return GamesTable + ".id"
	}
	return ""
}

// SelectColumns are the aggregate columns scanned into Stats.
func SelectColumns() string {
	return strings.Join([]string{
		ID.Expr() + " AS game_id",
		CreatedAt.Expr() + " AS created_at",
		Downloads.Expr() + " AS downloads",
		WeeklyDownloads.Expr() + " AS weekly_downloads",
		AvgRating.Expr() + " AS avg_rating",
		ReviewCount.Expr() + " AS review_count",
	}, ", ")
}

// OrderBy renders the ORDER BY clause body.
func (s Spec) OrderBy() string {
	parts := make([]string, 0, len(s.Order))
	for _, t := range s.Order {
		dir := " ASC"
		if t.Desc {
			dir = " DESC"
		}
		parts = append(parts, t.Metric.Expr()+dir)
	}
	return strings.Join(parts, ", ")
}

// Where renders the spec filter as a condition with bind arguments.
// It returns an empty condition when the spec has no filter.
func (s Spec) Where(approvedStatus string) (string, []any) {
	var conds []string
	var args []any
	if s.Filter.ApprovedOnly {
		conds = append(conds, statusColumn+" = ?")
		args = append(args, approvedStatus)
	}
	if s.Filter.MinReviews > 0 {
		conds = append(conds, ReviewCount.Expr()+" >= ?")
		args = append(args, s.Filter.MinReviews)
	}
	if s.Filter.MinAvgRating > 0 {
		conds = append(conds, AvgRating.Expr()+" >= ?")
		args = append(args, s.Filter.MinAvgRating)
	}
	return strings.Join(conds, " AND "), args
}

// Hint is the comment used to tag the generated SQL.
func (s Spec) Hint() string {
	return "ranking:" + string(s.View)
}
