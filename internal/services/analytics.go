package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/hints"

	"github.com/localnerve/gamestore/internal/analytics"
	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

// AnalyticsQuery holds the parsed analytics filters.
type AnalyticsQuery struct {
	GameID      uint64
	DeveloperID uint64
	Interval    analytics.Interval
	Range       analytics.Range
}

// ParseAnalyticsQuery validates the raw query values. Any malformed value
// fails the whole request.
func ParseAnalyticsQuery(game, developer, interval, start, end string) (AnalyticsQuery, error) {
	var q AnalyticsQuery
	var err error
	if q.GameID, err = ParseID("game", game, true); err != nil {
		return q, err
	}
	if q.DeveloperID, err = ParseID("developer", developer, true); err != nil {
		return q, err
	}
	if q.Interval, err = analytics.ParseInterval(interval); err != nil {
		return q, err
	}
	if q.Range, err = analytics.ParseRange(start, end); err != nil {
		return q, err
	}
	return q, nil
}

// authorizeAnalytics checks the role gate and the filters. Developers only
// ever see their own games; the developer filter is for admins.
func authorizeAnalytics(db *gorm.DB, az *authz.Engine, actor authz.Actor, q AnalyticsQuery) error {
	if err := az.Authorize(actor, authz.ActionRead, authz.Resource{Kind: authz.KindAnalytics, OwnerID: actor.ID}); err != nil {
		return err
	}
	if q.DeveloperID != 0 && !actor.IsAdmin() {
		return types.PermissionError("Only administrators may filter analytics by developer.")
	}
	if q.GameID != 0 {
		var game models.Game
		if err := db.Select("id", "developer_id").First(&game, q.GameID).Error; err != nil {
			return notFound(err, "Game")
		}
		if !actor.IsAdmin() && game.DeveloperID != actor.ID {
			return types.PermissionError("You do not have permission to view analytics for this game.")
		}
	}
	return nil
}

// analyticsSource filters table (download_events or reviews) by the query
// and the actor's games.
func analyticsSource(db *gorm.DB, actor authz.Actor, table string, q AnalyticsQuery, hint string) *gorm.DB {
	tx := db.Table(table).
		Clauses(hints.CommentBefore("select", "analytics:"+hint)).
		Joins(fmt.Sprintf("JOIN games ON games.id = %s.game_id", table))
	if !actor.IsAdmin() {
		tx = tx.Where("games.developer_id = ?", actor.ID)
	}
	if q.DeveloperID != 0 {
		tx = tx.Where("games.developer_id = ?", q.DeveloperID)
	}
	if q.GameID != 0 {
		tx = tx.Where(table+".game_id = ?", q.GameID)
	}
	if q.Range.Start != nil {
		tx = tx.Where(table+".created_at >= ?", *q.Range.Start)
	}
	if q.Range.End != nil {
		tx = tx.Where(table+".created_at < ?", *q.Range.End)
	}
	return tx
}

// DownloadSeries counts download events per bucket.
func DownloadSeries(db *gorm.DB, az *authz.Engine, actor authz.Actor, q AnalyticsQuery) ([]analytics.CountPoint, error) {
	if err := authorizeAnalytics(db, az, actor, q); err != nil {
		return nil, err
	}
	var times []time.Time
	if err := analyticsSource(db, actor, "download_events", q, "downloads").
		Pluck("download_events.created_at", &times).Error; err != nil {
		return nil, fmt.Errorf("download analytics: %w", err)
	}
	return analytics.CountSeries(times, q.Range, q.Interval), nil
}

func ratingSamples(db *gorm.DB, actor authz.Actor, q AnalyticsQuery, hint string) ([]analytics.RatingSample, error) {
	var samples []analytics.RatingSample
	if err := analyticsSource(db, actor, "reviews", q, hint).
		Select("reviews.rating AS rating, reviews.created_at AS created_at").
		Scan(&samples).Error; err != nil {
		return nil, fmt.Errorf("rating analytics: %w", err)
	}
	return samples, nil
}

// AverageRatingSeries averages review ratings per bucket.
func AverageRatingSeries(db *gorm.DB, az *authz.Engine, actor authz.Actor, q AnalyticsQuery) ([]analytics.AveragePoint, error) {
	if err := authorizeAnalytics(db, az, actor, q); err != nil {
		return nil, err
	}
	samples, err := ratingSamples(db, actor, q, "ratings_average")
	if err != nil {
		return nil, err
	}
	return analytics.AverageSeries(samples, q.Range, q.Interval), nil
}

// RatingDistribution counts reviews per rating value, 1 through 5.
func RatingDistribution(db *gorm.DB, az *authz.Engine, actor authz.Actor, q AnalyticsQuery) ([]analytics.RatingBucket, error) {
	if err := authorizeAnalytics(db, az, actor, q); err != nil {
		return nil, err
	}
	samples, err := ratingSamples(db, actor, q, "ratings_distribution")
	if err != nil {
		return nil, err
	}
	return analytics.Distribution(samples, q.Range), nil
}
