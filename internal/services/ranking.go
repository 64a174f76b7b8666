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

package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/hints"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/ranking"
	"github.com/localnerve/gamestore/internal/types"
)

// likeEscaper makes a search term match literally inside a LIKE pattern
// whose escape character is '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")

// RankedGame is a game with the aggregates it was ranked on.
type RankedGame struct {
	Game  models.Game
	Stats ranking.Stats
}

// GameFilters narrow a game listing. Zero values do not filter.
type GameFilters struct {
	Sort        string
	Status      string
	Categories  []uint64
	DeveloperID uint64
	Search      string
	IDs         []uint64
}

// rankingQuery builds the aggregate query for spec within scope. The
// returned query selects the ranking.Stats columns and is ordered by spec;
// it has no limit applied.
func rankingQuery(db *gorm.DB, spec ranking.Spec, scope authz.Scope, filters GameFilters, now time.Time) *gorm.DB {
	base := db.Session(&gorm.Session{NewDB: true})

	downloads := base.Model(&models.DownloadEvent{}).
		Select("game_id, COUNT(*) AS cnt").
		Group("game_id")
	weekly := base.Model(&models.DownloadEvent{}).
		Select("game_id, COUNT(*) AS cnt").
		Where("created_at >= ?", now.UTC().Add(-ranking.TrendingWindow)).
		Group("game_id")
	reviews := base.Model(&models.Review{}).
		Select("game_id, AVG(rating * 1.0) AS avg_rating, COUNT(*) AS cnt").
		Group("game_id")

	q := db.Table(ranking.GamesTable).
		Joins(fmt.Sprintf("LEFT JOIN (?) AS %s ON %s.game_id = games.id", ranking.DownloadsAs, ranking.DownloadsAs), downloads).
		Joins(fmt.Sprintf("LEFT JOIN (?) AS %s ON %s.game_id = games.id", ranking.WeeklyAs, ranking.WeeklyAs), weekly).
		Joins(fmt.Sprintf("LEFT JOIN (?) AS %s ON %s.game_id = games.id", ranking.ReviewsAs, ranking.ReviewsAs), reviews)

	q = scopeGames(q, scope)

	if filters.Status != "" {
		q = q.Where("games.status = ?", filters.Status)
	}
	if len(filters.Categories) > 0 {
		q = q.Where("games.id IN (?)",
			base.Table("game_categories").Select("game_id").Where("category_id IN ?", filters.Categories))
	}
	if filters.DeveloperID != 0 {
		q = q.Where("games.developer_id = ?", filters.DeveloperID)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where("(LOWER(games.title) LIKE ? ESCAPE '!' OR LOWER(games.title_ar) LIKE ? ESCAPE '!')", like, like)
	}
	if len(filters.IDs) > 0 {
		q = q.Where("games.id IN ?", filters.IDs)
	}

	if cond, args := spec.Where(models.GameStatusApproved); cond != "" {
		q = q.Where(cond, args...)
	}

	return q
}

// runRanking executes spec and returns one page of ranked games with the
// total count of matching games.
func runRanking(db *gorm.DB, spec ranking.Spec, scope authz.Scope, filters GameFilters, now time.Time, limit, offset int) ([]RankedGame, int64, error) {
	var total int64
	if err := rankingQuery(db, spec, scope, filters, now).
		Clauses(hints.CommentBefore("select", spec.Hint())).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", spec.View, err)
	}
	if total == 0 {
		return []RankedGame{}, 0, nil
	}

	q := rankingQuery(db, spec, scope, filters, now).
		Clauses(hints.CommentBefore("select", spec.Hint())).
		Select(ranking.SelectColumns()).
		Order(spec.OrderBy())
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var stats []ranking.Stats
	if err := q.Scan(&stats).Error; err != nil {
		return nil, 0, fmt.Errorf("rank %s: %w", spec.View, err)
	}

	ranked, err := attachGames(db, stats)
	if err != nil {
		return nil, 0, err
	}
	return ranked, total, nil
}

// attachGames loads the games behind stats, keeping the ranked order.
func attachGames(db *gorm.DB, stats []ranking.Stats) ([]RankedGame, error) {
	if len(stats) == 0 {
		return []RankedGame{}, nil
	}
	ids := make([]uint64, len(stats))
	for i, st := range stats {
		ids[i] = st.GameID
	}

	var games []models.Game
	if err := preloadGame(db).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, fmt.Errorf("load ranked games: %w", err)
	}
	byID := make(map[uint64]models.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}

	out := make([]RankedGame, 0, len(stats))
	for _, st := range stats {
		g, ok := byID[st.GameID]
		if !ok {
			// deleted between the two queries
			continue
		}
		// stats created_at comes back in the driver's location
		st.CreatedAt = st.CreatedAt.UTC()
		out = append(out, RankedGame{Game: g, Stats: st})
	}
	return out, nil
}

// preloadGame adds the associations rendered with a game.
func preloadGame(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Categories").
		Preload("Screenshots", "is_base = ?", true).
		Preload("Developer")
}

// HomeSections computes every curated section for the home page.
// Sections only ever contain approved games.
func HomeSections(db *gorm.DB, actor authz.Actor, now time.Time) (map[ranking.View][]RankedGame, error) {
	out := make(map[ranking.View][]RankedGame, len(ranking.Sections()))
	for _, view := range ranking.Sections() {
		spec, err := ranking.ForView(view)
		if err != nil {
			return nil, err
		}
		games, _, err := runRanking(db, spec, authz.GameScope(actor), GameFilters{}, now, spec.Limit, 0)
		if err != nil {
			return nil, err
		}
		out[view] = games
	}
	return out, nil
}

// PopularGames is most_popular with a caller supplied limit between 1 and 50.
func PopularGames(db *gorm.DB, actor authz.Actor, limit int, now time.Time) ([]RankedGame, error) {
	if limit < 1 || limit > 50 {
		return nil, types.FieldError("limit", "Must be between 1 and 50.")
	}
	spec, err := ranking.ForView(ranking.MostPopular)
	if err != nil {
		return nil, err
	}
	spec = spec.WithLimit(limit)
	games, _, err := runRanking(db, spec, authz.GameScope(actor), GameFilters{}, now, spec.Limit, 0)
	return games, err
}

// ListGames lists the games visible to actor, optionally ordered by a
// ranking (filters.Sort) and narrowed by the other filters.
func ListGames(db *gorm.DB, actor authz.Actor, filters GameFilters, page PageRequest, now time.Time) (Page[RankedGame], error) {
	spec, err := ranking.ForSort(filters.Sort)
	if err != nil {
		return Page[RankedGame]{}, types.FieldError("sort", err.Error())
	}
	switch filters.Status {
	case "", models.GameStatusPending, models.GameStatusApproved, models.GameStatusRejected:
	default:
		return Page[RankedGame]{}, types.FieldError("status", "Must be one of pending, approved, rejected.")
	}

	games, total, err := runRanking(db, spec, authz.GameScope(actor), filters, now, page.PageSize, page.Offset())
	if err != nil {
		return Page[RankedGame]{}, err
	}
	return newPage(page, total, games), nil
}

// GameStats returns the aggregates of the given games keyed by id.
func GameStats(db *gorm.DB, ids []uint64, now time.Time) (map[uint64]ranking.Stats, error) {
	out := make(map[uint64]ranking.Stats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	spec := ranking.Default()
	var stats []ranking.Stats
	err := rankingQuery(db, spec, authz.Scope{All: true}, GameFilters{IDs: ids}, now).
		Clauses(hints.CommentBefore("select", spec.Hint())).
		Select(ranking.SelectColumns()).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("game stats: %w", err)
	}
	for _, st := range stats {
		st.CreatedAt = st.CreatedAt.UTC()
		out[st.GameID] = st
	}
	return out, nil
}
