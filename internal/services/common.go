package services

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

const (
	// DefaultPageSize applies when page_size is absent.
	DefaultPageSize = 20
	// MaxPageSize caps page_size.
	MaxPageSize = 100
)

// PageRequest is a validated page selection.
type PageRequest struct {
	Page     int
	PageSize int
}

// Offset is the number of rows before the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// FirstPage is page 1 at the default size.
func FirstPage() PageRequest {
	return PageRequest{Page: 1, PageSize: DefaultPageSize}
}

// ParsePage reads page and page_size query values.
func ParsePage(page, pageSize string) (PageRequest, error) {
	req := FirstPage()
	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return req, types.FieldError("page", "A valid page number is required.")
		}
		req.Page = n
	}
	if s := strings.TrimSpace(pageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxPageSize {
			return req, types.FieldError("page_size", "Must be between 1 and 100.")
		}
		req.PageSize = n
	}
	return req, nil
}

// Page is one page of results.
type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

func newPage[T any](req PageRequest, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: count, Page: req.Page, PageSize: req.PageSize, Results: results}
}

// ParseID reads a positive path or query id. Empty is 0 when optional.
func ParseID(field, value string, optional bool) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" && optional {
		return 0, nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, types.FieldError(field, "A valid integer id is required.")
	}
	return id, nil
}

// scopeGames applies the actor's listing scope to a query that includes games.
func scopeGames(q *gorm.DB, scope authz.Scope) *gorm.DB {
	if scope.All {
		return q
	}
	if scope.OwnerID != 0 {
		return q.Where("(games.status = ? OR games.developer_id = ?)", models.GameStatusApproved, scope.OwnerID)
	}
	return q.Where("games.status = ?", models.GameStatusApproved)
}

// notFound translates gorm.ErrRecordNotFound into a NotFoundError.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NotFoundError("%s not found.", what)
	}
	return err
}

// conflict translates unique violations into a ConflictError with message.
func conflict(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return types.ConflictError("%s", message)
	}
	return err
}

// loadVisibleGame loads a game the actor may see. Hidden games are
// reported as missing so their existence does not leak.
func loadVisibleGame(db *gorm.DB, actor authz.Actor, id uint64, preloads ...string) (*models.Game, error) {
	q := db
	for _, p := range preloads {
		q = q.Preload(p)
	}
	var game models.Game
	if err := q.First(&game, id).Error; err != nil {
		return nil, notFound(err, "Game")
	}
	if !authz.GameScope(actor).Visible(game.Status, game.DeveloperID) {
		return nil, types.NotFoundError("Game not found.")
	}
	return &game, nil
}
