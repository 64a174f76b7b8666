package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/analytics"
	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/utils"
)

// AnalyticsHandler handles the developer analytics routes
type AnalyticsHandler struct {
	*Deps
}

// SeriesResponse wraps an analytics series with the query that produced it.
type SeriesResponse[T any] struct {
	Interval analytics.Interval `json:"interval,omitempty"`
	Game     uint64             `json:"game,omitempty"`
	Results  []T                `json:"results"`
}

func analyticsQuery(c *fiber.Ctx) (services.AnalyticsQuery, error) {
	return services.ParseAnalyticsQuery(
		c.Query("game"),
		c.Query("developer"),
		c.Query("interval"),
		c.Query("start"),
		c.Query("end"),
	)
}

// Downloads handles GET /api/games/analytics/downloads
// @Summary Download time series
// @Description Downloads per bucket. Developers see their own games only; the developer filter is admin only.
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param game query int false "Game id"
// @Param developer query int false "Developer id (admin)"
// @Param interval query string false "daily, weekly or monthly" default(daily)
// @Param start query string false "First day, YYYY-MM-DD"
// @Param end query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} SeriesResponse[analytics.CountPoint]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /games/analytics/downloads [get]
func (h *AnalyticsHandler) Downloads(c *fiber.Ctx) error {
	q, err := analyticsQuery(c)
	if err != nil {
		return err
	}
	series, err := services.DownloadSeries(h.reader(), h.Authz, middleware.ActorFrom(c), q)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, SeriesResponse[analytics.CountPoint]{
		Interval: q.Interval,
		Game:     q.GameID,
		Results:  series,
	}, fiber.StatusOK)
}

// AverageRating handles GET /api/games/analytics/ratings/average
// @Summary Average rating time series
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param game query int false "Game id"
// @Param developer query int false "Developer id (admin)"
// @Param interval query string false "daily, weekly or monthly" default(daily)
// @Param start query string false "First day, YYYY-MM-DD"
// @Param end query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} SeriesResponse[analytics.AveragePoint]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /games/analytics/ratings/average [get]
func (h *AnalyticsHandler) AverageRating(c *fiber.Ctx) error {
	q, err := analyticsQuery(c)
	if err != nil {
		return err
	}
	series, err := services.AverageRatingSeries(h.reader(), h.Authz, middleware.ActorFrom(c), q)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, SeriesResponse[analytics.AveragePoint]{
		Interval: q.Interval,
		Game:     q.GameID,
		Results:  series,
	}, fiber.StatusOK)
}

// RatingDistribution handles GET /api/games/analytics/ratings/distribution
// @Summary Rating histogram
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param game query int false "Game id"
// @Param developer query int false "Developer id (admin)"
// @Param start query string false "First day, YYYY-MM-DD"
// @Param end query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} SeriesResponse[analytics.RatingBucket]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /games/analytics/ratings/distribution [get]
func (h *AnalyticsHandler) RatingDistribution(c *fiber.Ctx) error {
	q, err := analyticsQuery(c)
	if err != nil {
		return err
	}
	buckets, err := services.RatingDistribution(h.reader(), h.Authz, middleware.ActorFrom(c), q)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, SeriesResponse[analytics.RatingBucket]{
		Game:    q.GameID,
		Results: buckets,
	}, fiber.StatusOK)
}
