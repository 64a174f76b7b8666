package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/mq"
)

// DownloadMeta describes the client behind a download.
type DownloadMeta struct {
	IPAddress  string
	DeviceInfo string
	UserAgent  string
	Client     map[string]any
}

// DownloadFilters narrow the download history.
type DownloadFilters struct {
	GameID uint64
	UserID uint64
}

// AuthorizeDownload loads a game and checks that actor may download it:
// approved games for everyone, others for the owner and admins.
func AuthorizeDownload(db *gorm.DB, az *authz.Engine, actor authz.Actor, gameID uint64) (*models.Game, error) {
	var game models.Game
	if err := db.First(&game, gameID).Error; err != nil {
		return nil, notFound(err, "Game")
	}
	if err := az.Authorize(actor, authz.ActionDownload, authz.GameResource(&game)); err != nil {
		return nil, err
	}
	return &game, nil
}

// RecordDownload appends a download event for an authorized game.
// Every call appends; events are a usage counter, not a set.
func RecordDownload(db *gorm.DB, actor authz.Actor, game *models.Game, meta DownloadMeta) (*models.DownloadEvent, error) {
	event := &models.DownloadEvent{
		GameID:     game.ID,
		UserID:     actor.UserID(),
		IPAddress:  truncate(meta.IPAddress, 45),
		DeviceInfo: truncate(meta.DeviceInfo, 255),
		UserAgent:  truncate(meta.UserAgent, 512),
		Client:     models.NewJSON(meta.Client),
	}
	if err := db.Create(event).Error; err != nil {
		return nil, fmt.Errorf("record download of game %d: %w", game.ID, err)
	}
	return event, nil
}

// Download authorizes and records a download in one step.
func Download(db *gorm.DB, az *authz.Engine, actor authz.Actor, gameID uint64, meta DownloadMeta) (*models.DownloadEvent, *models.Game, error) {
	game, err := AuthorizeDownload(db, az, actor, gameID)
	if err != nil {
		return nil, nil, err
	}
	event, err := RecordDownload(db, actor, game, meta)
	if err != nil {
		return nil, nil, err
	}
	return event, game, nil
}

// PublishDownload sends a recorded event to the stream. Failures are
// logged and never returned.
func PublishDownload(ctx context.Context, q mq.Queue, event *models.DownloadEvent) {
	if q == nil {
		return
	}
	payload := map[string]any{
		"type":        "download",
		"event_id":    event.ID,
		"game_id":     event.GameID,
		"ip_address":  event.IPAddress,
		"device_info": event.DeviceInfo,
		"created_at":  event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.UserID != nil {
		payload["user_id"] = *event.UserID
	}
	if err := q.PublishEvent(ctx, payload); err != nil {
		log.WithError(err).WithFields(log.Fields{"event": event.ID, "game": event.GameID}).Warn("failed to publish download event")
	}
}

// ListDownloads lists the raw download history, newest first. Admin only.
func ListDownloads(db *gorm.DB, az *authz.Engine, actor authz.Actor, filters DownloadFilters, page PageRequest) (Page[models.DownloadEvent], error) {
	if err := az.Authorize(actor, authz.ActionList, authz.Resource{Kind: authz.KindDownloadEvent}); err != nil {
		return Page[models.DownloadEvent]{}, err
	}
	q := db.Model(&models.DownloadEvent{})
	if filters.GameID != 0 {
		q = q.Where("game_id = ?", filters.GameID)
	}
	if filters.UserID != 0 {
		q = q.Where("user_id = ?", filters.UserID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.DownloadEvent]{}, fmt.Errorf("count downloads: %w", err)
	}
	var events []models.DownloadEvent
	err := q.Preload("Game").Preload("User").
		Order("created_at DESC, id DESC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&events).Error
	if err != nil {
		return Page[models.DownloadEvent]{}, fmt.Errorf("list downloads: %w", err)
	}
	return newPage(page, total, events), nil
}

// GetDownload returns one download event. Admin only.
func GetDownload(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) (*models.DownloadEvent, error) {
	if err := az.Authorize(actor, authz.ActionRead, authz.Resource{Kind: authz.KindDownloadEvent}); err != nil {
		return nil, err
	}
	var event models.DownloadEvent
	if err := db.Preload("Game").Preload("User").First(&event, id).Error; err != nil {
		return nil, notFound(err, "Download")
	}
	return &event, nil
}

// DeleteDownload removes one download event. Admin only.
func DeleteDownload(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) error {
	if err := az.Authorize(actor, authz.ActionDelete, authz.Resource{Kind: authz.KindDownloadEvent}); err != nil {
		return err
	}
	res := db.Delete(&models.DownloadEvent{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete download %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "Download")
	}
	return nil
}

// truncate trims s and keeps at most n characters, matching the column sizes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
