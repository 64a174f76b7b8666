package handlers

import (
	"strings"
	"time"

	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/ranking"
	"github.com/localnerve/gamestore/internal/services"
)

// mediaURL turns a public blob key into the URL served by the media route.
func (d *Deps) mediaURL(key string) *string {
	if key == "" {
		return nil
	}
	prefix := "/media/"
	if d.Config != nil && d.Config.PublicPrefix != "" {
		prefix = d.Config.PublicPrefix
	}
	u := strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(key, "/")
	return &u
}

// CategoryView is the category payload.
type CategoryView struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	NameAr        string    `json:"name_ar"`
	Description   string    `json:"description"`
	DescriptionAr string    `json:"description_ar"`
	CreatedAt     time.Time `json:"created_at"`
}

func categoryView(c *models.Category) CategoryView {
	return CategoryView{
		ID:            c.ID,
		Name:          c.Name,
		NameAr:        c.NameAr,
		Description:   c.Description,
		DescriptionAr: c.DescriptionAr,
		CreatedAt:     c.CreatedAt.UTC(),
	}
}

func categoryViews(cats []models.Category) []CategoryView {
	out := make([]CategoryView, 0, len(cats))
	for i := range cats {
		out = append(out, categoryView(&cats[i]))
	}
	return out
}

// GameView is the game payload, aggregates included.
type GameView struct {
	ID                uint64         `json:"id"`
	Title             string         `json:"title"`
	TitleAr           string         `json:"title_ar"`
	Description       string         `json:"description"`
	DescriptionAr     string         `json:"description_ar"`
	Developer         uint64         `json:"developer"`
	DeveloperUsername string         `json:"developer_username"`
	Status            string         `json:"status"`
	RejectionReason   string         `json:"rejection_reason"`
	Categories        []CategoryView `json:"categories"`
	FileName          string         `json:"file_name"`
	BaseScreenshot    *string        `json:"base_screenshot"`
	AverageRating     *float64       `json:"average_rating"`
	ReviewCount       int64          `json:"review_count"`
	DownloadCount     int64          `json:"download_count"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (d *Deps) gameView(g *models.Game, st ranking.Stats) GameView {
	v := GameView{
		ID:                g.ID,
		Title:             g.Title,
		TitleAr:           g.TitleAr,
		Description:       g.Description,
		DescriptionAr:     g.DescriptionAr,
		Developer:         g.DeveloperID,
		DeveloperUsername: g.Developer.Username,
		Status:            g.Status,
		RejectionReason:   g.RejectionReason,
		Categories:        categoryViews(g.Categories),
		FileName:          g.FileName,
		ReviewCount:       st.ReviewCount,
		DownloadCount:     st.Downloads,
		CreatedAt:         g.CreatedAt.UTC(),
		UpdatedAt:         g.UpdatedAt.UTC(),
	}
	if base := g.BaseScreenshot(); base != nil {
		v.BaseScreenshot = d.mediaURL(base.ImageKey)
	}
	if st.ReviewCount > 0 {
		avg := st.AvgRating
		v.AverageRating = &avg
	}
	return v
}

func (d *Deps) rankedViews(games []services.RankedGame) []GameView {
	out := make([]GameView, 0, len(games))
	for i := range games {
		out = append(out, d.gameView(&games[i].Game, games[i].Stats))
	}
	return out
}

// ScreenshotView is the screenshot payload.
type ScreenshotView struct {
	ID        uint64    `json:"id"`
	Game      uint64    `json:"game"`
	Image     *string   `json:"image"`
	IsBase    bool      `json:"is_base"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Deps) screenshotView(s *models.Screenshot) ScreenshotView {
	return ScreenshotView{
		ID:        s.ID,
		Game:      s.GameID,
		Image:     d.mediaURL(s.ImageKey),
		IsBase:    s.IsBase,
		CreatedAt: s.CreatedAt.UTC(),
	}
}

// UserView is the user payload. Password hashes never leave the service.
type UserView struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileImage *string   `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

func (d *Deps) userView(u *models.User) UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		ProfileImage: d.mediaURL(u.ProfileImage),
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

// ReviewView is the review payload.
type ReviewView struct {
	ID           uint64    `json:"id"`
	Game         uint64    `json:"game"`
	User         uint64    `json:"user"`
	UserUsername string    `json:"user_username"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func reviewView(r *models.Review) ReviewView {
	return ReviewView{
		ID:           r.ID,
		Game:         r.GameID,
		User:         r.UserID,
		UserUsername: r.User.Username,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// LibraryEntryView is a library entry with its game.
type LibraryEntryView struct {
	ID        uint64    `json:"id"`
	User      uint64    `json:"user"`
	Game      GameView  `json:"game"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Deps) libraryView(e *models.LibraryEntry, st ranking.Stats) LibraryEntryView {
	return LibraryEntryView{
		ID:        e.ID,
		User:      e.UserID,
		Game:      d.gameView(&e.Game, st),
		CreatedAt: e.CreatedAt.UTC(),
	}
}

// DownloadView is a download event.
type DownloadView struct {
	ID         uint64         `json:"id"`
	Game       uint64         `json:"game"`
	GameTitle  string         `json:"game_title"`
	User       *uint64        `json:"user"`
	IPAddress  string         `json:"ip_address"`
	DeviceInfo string         `json:"device_info"`
	UserAgent  string         `json:"user_agent"`
	Client     map[string]any `json:"client"`
	CreatedAt  time.Time      `json:"created_at"`
}

func downloadView(e *models.DownloadEvent) DownloadView {
	return DownloadView{
		ID:         e.ID,
		Game:       e.GameID,
		GameTitle:  e.Game.Title,
		User:       e.UserID,
		IPAddress:  e.IPAddress,
		DeviceInfo: e.DeviceInfo,
		UserAgent:  e.UserAgent,
		Client:     e.Client.Map(),
		CreatedAt:  e.CreatedAt.UTC(),
	}
}

// PageView is the paginated list envelope.
type PageView[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

func pageView[S, T any](p services.Page[S], conv func(*S) T) PageView[T] {
	out := PageView[T]{Count: p.Count, Page: p.Page, PageSize: p.PageSize, Results: make([]T, 0, len(p.Results))}
	for i := range p.Results {
		out.Results = append(out.Results, conv(&p.Results[i]))
	}
	return out
}
