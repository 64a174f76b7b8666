// Package testutil holds shared test fixtures: an in-memory database,
// seeded users and games, and the container harness.
package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/models"
)

// Password is the plain text password of every seeded user.
const Password = "password123"

// Epoch is a fixed clock reading for deterministic ranking tests.
var Epoch = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// NewTestDB creates a migrated in-memory SQLite database with foreign keys on.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := database.NewGormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

var passwordHash []byte

// CreateUser inserts a user with the given role and the shared Password.
func CreateUser(t testing.TB, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	if passwordHash == nil {
		h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		passwordHash = h
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(passwordHash),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// CreateGame inserts a game owned by developer with the given status and creation time.
func CreateGame(t testing.TB, db *gorm.DB, developer *models.User, title, status string, createdAt time.Time) *models.Game {
	t.Helper()

	game := &models.Game{
		Title:       title,
		Description: title + " description",
		FileKey:     "games/" + title + "/" + title + ".zip",
		FileName:    title + ".zip",
		DeveloperID: developer.ID,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("Failed to create game %s: %v", title, err)
	}
	return game
}

// AddDownloads appends n anonymous download events for game at the given time.
func AddDownloads(t testing.TB, db *gorm.DB, game *models.Game, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		event := &models.DownloadEvent{GameID: game.ID, IPAddress: "127.0.0.1", CreatedAt: at}
		if err := db.Create(event).Error; err != nil {
			t.Fatalf("Failed to add download for %s: %v", game.Title, err)
		}
	}
}

// AddReview inserts a review by user on game.
func AddReview(t testing.TB, db *gorm.DB, game *models.Game, user *models.User, rating int, at time.Time) *models.Review {
	t.Helper()

	review := &models.Review{GameID: game.ID, UserID: user.ID, Rating: rating, CreatedAt: at, UpdatedAt: at}
	if err := db.Create(review).Error; err != nil {
		t.Fatalf("Failed to add review for %s: %v", game.Title, err)
	}
	return review
}

// FormatID renders an id the way it appears in paths and query strings.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
