package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/testutil/containers"
)

// TestContainerDatabase runs the schema against a real server. It needs
// docker and DB_IMAGE (e.g. mariadb:11 with DB_TYPE=mariadb, or
// postgres:17 with DB_TYPE=postgres).
func TestContainerDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("DB_IMAGE") == "" {
		t.Skip("DB_IMAGE is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	env := containers.EnvFromOS()
	stack, err := containers.StartDatabase(ctx, t, env)
	if err != nil {
		t.Fatalf("StartDatabase failed: %v", err)
	}
	t.Cleanup(func() { stack.Terminate(t) })

	host, port, err := stack.DBEndpoint(ctx)
	if err != nil {
		t.Fatalf("DBEndpoint failed: %v", err)
	}
	cfg := &config.Config{
		DBType:                env.DBType,
		DBHost:                host,
		DBPort:                port,
		DBDatabase:            env.Database,
		DBUser:                env.User,
		DBPassword:            env.Password,
		DBConnectionLimit:     4,
		DBReadUser:            env.ReadUser,
		DBReadPassword:        env.ReadPassword,
		DBReadConnectionLimit: 2,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Second AutoMigrate failed: %v", err)
	}

	dev := &models.User{Username: "dev", Email: "dev@example.com", PasswordHash: "x", Role: models.RoleDeveloper}
	if err := db.Create(dev).Error; err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	dup := &models.User{Username: "dev", Email: "other@example.com", PasswordHash: "x", Role: models.RolePlayer}
	if err := db.Create(dup).Error; !database.IsUniqueViolation(err) {
		t.Errorf("Expected a unique violation for a duplicate username, got %v", err)
	}

	game := &models.Game{Title: "alpha", DeveloperID: dev.ID, Status: models.GameStatusApproved}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("Create game failed: %v", err)
	}
	if err := db.Create(&models.Screenshot{GameID: game.ID, ImageKey: "screenshots/a.png", IsBase: true}).Error; err != nil {
		t.Fatalf("Create base screenshot failed: %v", err)
	}
	err = db.Create(&models.Screenshot{GameID: game.ID, ImageKey: "screenshots/b.png", IsBase: true}).Error
	if !database.IsUniqueViolation(err) {
		t.Errorf("Expected a unique violation for a second base screenshot, got %v", err)
	}

	review := &models.Review{GameID: game.ID, UserID: dev.ID, Rating: 5}
	if err := db.Create(review).Error; err != nil {
		t.Fatalf("Create review failed: %v", err)
	}
	if err := db.Create(&models.Review{GameID: game.ID, UserID: dev.ID, Rating: 3}).Error; !database.IsUniqueViolation(err) {
		t.Errorf("Expected a unique violation for a second review, got %v", err)
	}

	// The reader account can read but not write.
	reader, err := database.ConnectReader(cfg)
	if err != nil {
		t.Fatalf("ConnectReader failed: %v", err)
	}
	defer database.Close(reader)

	var count int64
	if err := reader.Model(&models.Game{}).Count(&count).Error; err != nil || count != 1 {
		t.Fatalf("Reader count = %d, %v", count, err)
	}
	if err := reader.Create(&models.Category{Name: "nope"}).Error; err == nil {
		t.Error("Expected the reader account to be denied writes")
	}
}
