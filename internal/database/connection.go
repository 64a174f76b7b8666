// connection.go
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

package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	glebarez "github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/logging"
	"github.com/localnerve/gamestore/internal/models"
)

// Connect establishes the read/write database connection based on the configured DB_TYPE
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := open(cfg, cfg.DBUser, cfg.DBPassword, cfg.DBConnectionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Infof("Connected to %s database: %s", cfg.DBType, cfg.DBDatabase)
	return db, nil
}

// ConnectReader establishes the connection used by ranking and analytics reads.
// It may use a separate, read-only account (DB_READ_USER).
func ConnectReader(cfg *config.Config) (*gorm.DB, error) {
	db, err := open(cfg, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBReadConnectionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to reader database: %w", err)
	}
	log.Infof("Connected to %s reader database: %s", cfg.DBType, cfg.DBDatabase)
	return db, nil
}

// Dialector builds the gorm dialector for the configured DB_TYPE and credentials
func Dialector(cfg *config.Config, user, password string) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			user,
			password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBDatabase,
		)
		return mysql.Open(dsn), nil

	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			user,
			password,
			cfg.DBDatabase,
			cfg.DBPort,
		)
		return postgres.Open(dsn), nil

	case "sqlite":
		// Pure Go driver; DBDatabase is the file path
		return glebarez.Open(sqliteDSN(cfg.DBDatabase)), nil

	case "sqlite3":
		// cgo driver
		return sqlite.Open(sqliteDSN(cfg.DBDatabase)), nil

	case "sqlserver", "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			user,
			password,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBDatabase,
		)
		return sqlserver.Open(dsn), nil
	}

	return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
}

// sqliteDSN turns on foreign keys, which sqlite leaves off by default.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func open(cfg *config.Config, user, password string, limit int) (*gorm.DB, error) {
	dialector, err := Dialector(cfg, user, password)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, NewGormConfig())
	if err != nil {
		return nil, err
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if cfg.DBType == "sqlite" || cfg.DBType == "sqlite3" {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		limit = 1
	}
	if limit < 1 {
		limit = 1
	}
	sqlDB.SetMaxOpenConns(limit)
	sqlDB.SetMaxIdleConns(max(limit/2, 1))

	return db, nil
}

// NewGormConfig is the gorm configuration shared by the service and its tests.
func NewGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logging.GormLogger(),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AutoMigrate runs automatic migrations for all models, then adds the
// dialect specific base screenshot index.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	return ensureBaseScreenshotIndex(db)
}

// ensureBaseScreenshotIndex enforces at most one base screenshot per game.
func ensureBaseScreenshotIndex(db *gorm.DB) error {
	name := models.BaseScreenshotIndex
	migrator := db.Migrator()

	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON screenshots (game_id) WHERE is_base", name)).Error

	case "sqlserver":
		if migrator.HasIndex(&models.Screenshot{}, name) {
			return nil
		}
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON screenshots (game_id) WHERE is_base = 1", name)).Error

	case "mysql":
		// No partial indexes; index a generated column that is NULL unless is_base.
		if !migrator.HasColumn(&models.Screenshot{}, "base_game_id") {
			if err := db.Exec("ALTER TABLE screenshots ADD COLUMN base_game_id BIGINT UNSIGNED " +
				"AS (IF(is_base, game_id, NULL)) VIRTUAL").Error; err != nil {
				return err
			}
		}
		if migrator.HasIndex(&models.Screenshot{}, name) {
			return nil
		}
		return db.Exec(fmt.Sprintf("CREATE UNIQUE INDEX %s ON screenshots (base_game_id)", name)).Error
	}

	log.Warnf("No base screenshot index for dialect %s; relying on application checks", db.Dialector.Name())
	return nil
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	// sqlite, postgres, mysql/mariadb, sqlserver
	for _, marker := range []string{
		"UNIQUE constraint failed",
		"duplicate key value",
		"Duplicate entry",
		"Cannot insert duplicate key",
		models.BaseScreenshotIndex,
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
