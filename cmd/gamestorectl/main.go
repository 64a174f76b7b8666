// main.go
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

// Command gamestorectl runs administrative tasks against the gamestore
// database: migrations, admin bootstrap, role changes and session cleanup.
package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/logging"
	"github.com/localnerve/gamestore/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withDB loads configuration, connects and runs fn.
func withDB(fn func(cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	defer logging.Close(logging.Setup(cfg))
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(cfg, db)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gamestorectl",
		Short:         "Gamestore administration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newCreateAdminCmd(), newPromoteCmd(), newSessionsCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(cfg *config.Config, db *gorm.DB) error {
				if err := database.AutoMigrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database %s\n", cfg.DBType, cfg.DBDatabase)
				return nil
			})
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("GAMESTORE_ADMIN_PASSWORD")
			}
			return withDB(func(_ *config.Config, db *gorm.DB) error {
				user, err := services.CreateAdmin(db, username, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default $GAMESTORE_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	var username, role string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change the role of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(_ *config.Config, db *gorm.DB) error {
				user, err := services.SetRole(db, username, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Username, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to change")
	cmd.Flags().StringVar(&role, "role", "", "admin, developer or player")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	sessions := &cobra.Command{Use: "sessions", Short: "Manage login sessions"}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(_ *config.Config, db *gorm.DB) error {
				n, err := services.PurgeExpiredSessions(db, time.Now())
				if err != nil {
					return err
				}
				log.WithField("sessions", n).Info("purged expired sessions")
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d sessions\n", n)
				return nil
			})
		},
	}
	sessions.AddCommand(purge)
	return sessions
}
