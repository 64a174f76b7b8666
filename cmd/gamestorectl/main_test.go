package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAdminCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.db")
	t.Setenv("ENV_FILE", "")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DATABASE", path)
	t.Setenv("JWT_SECRET", "ctl-secret")
	t.Setenv("STORAGE_DRIVER", "mem")
	t.Setenv("LOG_LEVEL", "error")

	out, err := run(t, "migrate")
	if err != nil || !strings.Contains(out, "migrated sqlite") {
		t.Fatalf("migrate: %v %q", err, out)
	}

	out, err = run(t, "createadmin", "--username", "root", "--email", "root@example.com", "--password", "longenough")
	if err != nil || !strings.Contains(out, "created admin root") {
		t.Fatalf("createadmin: %v %q", err, out)
	}
	if _, err := run(t, "createadmin", "--username", "root", "--email", "root@example.com", "--password", "longenough"); err == nil {
		t.Error("Expected a duplicate admin to fail")
	}
	if _, err := run(t, "createadmin", "--username", "nopass", "--email", "n@example.com"); err == nil {
		t.Error("Expected a missing password to fail validation")
	}

	out, err = run(t, "promote", "--username", "root", "--role", "developer")
	if err != nil || !strings.Contains(out, "root is now developer") {
		t.Fatalf("promote: %v %q", err, out)
	}
	if _, err := run(t, "promote", "--username", "ghost", "--role", "admin"); err == nil {
		t.Error("Expected promoting a missing user to fail")
	}

	out, err = run(t, "sessions", "purge")
	if err != nil || !strings.Contains(out, "purged 0 sessions") {
		t.Fatalf("sessions purge: %v %q", err, out)
	}

	db, err := database.Connect(&config.Config{DBType: "sqlite", DBDatabase: path})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer database.Close(db)
	var user models.User
	if err := db.Where("username = ?", "root").First(&user).Error; err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if user.Role != models.RoleDeveloper {
		t.Errorf("Expected developer role, got %s", user.Role)
	}
}
