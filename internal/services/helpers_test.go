package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/testutil"
	"github.com/localnerve/gamestore/internal/types"
)

type env struct {
	db     *gorm.DB
	az     *authz.Engine
	store  *objstore.Store
	admin  *models.User
	dev    *models.User
	dev2   *models.User
	player *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := objstore.NewMemory()
	t.Cleanup(func() { _ = store.Close() })
	return &env{
		db:     db,
		az:     authz.MustNewEngine(),
		store:  store,
		admin:  testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		dev:    testutil.CreateUser(t, db, "dev", models.RoleDeveloper),
		dev2:   testutil.CreateUser(t, db, "dev2", models.RoleDeveloper),
		player: testutil.CreateUser(t, db, "player", models.RolePlayer),
	}
}

func actor(t *testing.T, u *models.User) authz.Actor {
	t.Helper()
	a, err := authz.ActorFor(u)
	if err != nil {
		t.Fatalf("ActorFor failed: %v", err)
	}
	return a
}

func upload(name, content string) *services.Upload {
	return &services.Upload{Filename: name, ContentType: "application/octet-stream", Body: strings.NewReader(content)}
}

func strPtr(s string) *string { return &s }

func expectType(t *testing.T, err error, typ string) {
	t.Helper()
	if !types.IsType(err, typ) {
		t.Fatalf("Expected %s error, got %v", typ, err)
	}
}

// capturingQueue records published events.
type capturingQueue struct {
	mu     sync.Mutex
	events []map[string]any
	err    error
}

func (q *capturingQueue) PublishEvent(_ context.Context, evt map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, evt)
	return nil
}

func (q *capturingQueue) Close() error { return nil }
