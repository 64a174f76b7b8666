package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/testutil"
	"github.com/localnerve/gamestore/internal/types"
)

func TestRecordReview(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Reviewed", models.GameStatusApproved, testutil.Epoch)
	player := actor(t, e.player)

	review, err := services.RecordReview(e.db, e.az, player, game.ID, 5, "Great")
	if err != nil {
		t.Fatalf("RecordReview failed: %v", err)
	}
	if review.User.Username != "player" {
		t.Errorf("Expected the author to be loaded, got %q", review.User.Username)
	}

	_, err = services.RecordReview(e.db, e.az, player, game.ID, 4, "Again")
	expectType(t, err, types.TypeConflict)
	ce, _ := types.AsCustomError(err)
	if ce.Message != "You have already reviewed this game." {
		t.Errorf("Unexpected conflict message %q", ce.Message)
	}

	var count int64
	e.db.Model(&models.Review{}).Where("game_id = ? AND user_id = ?", game.ID, e.player.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected one review, got %d", count)
	}
}

func TestRecordReviewRejections(t *testing.T) {
	e := newEnv(t)
	approved := testutil.CreateGame(t, e.db, e.dev, "Open", models.GameStatusApproved, testutil.Epoch)
	pending := testutil.CreateGame(t, e.db, e.dev, "Closed", models.GameStatusPending, testutil.Epoch)

	for _, rating := range []int{0, 6, -1} {
		_, err := services.RecordReview(e.db, e.az, actor(t, e.player), approved.ID, rating, "")
		expectType(t, err, types.TypeValidation)
	}

	_, err := services.RecordReview(e.db, e.az, authz.AnonymousActor(), approved.ID, 5, "")
	expectType(t, err, types.TypeAuthentication)

	_, err = services.RecordReview(e.db, e.az, actor(t, e.player), pending.ID, 5, "")
	expectType(t, err, types.TypeNotFound)

	_, err = services.RecordReview(e.db, e.az, actor(t, e.player), 9999, 5, "")
	expectType(t, err, types.TypeNotFound)
}

func TestConcurrentDuplicateReview(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Race", models.GameStatusApproved, testutil.Epoch)
	player := actor(t, e.player)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = services.RecordReview(e.db, e.az, player, game.ID, 4, "")
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case types.IsType(err, types.TypeConflict):
			conflicts++
		default:
			t.Errorf("Unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("Expected one success and one conflict, got %d/%d", ok, conflicts)
	}
}

func TestUpdateAndDeleteReview(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Editable", models.GameStatusApproved, testutil.Epoch)
	review := testutil.AddReview(t, e.db, game, e.player, 3, testutil.Epoch)

	rating := 4
	updated, err := services.UpdateReview(e.db, e.az, actor(t, e.player), review.ID, &rating, strPtr("Better"))
	if err != nil {
		t.Fatalf("UpdateReview failed: %v", err)
	}
	if updated.Rating != 4 || updated.Comment != "Better" {
		t.Errorf("Unexpected review %+v", updated)
	}

	bad := 9
	_, err = services.UpdateReview(e.db, e.az, actor(t, e.player), review.ID, &bad, nil)
	expectType(t, err, types.TypeValidation)

	_, err = services.UpdateReview(e.db, e.az, actor(t, e.dev), review.ID, &rating, nil)
	expectType(t, err, types.TypePermission)

	err = services.DeleteReview(e.db, e.az, actor(t, e.dev2), review.ID)
	expectType(t, err, types.TypePermission)

	if err := services.DeleteReview(e.db, e.az, actor(t, e.admin), review.ID); err != nil {
		t.Fatalf("Admin DeleteReview failed: %v", err)
	}
	_, err = services.GetReview(e.db, actor(t, e.player), review.ID)
	expectType(t, err, types.TypeNotFound)
}

func TestListReviewsScoped(t *testing.T) {
	e := newEnv(t)
	approved := testutil.CreateGame(t, e.db, e.dev, "Open", models.GameStatusApproved, testutil.Epoch)
	pending := testutil.CreateGame(t, e.db, e.dev, "Closed", models.GameStatusPending, testutil.Epoch)
	testutil.AddReview(t, e.db, approved, e.player, 5, testutil.Epoch)
	testutil.AddReview(t, e.db, pending, e.player, 4, testutil.Epoch)

	res, err := services.ListReviews(e.db, authz.AnonymousActor(), services.ReviewFilters{}, services.FirstPage())
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if res.Count != 1 || res.Results[0].GameID != approved.ID {
		t.Errorf("Expected only the approved game's review, got %d", res.Count)
	}

	res, err = services.ListReviews(e.db, actor(t, e.dev), services.ReviewFilters{GameID: pending.ID}, services.FirstPage())
	if err != nil {
		t.Fatalf("ListReviews failed: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("Expected the owner to see reviews of a pending game, got %d", res.Count)
	}
}

func TestAddToLibrary(t *testing.T) {
	e := newEnv(t)
	approved := testutil.CreateGame(t, e.db, e.dev, "Keeper", models.GameStatusApproved, testutil.Epoch)
	pending := testutil.CreateGame(t, e.db, e.dev, "Draft", models.GameStatusPending, testutil.Epoch)
	player := actor(t, e.player)

	entry, err := services.AddToLibrary(e.db, e.az, player, approved.ID)
	if err != nil {
		t.Fatalf("AddToLibrary failed: %v", err)
	}

	_, err = services.AddToLibrary(e.db, e.az, player, approved.ID)
	expectType(t, err, types.TypeConflict)
	ce, _ := types.AsCustomError(err)
	if ce.Message != "This game is already in your library." {
		t.Errorf("Unexpected conflict message %q", ce.Message)
	}

	// the owner sees the pending game, so the failure is the status rule
	_, err = services.AddToLibrary(e.db, e.az, actor(t, e.dev), pending.ID)
	expectType(t, err, types.TypeValidation)

	_, err = services.AddToLibrary(e.db, e.az, player, pending.ID)
	expectType(t, err, types.TypeNotFound)

	_, err = services.AddToLibrary(e.db, e.az, authz.AnonymousActor(), approved.ID)
	expectType(t, err, types.TypeAuthentication)

	page, err := services.ListLibrary(e.db, e.az, player, 0, services.FirstPage())
	if err != nil {
		t.Fatalf("ListLibrary failed: %v", err)
	}
	if page.Count != 1 || page.Results[0].Game.Title != "Keeper" {
		t.Errorf("Unexpected library %+v", page)
	}

	_, err = services.ListLibrary(e.db, e.az, actor(t, e.dev), e.player.ID, services.FirstPage())
	expectType(t, err, types.TypePermission)
	if _, err := services.ListLibrary(e.db, e.az, actor(t, e.admin), e.player.ID, services.FirstPage()); err != nil {
		t.Errorf("Expected admin to read any library: %v", err)
	}

	err = services.RemoveFromLibrary(e.db, e.az, actor(t, e.dev), entry.ID)
	expectType(t, err, types.TypePermission)
	if err := services.RemoveFromLibrary(e.db, e.az, player, entry.ID); err != nil {
		t.Fatalf("RemoveFromLibrary failed: %v", err)
	}
	err = services.RemoveFromLibrary(e.db, e.az, player, entry.ID)
	expectType(t, err, types.TypeNotFound)
}

func TestBaseScreenshotIsUnique(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	game := testutil.CreateGame(t, e.db, e.dev, "Pretty", models.GameStatusApproved, testutil.Epoch)
	dev := actor(t, e.dev)

	base, err := services.CreateScreenshot(ctx, e.db, e.az, e.store, dev, game.ID, true, upload("a.png", "1"))
	if err != nil {
		t.Fatalf("CreateScreenshot failed: %v", err)
	}
	_, err = services.CreateScreenshot(ctx, e.db, e.az, e.store, dev, game.ID, true, upload("b.png", "2"))
	expectType(t, err, types.TypeConflict)

	other, err := services.CreateScreenshot(ctx, e.db, e.az, e.store, dev, game.ID, false, upload("c.jpg", "3"))
	if err != nil {
		t.Fatalf("CreateScreenshot failed: %v", err)
	}
	_, err = services.SetBaseScreenshot(e.db, e.az, dev, other.ID, true)
	expectType(t, err, types.TypeConflict)

	if _, err := services.SetBaseScreenshot(e.db, e.az, dev, base.ID, false); err != nil {
		t.Fatalf("Unset base failed: %v", err)
	}
	if _, err := services.SetBaseScreenshot(e.db, e.az, dev, other.ID, true); err != nil {
		t.Fatalf("Set base failed: %v", err)
	}

	var bases int64
	e.db.Model(&models.Screenshot{}).Where("game_id = ? AND is_base = ?", game.ID, true).Count(&bases)
	if bases != 1 {
		t.Errorf("Expected exactly one base screenshot, got %d", bases)
	}

	loaded, err := services.GetGame(e.db, authz.AnonymousActor(), game.ID)
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if b := loaded.BaseScreenshot(); b == nil || b.ID != other.ID {
		t.Errorf("Expected base screenshot %d, got %+v", other.ID, b)
	}
}

func TestScreenshotPermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	game := testutil.CreateGame(t, e.db, e.dev, "Guarded", models.GameStatusApproved, testutil.Epoch)

	_, err := services.CreateScreenshot(ctx, e.db, e.az, e.store, actor(t, e.dev2), game.ID, false, upload("x.png", "1"))
	expectType(t, err, types.TypePermission)
	_, err = services.CreateScreenshot(ctx, e.db, e.az, e.store, actor(t, e.player), game.ID, false, upload("x.png", "1"))
	expectType(t, err, types.TypePermission)
	_, err = services.CreateScreenshot(ctx, e.db, e.az, e.store, actor(t, e.dev), game.ID, false, upload("x.exe", "1"))
	expectType(t, err, types.TypeValidation)

	shot, err := services.CreateScreenshot(ctx, e.db, e.az, e.store, actor(t, e.admin), game.ID, false, upload("x.webp", "1"))
	if err != nil {
		t.Fatalf("Admin CreateScreenshot failed: %v", err)
	}
	err = services.DeleteScreenshot(ctx, e.db, e.az, e.store, actor(t, e.dev2), shot.ID)
	expectType(t, err, types.TypePermission)
	if err := services.DeleteScreenshot(ctx, e.db, e.az, e.store, actor(t, e.dev), shot.ID); err != nil {
		t.Fatalf("DeleteScreenshot failed: %v", err)
	}
	if ok, _ := e.store.Exists(ctx, shot.ImageKey); ok {
		t.Error("Expected the image to be removed")
	}
}

func TestDownloadAuthorization(t *testing.T) {
	e := newEnv(t)
	approved := testutil.CreateGame(t, e.db, e.dev, "Public", models.GameStatusApproved, testutil.Epoch)
	pending := testutil.CreateGame(t, e.db, e.dev, "Private", models.GameStatusPending, testutil.Epoch)

	tests := []struct {
		name  string
		actor authz.Actor
		game  uint64
		want  string
	}{
		{"player approved", actor(t, e.player), approved.ID, ""},
		{"anonymous approved", authz.AnonymousActor(), approved.ID, ""},
		{"owner pending", actor(t, e.dev), pending.ID, ""},
		{"admin pending", actor(t, e.admin), pending.ID, ""},
		{"player pending", actor(t, e.player), pending.ID, types.TypePermission},
		{"other developer pending", actor(t, e.dev2), pending.ID, types.TypePermission},
		{"anonymous pending", authz.AnonymousActor(), pending.ID, types.TypeAuthentication},
		{"missing", actor(t, e.player), 9999, types.TypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := services.Download(e.db, e.az, tt.actor, tt.game, services.DownloadMeta{IPAddress: "127.0.0.1"})
			if tt.want == "" {
				if err != nil {
					t.Errorf("Expected success, got %v", err)
				}
				return
			}
			expectType(t, err, tt.want)
		})
	}

	var count int64
	e.db.Model(&models.DownloadEvent{}).Count(&count)
	if count != 4 {
		t.Errorf("Expected 4 recorded events, got %d", count)
	}
}

func TestRecordDownloadMetadataAndPublish(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Tracked", models.GameStatusApproved, testutil.Epoch)

	event, _, err := services.Download(e.db, e.az, actor(t, e.player), game.ID, services.DownloadMeta{
		IPAddress:  "192.168.1.20",
		DeviceInfo: "Windows 11",
		UserAgent:  "GameStoreLauncher/1.0",
		Client:     map[string]any{"launcher": "desktop"},
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	var stored models.DownloadEvent
	if err := e.db.First(&stored, event.ID).Error; err != nil {
		t.Fatalf("Load event failed: %v", err)
	}
	if stored.UserID == nil || *stored.UserID != e.player.ID {
		t.Errorf("Expected user %d, got %v", e.player.ID, stored.UserID)
	}
	if stored.DeviceInfo != "Windows 11" || stored.Client.Map()["launcher"] != "desktop" {
		t.Errorf("Unexpected metadata %+v", stored)
	}

	q := &capturingQueue{}
	services.PublishDownload(context.Background(), q, event)
	if len(q.events) != 1 || q.events[0]["game_id"] != game.ID {
		t.Errorf("Unexpected published events %v", q.events)
	}

	// publish failures are swallowed
	services.PublishDownload(context.Background(), &capturingQueue{err: errors.New("broker down")}, event)
}

func TestDownloadHistoryIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Counted", models.GameStatusApproved, testutil.Epoch)
	testutil.AddDownloads(t, e.db, game, 3, testutil.Epoch)

	_, err := services.ListDownloads(e.db, e.az, actor(t, e.dev), services.DownloadFilters{}, services.FirstPage())
	expectType(t, err, types.TypePermission)
	_, err = services.ListDownloads(e.db, e.az, authz.AnonymousActor(), services.DownloadFilters{}, services.FirstPage())
	expectType(t, err, types.TypeAuthentication)

	admin := actor(t, e.admin)
	page, err := services.ListDownloads(e.db, e.az, admin, services.DownloadFilters{GameID: game.ID}, services.FirstPage())
	if err != nil {
		t.Fatalf("ListDownloads failed: %v", err)
	}
	if page.Count != 3 {
		t.Errorf("Expected 3 events, got %d", page.Count)
	}

	id := page.Results[0].ID
	if _, err := services.GetDownload(e.db, e.az, admin, id); err != nil {
		t.Errorf("GetDownload failed: %v", err)
	}
	if err := services.DeleteDownload(e.db, e.az, admin, id); err != nil {
		t.Fatalf("DeleteDownload failed: %v", err)
	}
	err = services.DeleteDownload(e.db, e.az, admin, id)
	expectType(t, err, types.TypeNotFound)
}

func TestConcurrentDuplicateLibraryEntry(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Shelf", models.GameStatusApproved, testutil.Epoch)
	player := actor(t, e.player)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = services.AddToLibrary(e.db, e.az, player, game.ID)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case types.IsType(err, types.TypeConflict):
			conflicts++
		default:
			t.Errorf("Unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("Expected one success and one conflict, got %d/%d", ok, conflicts)
	}

	var count int64
	e.db.Model(&models.LibraryEntry{}).Where("game_id = ?", game.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 library entry, got %d", count)
	}
}

func TestRecordDownloadCutsMetadataOnCharacters(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Wide", models.GameStatusApproved, testutil.Epoch)

	device := strings.Repeat("a", 254) + "جهاز"
	agent := strings.Repeat("ü", 600)
	event, _, err := services.Download(e.db, e.az, actor(t, e.player), game.ID, services.DownloadMeta{
		DeviceInfo: device,
		UserAgent:  agent,
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	var stored models.DownloadEvent
	if err := e.db.First(&stored, event.ID).Error; err != nil {
		t.Fatalf("Load event failed: %v", err)
	}
	if !utf8.ValidString(stored.DeviceInfo) || !utf8.ValidString(stored.UserAgent) {
		t.Fatalf("Expected valid UTF-8, got %q / %q", stored.DeviceInfo, stored.UserAgent)
	}
	if want := strings.Repeat("a", 254) + "ج"; stored.DeviceInfo != want {
		t.Errorf("Expected device info cut to 255 characters, got %d characters", utf8.RuneCountInString(stored.DeviceInfo))
	}
	if n := utf8.RuneCountInString(stored.UserAgent); n != 512 {
		t.Errorf("Expected user agent cut to 512 characters, got %d", n)
	}
}
