// games_test.go
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

package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/handlers"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/testutil"
)

func gamePath(id uint64, suffix string) string {
	return "/api/games/" + testutil.FormatID(id) + suffix
}

func TestGameModerationLifecycle(t *testing.T) {
	s := newServer(t, nil)

	game := s.submitGame(t, s.dev, "Sky Runner")
	if game.Status != models.GameStatusPending || game.Developer != s.dev.ID {
		t.Fatalf("Expected a pending game owned by dev, got %+v", game)
	}
	if game.FileName != "Sky Runner.zip" {
		t.Errorf("Expected the original file name, got %q", game.FileName)
	}
	if game.AverageRating != nil || game.DownloadCount != 0 {
		t.Errorf("Expected empty aggregates, got %+v", game)
	}

	// Pending games are hidden from everyone but the owner and admins.
	resp, body := s.get(t, "/api/games", nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	if page := decode[gamePage](t, body); page.Count != 0 {
		t.Errorf("Expected no public games, got %d", page.Count)
	}
	resp, body = s.get(t, gamePath(game.ID, ""), s.player)
	expectStatus(t, resp, body, fiber.StatusNotFound)
	resp, body = s.get(t, gamePath(game.ID, ""), s.dev)
	expectStatus(t, resp, body, fiber.StatusOK)
	resp, body = s.get(t, "/api/games?status=pending", s.admin)
	expectStatus(t, resp, body, fiber.StatusOK)
	if page := decode[gamePage](t, body); page.Count != 1 {
		t.Errorf("Expected the admin to see 1 pending game, got %d", page.Count)
	}

	// Owners cannot moderate their own games.
	resp, body = s.sendJSON(t, http.MethodPatch, gamePath(game.ID, ""), s.dev, map[string]string{"status": "approved"})
	expectStatus(t, resp, body, fiber.StatusBadRequest)
	if e := decode[errorBody](t, body); e.Errors["status"] == "" {
		t.Errorf("Expected a status field error, got %+v", e)
	}
	resp, body = s.do(t, request{method: http.MethodPost, path: gamePath(game.ID, "/approve"), as: s.dev})
	expectStatus(t, resp, body, fiber.StatusForbidden)

	s.approve(t, game.ID)

	resp, body = s.get(t, "/api/games", nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	page := decode[gamePage](t, body)
	if page.Count != 1 || page.Results[0].ID != game.ID {
		t.Fatalf("Expected the approved game to be public, got %+v", page)
	}

	// Rejection hides it again and keeps the reason.
	resp, body = s.sendJSON(t, http.MethodPost, gamePath(game.ID, "/reject"), s.admin, map[string]string{"reason": "Broken archive"})
	expectStatus(t, resp, body, fiber.StatusOK)
	rejected := decode[handlers.GameView](t, body)
	if rejected.Status != models.GameStatusRejected || rejected.RejectionReason != "Broken archive" {
		t.Errorf("Unexpected rejected game %+v", rejected)
	}
	resp, body = s.get(t, gamePath(game.ID, ""), nil)
	expectStatus(t, resp, body, fiber.StatusNotFound)
}

func TestGameCreateRules(t *testing.T) {
	s := newServer(t, nil)

	t.Run("players cannot submit", func(t *testing.T) {
		resp, body := s.sendForm(t, http.MethodPost, "/api/games", s.player,
			map[string][]string{"title": {"Nope"}},
			formFile{field: "file", name: "nope.zip", content: "x"})
		expectStatus(t, resp, body, fiber.StatusForbidden)
	})

	t.Run("bad extension", func(t *testing.T) {
		resp, body := s.sendForm(t, http.MethodPost, "/api/games", s.dev,
			map[string][]string{"title": {"Script"}},
			formFile{field: "file", name: "script.sh", content: "x"})
		expectStatus(t, resp, body, fiber.StatusBadRequest)
		if e := decode[errorBody](t, body); e.Errors["file"] == "" {
			t.Errorf("Expected a file field error, got %+v", e)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		resp, body := s.sendForm(t, http.MethodPost, "/api/games", s.dev, map[string][]string{"title": {"No file"}})
		expectStatus(t, resp, body, fiber.StatusBadRequest)
	})

	t.Run("developer cannot set status", func(t *testing.T) {
		resp, body := s.sendForm(t, http.MethodPost, "/api/games", s.dev,
			map[string][]string{"title": {"Eager"}, "status": {"approved"}},
			formFile{field: "file", name: "eager.zip", content: "x"})
		expectStatus(t, resp, body, fiber.StatusBadRequest)
	})

	t.Run("categories", func(t *testing.T) {
		resp, body := s.sendJSON(t, http.MethodPost, "/api/categories", s.admin, map[string]string{"name": "Puzzle"})
		expectStatus(t, resp, body, fiber.StatusCreated)
		cat := decode[handlers.CategoryView](t, body)

		resp, body = s.sendForm(t, http.MethodPost, "/api/games", s.dev,
			map[string][]string{"title": {"Blocks"}, "categories": {testutil.FormatID(cat.ID)}},
			formFile{field: "file", name: "blocks.7z", content: "x"})
		expectStatus(t, resp, body, fiber.StatusCreated)
		game := decode[handlers.GameView](t, body)
		if len(game.Categories) != 1 || game.Categories[0].Name != "Puzzle" {
			t.Fatalf("Expected the Puzzle category, got %+v", game.Categories)
		}

		resp, body = s.sendForm(t, http.MethodPost, "/api/games", s.dev,
			map[string][]string{"title": {"Ghost"}, "categories": {"9999"}},
			formFile{field: "file", name: "ghost.zip", content: "x"})
		expectStatus(t, resp, body, fiber.StatusBadRequest)
	})
}

func TestGameOwnership(t *testing.T) {
	s := newServer(t, nil)
	game := s.submitGame(t, s.dev, "Owned")

	// Another developer cannot see a pending game at all.
	resp, body := s.sendJSON(t, http.MethodPatch, gamePath(game.ID, ""), s.dev2, map[string]string{"title": "Mine"})
	expectStatus(t, resp, body, fiber.StatusNotFound)

	s.approve(t, game.ID)

	resp, body = s.sendJSON(t, http.MethodPatch, gamePath(game.ID, ""), s.dev2, map[string]string{"title": "Mine"})
	expectStatus(t, resp, body, fiber.StatusForbidden)
	resp, body = s.do(t, request{method: http.MethodDelete, path: gamePath(game.ID, ""), as: s.dev2})
	expectStatus(t, resp, body, fiber.StatusForbidden)

	resp, body = s.sendJSON(t, http.MethodPatch, gamePath(game.ID, ""), s.dev, map[string]string{"title": "Owned II"})
	expectStatus(t, resp, body, fiber.StatusOK)
	if g := decode[handlers.GameView](t, body); g.Title != "Owned II" || g.Status != models.GameStatusApproved {
		t.Errorf("Unexpected game after update %+v", g)
	}

	resp, body = s.do(t, request{method: http.MethodDelete, path: gamePath(game.ID, ""), as: s.dev})
	expectStatus(t, resp, body, fiber.StatusNoContent)
	resp, body = s.get(t, gamePath(game.ID, ""), s.admin)
	expectStatus(t, resp, body, fiber.StatusNotFound)
}

func TestGameDownload(t *testing.T) {
	s := newServer(t, nil)
	game := s.submitGame(t, s.dev, "Racer")

	// Players cannot fetch unapproved binaries.
	resp, body := s.do(t, request{method: http.MethodPost, path: gamePath(game.ID, "/download"), as: s.player})
	expectStatus(t, resp, body, fiber.StatusForbidden)

	s.approve(t, game.ID)

	resp, body = s.do(t, request{method: http.MethodPost, path: gamePath(game.ID, "/download")})
	expectStatus(t, resp, body, fiber.StatusUnauthorized)

	resp, body = s.do(t, request{
		method: http.MethodPost,
		path:   gamePath(game.ID, "/download"),
		as:     s.player,
		header: map[string]string{"X-Device-Info": "handheld"},
	})
	expectStatus(t, resp, body, fiber.StatusOK)
	if string(body) != "binary of Racer" {
		t.Errorf("Unexpected download body %q", body)
	}
	if cd := resp.Header.Get(fiber.HeaderContentDisposition); !strings.Contains(cd, `filename="Racer.zip"`) {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	resp, body = s.get(t, "/api/games/popular", nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	popular := decode[[]handlers.GameView](t, body)
	if len(popular) != 1 || popular[0].DownloadCount != 1 {
		t.Fatalf("Expected one game with one download, got %+v", popular)
	}

	resp, body = s.get(t, "/api/downloads?game="+testutil.FormatID(game.ID), s.admin)
	expectStatus(t, resp, body, fiber.StatusOK)
	events := decode[handlers.PageView[handlers.DownloadView]](t, body)
	if events.Count != 1 {
		t.Fatalf("Expected 1 download event, got %d", events.Count)
	}
	ev := events.Results[0]
	if ev.User == nil || *ev.User != s.player.ID || ev.DeviceInfo != "handheld" {
		t.Errorf("Unexpected download event %+v", ev)
	}

	// Binaries are never served through the public media route.
	resp, body = s.get(t, "/media/games/Racer.zip", nil)
	expectStatus(t, resp, body, fiber.StatusNotFound)
}

func TestReplaceGameFile(t *testing.T) {
	s := newServer(t, nil)
	game := s.submitGame(t, s.dev, "Patchy")
	s.approve(t, game.ID)

	resp, body := s.sendForm(t, http.MethodPost, gamePath(game.ID, "/file"), s.dev, nil,
		formFile{field: "file", name: "patchy-1.1.zip", content: "patched"})
	expectStatus(t, resp, body, fiber.StatusOK)
	if g := decode[handlers.GameView](t, body); g.FileName != "patchy-1.1.zip" {
		t.Errorf("Expected the new file name, got %q", g.FileName)
	}

	resp, body = s.do(t, request{method: http.MethodPost, path: gamePath(game.ID, "/download"), as: s.player})
	expectStatus(t, resp, body, fiber.StatusOK)
	if string(body) != "patched" {
		t.Errorf("Expected the replaced binary, got %q", body)
	}
}

func TestGameListQueries(t *testing.T) {
	s := newServer(t, nil)
	games := map[string]handlers.GameView{}
	for _, title := range []string{"Alpha Quest", "Beta Quest", "Gamma"} {
		g := s.submitGame(t, s.dev, title)
		s.approve(t, g.ID)
		games[title] = g
	}
	// top-rated only lists reviewed games
	for _, title := range []string{"Alpha Quest", "Gamma"} {
		testutil.AddReview(t, s.db, &models.Game{ID: games[title].ID, Title: title}, s.player, 4, testutil.Epoch)
	}

	cases := []struct {
		name   string
		query  string
		status int
		count  int64
	}{
		{"all", "", fiber.StatusOK, 3},
		{"search", "?search=quest", fiber.StatusOK, 2},
		{"developer", "?developer=" + testutil.FormatID(s.dev.ID), fiber.StatusOK, 3},
		{"other developer", "?developer=" + testutil.FormatID(s.dev2.ID), fiber.StatusOK, 0},
		{"top rated", "?sort=top-rated", fiber.StatusOK, 2},
		{"popular", "?sort=popular", fiber.StatusOK, 3},
		{"page size", "?page_size=2", fiber.StatusOK, 3},
		{"bad sort", "?sort=bogus", fiber.StatusBadRequest, 0},
		{"bad page", "?page=0", fiber.StatusBadRequest, 0},
		{"bad category", "?category=abc", fiber.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := s.get(t, "/api/games"+tc.query, nil)
			expectStatus(t, resp, body, tc.status)
			if tc.status != fiber.StatusOK {
				return
			}
			if page := decode[gamePage](t, body); page.Count != tc.count {
				t.Errorf("Expected count %d, got %d", tc.count, page.Count)
			}
		})
	}

	resp, body := s.get(t, "/api/games?page_size=2&page=2", nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	if page := decode[gamePage](t, body); len(page.Results) != 1 {
		t.Errorf("Expected 1 result on the second page, got %d", len(page.Results))
	}
}

func TestHomeSections(t *testing.T) {
	s := newServer(t, nil)
	g := s.submitGame(t, s.dev, "Listed")
	s.approve(t, g.ID)
	s.submitGame(t, s.dev, "Unlisted")

	for _, path := range []string{"/api/games/home-sections", "/api/home-sections"} {
		resp, body := s.get(t, path, s.admin)
		expectStatus(t, resp, body, fiber.StatusOK)
		sections := decode[map[string][]handlers.GameView](t, body)
		if len(sections) != 5 {
			t.Fatalf("Expected 5 sections, got %d", len(sections))
		}
		for name, games := range sections {
			for _, game := range games {
				if game.Status != models.GameStatusApproved {
					t.Errorf("Section %s lists a %s game", name, game.Status)
				}
			}
		}
	}

	resp, body := s.get(t, "/api/games/popular?limit=abc", nil)
	expectStatus(t, resp, body, fiber.StatusBadRequest)
}

func TestScreenshotsAreMedia(t *testing.T) {
	s := newServer(t, nil)
	game := s.submitGame(t, s.dev, "Pretty")
	s.approve(t, game.ID)

	resp, body := s.sendForm(t, http.MethodPost, "/api/screenshots", s.dev2,
		map[string][]string{"game": {testutil.FormatID(game.ID)}},
		formFile{field: "image", name: "shot.png", content: "x"})
	expectStatus(t, resp, body, fiber.StatusForbidden)

	resp, body = s.sendForm(t, http.MethodPost, "/api/screenshots", s.dev,
		map[string][]string{"game": {testutil.FormatID(game.ID)}, "is_base": {"true"}},
		formFile{field: "image", name: "shot.png", content: "pixels"})
	expectStatus(t, resp, body, fiber.StatusCreated)
	shot := decode[handlers.ScreenshotView](t, body)
	if shot.Image == nil || !shot.IsBase {
		t.Fatalf("Unexpected screenshot %+v", shot)
	}

	resp, body = s.get(t, *shot.Image, nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	if string(body) != "pixels" {
		t.Errorf("Unexpected image body %q", body)
	}

	resp, body = s.get(t, gamePath(game.ID, ""), nil)
	expectStatus(t, resp, body, fiber.StatusOK)
	if g := decode[handlers.GameView](t, body); g.BaseScreenshot == nil || *g.BaseScreenshot != *shot.Image {
		t.Errorf("Expected the base screenshot on the game, got %+v", g.BaseScreenshot)
	}
}
