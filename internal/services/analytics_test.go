package services_test

import (
	"testing"
	"time"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/testutil"
	"github.com/localnerve/gamestore/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func mustQuery(t *testing.T, game, developer, interval, start, end string) services.AnalyticsQuery {
	t.Helper()
	q, err := services.ParseAnalyticsQuery(game, developer, interval, start, end)
	if err != nil {
		t.Fatalf("ParseAnalyticsQuery failed: %v", err)
	}
	return q
}

func TestWeeklyDownloadSeries(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Weekly", models.GameStatusApproved, date(2023, 12, 1))
	testutil.AddDownloads(t, e.db, game, 1, date(2023, 12, 31))
	testutil.AddDownloads(t, e.db, game, 2, date(2024, 1, 2))
	testutil.AddDownloads(t, e.db, game, 1, date(2024, 1, 7))
	testutil.AddDownloads(t, e.db, game, 1, date(2024, 1, 8))
	testutil.AddDownloads(t, e.db, game, 1, date(2024, 1, 9))

	q := mustQuery(t, "", "", "weekly", "2024-01-01", "2024-01-08")
	series, err := services.DownloadSeries(e.db, e.az, actor(t, e.dev), q)
	if err != nil {
		t.Fatalf("DownloadSeries failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("Expected 2 weekly buckets, got %+v", series)
	}
	if series[0].Period != "2024-01-01" || series[1].Period != "2024-01-08" {
		t.Errorf("Unexpected periods %+v", series)
	}
	var total int64
	for _, p := range series {
		total += p.Count
	}
	if total != 4 {
		t.Errorf("Expected 4 events in range, got %d", total)
	}
	if series[0].Count != 3 || series[1].Count != 1 {
		t.Errorf("Unexpected counts %+v", series)
	}
}

func TestDailySeriesZeroFills(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Daily", models.GameStatusApproved, date(2024, 1, 1))
	testutil.AddDownloads(t, e.db, game, 1, date(2024, 1, 1))
	testutil.AddDownloads(t, e.db, game, 2, date(2024, 1, 4))

	series, err := services.DownloadSeries(e.db, e.az, actor(t, e.admin), mustQuery(t, "", "", "", "", ""))
	if err != nil {
		t.Fatalf("DownloadSeries failed: %v", err)
	}
	want := []int64{1, 0, 0, 2}
	if len(series) != len(want) {
		t.Fatalf("Expected %d buckets, got %+v", len(want), series)
	}
	for i, c := range want {
		if series[i].Count != c {
			t.Errorf("Bucket %d: expected %d, got %d", i, c, series[i].Count)
		}
	}
}

func TestRatingAnalytics(t *testing.T) {
	e := newEnv(t)
	game := testutil.CreateGame(t, e.db, e.dev, "Rated", models.GameStatusApproved, date(2024, 1, 1))
	others := testutil.CreateGame(t, e.db, e.dev2, "Others", models.GameStatusApproved, date(2024, 1, 1))
	u1 := testutil.CreateUser(t, e.db, "u1", models.RolePlayer)
	u2 := testutil.CreateUser(t, e.db, "u2", models.RolePlayer)
	testutil.AddReview(t, e.db, game, u1, 5, date(2024, 1, 3))
	testutil.AddReview(t, e.db, game, u2, 2, date(2024, 1, 3))
	testutil.AddReview(t, e.db, others, u1, 1, date(2024, 1, 3))

	dev := actor(t, e.dev)
	avg, err := services.AverageRatingSeries(e.db, e.az, dev, mustQuery(t, "", "", "monthly", "", ""))
	if err != nil {
		t.Fatalf("AverageRatingSeries failed: %v", err)
	}
	if len(avg) != 1 || avg[0].Period != "2024-01-01" || avg[0].Average != 3.5 || avg[0].Count != 2 {
		t.Errorf("Unexpected average series %+v", avg)
	}

	dist, err := services.RatingDistribution(e.db, e.az, dev, mustQuery(t, "", "", "", "", ""))
	if err != nil {
		t.Fatalf("RatingDistribution failed: %v", err)
	}
	if len(dist) != 5 {
		t.Fatalf("Expected 5 buckets, got %+v", dist)
	}
	// the other developer's 1-star review is not counted
	want := []int64{0, 1, 0, 0, 1}
	for i, c := range want {
		if dist[i].Rating != i+1 || dist[i].Count != c {
			t.Errorf("Bucket %d: expected rating %d count %d, got %+v", i, i+1, c, dist[i])
		}
	}

	all, err := services.RatingDistribution(e.db, e.az, actor(t, e.admin), mustQuery(t, "", "", "", "", ""))
	if err != nil {
		t.Fatalf("RatingDistribution failed: %v", err)
	}
	if all[0].Count != 1 {
		t.Errorf("Expected admin to see every review, got %+v", all)
	}
}

func TestAnalyticsAccess(t *testing.T) {
	e := newEnv(t)
	mine := testutil.CreateGame(t, e.db, e.dev, "Mine", models.GameStatusPending, date(2024, 1, 1))
	theirs := testutil.CreateGame(t, e.db, e.dev2, "Theirs", models.GameStatusApproved, date(2024, 1, 1))

	id := func(g *models.Game) string { return testutil.FormatID(g.ID) }

	tests := []struct {
		name  string
		actor authz.Actor
		q     services.AnalyticsQuery
		want  string
	}{
		{"player", actor(t, e.player), mustQuery(t, "", "", "", "", ""), types.TypePermission},
		{"anonymous", authz.AnonymousActor(), mustQuery(t, "", "", "", "", ""), types.TypeAuthentication},
		{"developer own", actor(t, e.dev), mustQuery(t, id(mine), "", "", "", ""), ""},
		{"developer foreign game", actor(t, e.dev), mustQuery(t, id(theirs), "", "", "", ""), types.TypePermission},
		{"developer filter", actor(t, e.dev), mustQuery(t, "", testutil.FormatID(e.dev.ID), "", "", ""), types.TypePermission},
		{"missing game", actor(t, e.dev), mustQuery(t, "9999", "", "", "", ""), types.TypeNotFound},
		{"admin developer filter", actor(t, e.admin), mustQuery(t, "", testutil.FormatID(e.dev2.ID), "", "", ""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.DownloadSeries(e.db, e.az, tt.actor, tt.q)
			if tt.want == "" {
				if err != nil {
					t.Errorf("Expected success, got %v", err)
				}
				return
			}
			expectType(t, err, tt.want)
		})
	}
}

func TestParseAnalyticsQuery(t *testing.T) {
	// game, developer, interval, start, end
	bad := map[string][5]string{
		"interval":        {"", "", "hourly", "", ""},
		"start format":    {"", "", "", "01/02/2024", ""},
		"end format":      {"", "", "", "", "2024-13-01"},
		"start after end": {"", "", "", "2024-02-01", "2024-01-01"},
		"game id":         {"abc", "", "", "", ""},
	}
	for name, args := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := services.ParseAnalyticsQuery(args[0], args[1], args[2], args[3], args[4])
			expectType(t, err, types.TypeValidation)
		})
	}

	q, err := services.ParseAnalyticsQuery("", "", "", "2024-01-01", "2024-01-01")
	if err != nil {
		t.Fatalf("Expected a single day range to parse: %v", err)
	}
	if q.Range.End.Sub(*q.Range.Start) != 24*time.Hour {
		t.Errorf("Expected end to include the whole day")
	}
}
