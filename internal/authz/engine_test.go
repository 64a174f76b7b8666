package authz

import (
	"testing"

	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

func TestParseRole(t *testing.T) {
	tests := map[string]Role{
		"admin":     Admin,
		"developer": Developer,
		"player":    Player,
		"user":      Player,
		" Player ":  Player,
	}
	for in, want := range tests {
		got, err := ParseRole(in)
		if err != nil {
			t.Errorf("ParseRole(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseRole(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("Expected an error for an unknown role")
	}
}

func TestAuthorize(t *testing.T) {
	engine := MustNewEngine()

	admin := Actor{ID: 1, Role: Admin}
	dev := Actor{ID: 2, Role: Developer}
	otherDev := Actor{ID: 3, Role: Developer}
	player := Actor{ID: 4, Role: Player}
	anon := AnonymousActor()

	pendingGame := Resource{Kind: KindGame, OwnerID: dev.ID}
	approvedGame := Resource{Kind: KindGame, OwnerID: dev.ID, Public: true}
	ownReview := Resource{Kind: KindReview, OwnerID: player.ID, Public: true}
	events := Resource{Kind: KindDownloadEvent}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   string // "" allowed, else error type
	}{
		{"admin reads pending", admin, ActionRead, pendingGame, ""},
		{"admin moderates", admin, ActionModerate, pendingGame, ""},
		{"admin lists events", admin, ActionList, events, ""},

		{"anon reads approved", anon, ActionRead, approvedGame, ""},
		{"anon reads pending", anon, ActionRead, pendingGame, types.TypeAuthentication},
		{"anon creates game", anon, ActionCreate, Resource{Kind: KindGame}, types.TypeAuthentication},
		{"anon creates review", anon, ActionCreate, Resource{Kind: KindReview}, types.TypeAuthentication},
		{"anon downloads approved", anon, ActionDownload, approvedGame, ""},

		{"player reads approved", player, ActionRead, approvedGame, ""},
		{"player reads pending", player, ActionRead, pendingGame, types.TypePermission},
		{"player creates game", player, ActionCreate, Resource{Kind: KindGame}, types.TypePermission},
		{"player creates review", player, ActionCreate, Resource{Kind: KindReview}, ""},
		{"player updates own review", player, ActionUpdate, ownReview, ""},
		{"player updates foreign review", player, ActionUpdate, Resource{Kind: KindReview, OwnerID: 99, Public: true}, types.TypePermission},
		{"player adds library entry", player, ActionCreate, Resource{Kind: KindLibraryEntry}, ""},
		{"player lists events", player, ActionList, events, types.TypePermission},
		{"player reads analytics", player, ActionRead, Resource{Kind: KindAnalytics, OwnerID: player.ID}, types.TypePermission},
		{"player moderates", player, ActionModerate, approvedGame, types.TypePermission},
		{"player creates category", player, ActionCreate, Resource{Kind: KindCategory}, types.TypePermission},

		{"dev creates game", dev, ActionCreate, Resource{Kind: KindGame}, ""},
		{"dev reads own pending", dev, ActionRead, pendingGame, ""},
		{"dev updates own game", dev, ActionUpdate, pendingGame, ""},
		{"dev downloads own pending", dev, ActionDownload, pendingGame, ""},
		{"other dev reads pending", otherDev, ActionRead, pendingGame, types.TypePermission},
		{"other dev updates approved", otherDev, ActionUpdate, approvedGame, types.TypePermission},
		{"other dev downloads pending", otherDev, ActionDownload, pendingGame, types.TypePermission},
		{"dev adds screenshot to own", dev, ActionCreate, Resource{Kind: KindScreenshot, OwnerID: dev.ID}, ""},
		{"dev adds screenshot to foreign", otherDev, ActionCreate, Resource{Kind: KindScreenshot, OwnerID: dev.ID}, types.TypePermission},
		{"dev inherits review create", dev, ActionCreate, Resource{Kind: KindReview}, ""},
		{"dev reads own analytics", dev, ActionRead, Resource{Kind: KindAnalytics, OwnerID: dev.ID}, ""},
		{"dev moderates", dev, ActionModerate, pendingGame, types.TypePermission},
		{"dev deletes user", dev, ActionDelete, Resource{Kind: KindUser, OwnerID: dev.ID}, types.TypePermission},
		{"dev updates self", dev, ActionUpdate, Resource{Kind: KindUser, OwnerID: dev.ID}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Authorize(tt.actor, tt.action, tt.res)
			if tt.want == "" {
				if err != nil {
					t.Errorf("Expected allow, got %v", err)
				}
				return
			}
			if !types.IsType(err, tt.want) {
				t.Errorf("Expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func TestOwnershipNeedsAnOwner(t *testing.T) {
	engine := MustNewEngine()
	// zero owner ids never match, even for an actor with id 0
	ghost := Actor{Role: Player}
	if engine.Can(ghost, ActionUpdate, Resource{Kind: KindReview}) {
		t.Error("Expected deny for an ownerless resource")
	}
}

func TestGameScope(t *testing.T) {
	tests := []struct {
		name     string
		actor    Actor
		status   string
		dev      uint64
		expected bool
	}{
		{"admin sees pending", Actor{ID: 1, Role: Admin}, models.GameStatusPending, 5, true},
		{"anon sees approved", AnonymousActor(), models.GameStatusApproved, 5, true},
		{"anon misses pending", AnonymousActor(), models.GameStatusPending, 5, false},
		{"player misses rejected", Actor{ID: 2, Role: Player}, models.GameStatusRejected, 5, false},
		{"dev sees own pending", Actor{ID: 5, Role: Developer}, models.GameStatusPending, 5, true},
		{"dev misses foreign pending", Actor{ID: 6, Role: Developer}, models.GameStatusPending, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GameScope(tt.actor).Visible(tt.status, tt.dev); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCheckProtectedFields(t *testing.T) {
	dev := Actor{ID: 2, Role: Developer}
	admin := Actor{ID: 1, Role: Admin}

	if err := CheckProtectedFields(dev, []string{"title", "status"}); !types.IsType(err, types.TypeValidation) {
		t.Errorf("Expected validation error for status, got %v", err)
	}
	if err := CheckProtectedFields(dev, []string{"rejection_reason"}, GameProtectedFields...); err == nil {
		t.Error("Expected rejection_reason to be protected on games")
	}
	if err := CheckProtectedFields(dev, []string{"title"}, GameProtectedFields...); err != nil {
		t.Errorf("Expected title to pass, got %v", err)
	}
	if err := CheckProtectedFields(admin, []string{"status"}); err != nil {
		t.Errorf("Expected admin to pass, got %v", err)
	}
	if err := CheckProtectedFields(AnonymousActor(), []string{"role"}, "role"); err == nil {
		t.Error("Expected role to be protected")
	}
}
