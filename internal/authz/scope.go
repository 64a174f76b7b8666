package authz

import (
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

// Scope is the row filter applied to game listings.
// All means no filter. Otherwise approved games are visible, plus the
// games of OwnerID when it is set.
type Scope struct {
	All     bool
	OwnerID uint64
}

// GameScope returns the listing filter for actor.
func GameScope(actor Actor) Scope {
	switch actor.Role {
	case Admin:
		return Scope{All: true}
	case Developer:
		return Scope{OwnerID: actor.ID}
	case Player, Anonymous:
		return Scope{}
	}
	return Scope{}
}

// Visible reports whether a game with status and developer passes the scope.
func (s Scope) Visible(status string, developerID uint64) bool {
	if s.All || status == models.GameStatusApproved {
		return true
	}
	return s.OwnerID != 0 && s.OwnerID == developerID
}

// GameResource describes a game for Authorize.
func GameResource(g *models.Game) Resource {
	return Resource{Kind: KindGame, OwnerID: g.DeveloperID, Public: g.IsApproved()}
}

// GameProtectedFields may only be written by administrators.
var GameProtectedFields = []string{"status", "rejection_reason"}

// CheckProtectedFields rejects a non-admin payload that carries any of the
// protected keys, whatever their values. With no protected list given,
// "status" is protected.
func CheckProtectedFields(actor Actor, keys []string, protected ...string) error {
	if actor.IsAdmin() {
		return nil
	}
	if len(protected) == 0 {
		protected = []string{"status"}
	}
	for _, key := range keys {
		for _, p := range protected {
			if key == p {
				return types.FieldError(key, "Only administrators may set this field.")
			}
		}
	}
	return nil
}
