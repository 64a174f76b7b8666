// Package authz decides whether an actor may perform an action on a resource.
package authz

import (
	"fmt"
	"strings"

	"github.com/localnerve/gamestore/internal/models"
)

// Role is the closed set of actor roles.
type Role int

const (
	Anonymous Role = iota
	Player
	Developer
	Admin
)

// ParseRole maps a stored or submitted role name onto a Role.
// "user" is the legacy name for player.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.RoleAdmin:
		return Admin, nil
	case models.RoleDeveloper:
		return Developer, nil
	case models.RolePlayer, "user":
		return Player, nil
	}
	return Anonymous, fmt.Errorf("unknown role %q", s)
}

// String returns the stored name of the role.
func (r Role) String() string {
	switch r {
	case Admin:
		return models.RoleAdmin
	case Developer:
		return models.RoleDeveloper
	case Player:
		return models.RolePlayer
	case Anonymous:
		return "anonymous"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Actor is the caller of an operation. It is always passed explicitly.
type Actor struct {
	ID   uint64
	Role Role
}

// AnonymousActor is an unauthenticated caller.
func AnonymousActor() Actor {
	return Actor{Role: Anonymous}
}

// ActorFor builds the actor for a stored user.
func ActorFor(u *models.User) (Actor, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return AnonymousActor(), err
	}
	return Actor{ID: u.ID, Role: role}, nil
}

// IsAuthenticated reports whether the actor is a logged in user.
func (a Actor) IsAuthenticated() bool {
	return a.Role != Anonymous && a.ID != 0
}

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool {
	return a.Role == Admin
}

// Owns reports whether ownerID refers to the actor.
func (a Actor) Owns(ownerID uint64) bool {
	return a.IsAuthenticated() && ownerID != 0 && ownerID == a.ID
}

// UserID returns the actor id for nullable user columns.
func (a Actor) UserID() *uint64 {
	if !a.IsAuthenticated() {
		return nil
	}
	id := a.ID
	return &id
}
