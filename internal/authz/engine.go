// engine.go
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

package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/types"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead     Action = "read"
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionDownload Action = "download"
	ActionModerate Action = "moderate"
)

// readOnly actions are open to everyone on public resources.
func (a Action) readOnly() bool {
	return a == ActionRead || a == ActionList || a == ActionDownload
}

// Kind is a resource type.
type Kind string

const (
	KindUser          Kind = "user"
	KindCategory      Kind = "category"
	KindGame          Kind = "game"
	KindScreenshot    Kind = "screenshot"
	KindReview        Kind = "review"
	KindLibraryEntry  Kind = "library_entry"
	KindDownloadEvent Kind = "download_event"
	KindAnalytics     Kind = "analytics"
)

// Resource describes the target of an action. OwnerID is the owning user
// (the developer for games and screenshots, the author for reviews and
// library entries, the user itself for accounts), or 0 when there is none.
type Resource struct {
	Kind    Kind
	OwnerID uint64
	Public  bool
}

const (
	scopeAny = "any"
	scopeOwn = "own"
)

// policyModel matches role gates. A policy with scope "own" only applies
// when the request is made with scope "own", i.e. the actor owns the resource.
const policyModel = `
[request_definition]
r = sub, obj, act, scope

[policy_definition]
p = sub, obj, act, scope

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act && (p.scope == "any" || p.scope == r.scope)
`

// rolePolicies is the gate table for non-admin roles. Developers inherit
// every player policy.
var rolePolicies = [][]string{
	{"player", string(KindReview), string(ActionCreate), scopeAny},
	{"player", string(KindReview), string(ActionRead), scopeOwn},
	{"player", string(KindReview), string(ActionUpdate), scopeOwn},
	{"player", string(KindReview), string(ActionDelete), scopeOwn},
	{"player", string(KindLibraryEntry), string(ActionCreate), scopeAny},
	{"player", string(KindLibraryEntry), string(ActionRead), scopeOwn},
	{"player", string(KindLibraryEntry), string(ActionList), scopeOwn},
	{"player", string(KindLibraryEntry), string(ActionDelete), scopeOwn},
	{"player", string(KindUser), string(ActionRead), scopeOwn},
	{"player", string(KindUser), string(ActionUpdate), scopeOwn},

	{"developer", string(KindGame), string(ActionCreate), scopeAny},
	{"developer", string(KindGame), string(ActionRead), scopeOwn},
	{"developer", string(KindGame), string(ActionUpdate), scopeOwn},
	{"developer", string(KindGame), string(ActionDelete), scopeOwn},
	{"developer", string(KindGame), string(ActionDownload), scopeOwn},
	{"developer", string(KindScreenshot), string(ActionCreate), scopeOwn},
	{"developer", string(KindScreenshot), string(ActionRead), scopeOwn},
	{"developer", string(KindScreenshot), string(ActionUpdate), scopeOwn},
	{"developer", string(KindScreenshot), string(ActionDelete), scopeOwn},
	{"developer", string(KindAnalytics), string(ActionRead), scopeOwn},
}

// Engine evaluates the authorization policy.
type Engine struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEngine builds the engine from the in-code role gate table.
func NewEngine() (*Engine, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(rolePolicies); err != nil {
		return nil, fmt.Errorf("authz policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicy("developer", "player"); err != nil {
		return nil, fmt.Errorf("authz roles: %w", err)
	}
	return &Engine{enforcer: enforcer}, nil
}

// MustNewEngine is NewEngine for wiring code where the static policy cannot fail.
func MustNewEngine() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return e
}

// Authorize returns nil when actor may perform action on res, otherwise an
// AuthenticationError (anonymous actor) or a PermissionError.
func (e *Engine) Authorize(actor Actor, action Action, res Resource) error {
	switch actor.Role {
	case Admin:
		return nil

	case Anonymous:
		if action.readOnly() && res.Public {
			return nil
		}
		return types.AuthenticationError("Authentication credentials were not provided.")

	case Player, Developer:
		if action.readOnly() && res.Public {
			return nil
		}
		return e.gate(actor, action, res)
	}

	return types.PermissionError("Unknown role.")
}

// Can is Authorize as a boolean.
func (e *Engine) Can(actor Actor, action Action, res Resource) bool {
	return e.Authorize(actor, action, res) == nil
}

// gate applies the role table, then the ownership check for "own" policies.
func (e *Engine) gate(actor Actor, action Action, res Resource) error {
	sub := actor.Role.String()

	allowed, err := e.enforcer.Enforce(sub, string(res.Kind), string(action), scopeAny)
	if err != nil {
		return fmt.Errorf("authz enforce: %w", err)
	}
	if allowed {
		return nil
	}

	scoped, err := e.enforcer.Enforce(sub, string(res.Kind), string(action), scopeOwn)
	if err != nil {
		return fmt.Errorf("authz enforce: %w", err)
	}
	if !scoped {
		log.WithFields(log.Fields{"role": sub, "kind": res.Kind, "action": action}).Debug("authz: role gate denied")
		return types.PermissionError("You do not have permission to perform this action.")
	}

	if !actor.Owns(res.OwnerID) {
		log.WithFields(log.Fields{"role": sub, "kind": res.Kind, "action": action, "actor": actor.ID}).Debug("authz: ownership denied")
		return types.PermissionError("You do not have permission to perform this action.")
	}
	return nil
}
