// Package access evaluates per-action, per-collection, per-record and
// per-property authorization rules against the requesting identity.
package access

import (
	"errors"

	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// Action identifies the kind of operation a rule governs.
type Action string

const (
	ActionRead   Action = ".read"
	ActionCreate Action = ".create"
	ActionUpdate Action = ".update"
	ActionDelete Action = ".delete"
)

// ActionForMethod maps an HTTP method to its rule action.
func ActionForMethod(method string) (Action, bool) {
	switch method {
	case "GET":
		return ActionRead, true
	case "POST":
		return ActionCreate, true
	case "PUT", "PATCH":
		return ActionUpdate, true
	case "DELETE":
		return ActionDelete, true
	}
	return "", false
}

// Role names resolvable against the requesting identity.
type Role string

const (
	RoleGuest Role = "Guest"
	RoleUser  Role = "User"
	RoleOwner Role = "Owner"
)

var (
	// ErrForbidden denies an authenticated (or anonymous, where guests are
	// acceptable) caller. Maps to 403.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthenticated marks a rule that requires more than Guest when no
	// identity is present. Maps to 401.
	ErrUnauthenticated = errors.New("authentication required")
)

// Rule is a closed set of predicate kinds: a static boolean, a role list,
// or a custom predicate function.
type Rule interface{ isRule() }

// StaticBool allows or denies unconditionally.
type StaticBool bool

// RoleList allows the request when the identity holds any listed role.
type RoleList []Role

// Predicate is a custom rule evaluated against the identity, the existing
// record and the incoming body.
type Predicate func(identity, record, body schema.Record) bool

func (StaticBool) isRule() {}
func (RoleList) isRule()   {}
func (Predicate) isRule()  {}

// Roles is shorthand for building a RoleList.
func Roles(roles ...Role) RoleList { return RoleList(roles) }

// IsOwner reports whether the identity created the record.
func IsOwner(identity, record schema.Record) bool {
	if identity == nil || record == nil {
		return false
	}
	id, _ := identity[schema.FieldID].(string)
	owner, _ := record[schema.FieldOwnerID].(string)
	return id != "" && id == owner
}

// PropRules maps a property name to its per-action rules.
type PropRules map[string]map[Action]Rule

// RecordRules holds the overrides scoped to a single record ID.
type RecordRules struct {
	Actions map[Action]Rule
	Props   PropRules
}

// CollectionRules holds a collection's action rules, its wildcard
// per-property rules and any per-record overrides.
type CollectionRules struct {
	Actions map[Action]Rule
	Props   PropRules
	Records map[string]RecordRules
}

// RuleSet is the full access configuration, loaded once at startup and
// read-only afterwards.
type RuleSet struct {
	Global      map[Action]Rule
	Collections map[string]CollectionRules
}

// DefaultRuleSet returns the built-in defaults: reads are public, creates
// require an authenticated user, updates and deletes require the owner.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Global: map[Action]Rule{
			ActionCreate: Roles(RoleUser),
			ActionUpdate: Roles(RoleOwner),
			ActionDelete: Roles(RoleOwner),
		},
		Collections: map[string]CollectionRules{},
	}
}

// Merge overlays per-collection rules onto the set and returns it.
func (rs RuleSet) Merge(collections map[string]CollectionRules) RuleSet {
	if rs.Collections == nil {
		rs.Collections = map[string]CollectionRules{}
	}
	for name, rules := range collections {
		rs.Collections[name] = rules
	}
	return rs
}
