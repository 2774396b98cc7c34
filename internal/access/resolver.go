package access

import "github.com/papyr-dev/papyr-store/pkg/schema"

// Request carries everything the resolver needs to decide one access.
type Request struct {
	Action     Action
	Collection string
	Identity   schema.Record // nil when anonymous
	Admin      bool          // X-Admin bypass for the top-level rule
	Record     schema.Record // existing record, nil on create/list
	Body       schema.Record // incoming payload, nil on read/delete
}

// Resolver evaluates a read-only RuleSet. It never mutates stored data;
// property rules only strip fields from the request's own record/body.
type Resolver struct {
	rules RuleSet
}

func NewResolver(rules RuleSet) *Resolver {
	return &Resolver{rules: rules}
}

// Authorize resolves the effective rule for the request by precedence
// (record-specific > collection > global default) and evaluates it.
// On success, property-level rules are applied: denied properties are
// removed from req.Record (reads) or req.Body (writes). The admin bypass
// skips only the top-level rule; property stripping still applies.
func (r *Resolver) Authorize(req Request) error {
	rule, propRules := r.resolve(req)

	allowed, err := evalRule(rule, req, true)
	if err != nil {
		if req.Admin {
			allowed = true
		} else {
			return err
		}
	}
	if !allowed && !req.Admin {
		return ErrForbidden
	}

	r.stripProps(req, propRules)
	return nil
}

// StripProperties applies only the property-level rules to the request's
// record/body, without the top-level check. Used on list reads where the
// coarse rule has already been checked once for the whole collection.
func (r *Resolver) StripProperties(req Request) {
	_, propRules := r.resolve(req)
	r.stripProps(req, propRules)
}

func (r *Resolver) stripProps(req Request, propRules PropRules) {
	for prop, actions := range propRules {
		pr, ok := actions[req.Action]
		if !ok {
			continue
		}
		allowed, err := evalRule(pr, req, false)
		if err != nil || allowed {
			continue
		}
		switch req.Action {
		case ActionCreate, ActionUpdate:
			delete(req.Body, prop)
		case ActionRead:
			delete(req.Record, prop)
		}
	}
}

// resolve walks the precedence chain and collects applicable prop rules.
func (r *Resolver) resolve(req Request) (Rule, PropRules) {
	rule := r.rules.Global[req.Action]
	if rule == nil {
		// absent global default: reads are public
		rule = StaticBool(true)
	}
	props := PropRules{}

	collection, ok := r.rules.Collections[req.Collection]
	if !ok {
		return rule, props
	}

	if cr, ok := collection.Actions[req.Action]; ok {
		rule = cr
	}
	for prop, actions := range collection.Props {
		props[prop] = actions
	}

	recordID, _ := req.Record[schema.FieldID].(string)
	if record, ok := collection.Records[recordID]; ok && recordID != "" {
		if rr, ok := record.Actions[req.Action]; ok {
			rule = rr
		}
		for prop, actions := range record.Props {
			props[prop] = actions
		}
	}
	return rule, props
}

// evalRule evaluates one rule value. When strictRoles is set, a role list
// demanding more than Guest from an anonymous caller yields
// ErrUnauthenticated; in property context it simply resolves to false.
func evalRule(rule Rule, req Request, strictRoles bool) (bool, error) {
	switch v := rule.(type) {
	case StaticBool:
		return bool(v), nil
	case RoleList:
		return evalRoles(v, req, strictRoles)
	case Predicate:
		return v(req.Identity, req.Record, req.Body), nil
	default:
		return false, nil
	}
}

func evalRoles(roles RoleList, req Request, strict bool) (bool, error) {
	for _, role := range roles {
		if role == RoleGuest {
			return true, nil
		}
	}
	if req.Identity == nil {
		if strict && !req.Admin {
			return false, ErrUnauthenticated
		}
		return false, nil
	}
	for _, role := range roles {
		switch role {
		case RoleUser:
			return true, nil
		case RoleOwner:
			if IsOwner(req.Identity, req.Record) {
				return true, nil
			}
		}
	}
	return false, nil
}
