package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// errBadQuery marks a malformed query parameter; the api layer turns it
// into a 400 response.
var errBadQuery = errors.New("could not parse where clause, check your syntax")

// IsBadQuery reports whether err is a query parse/evaluation failure.
func IsBadQuery(err error) bool {
	return errors.Is(err, errBadQuery)
}

type predicate func(schema.Record) (bool, error)

var (
	andSplit = regexp.MustCompile(`(?i) and `)
	orSplit  = regexp.MustCompile(`(?i) or `)
	inList   = regexp.MustCompile(`\((.+?)\)`)
)

// parseWhere compiles a where expression: a single clause, or clauses
// joined uniformly by " and " (all must match) or " or " (any must
// match). Mixing the two is not supported.
func parseWhere(expr string) (predicate, error) {
	expr = strings.TrimSpace(expr)

	clauses := []string{expr}
	all := true
	switch {
	case andSplit.MatchString(expr):
		clauses = andSplit.Split(expr, -1)
	case orSplit.MatchString(expr):
		clauses = orSplit.Split(expr, -1)
		all = false
	}

	preds := make([]predicate, len(clauses))
	for i, clause := range clauses {
		p, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}

	return func(r schema.Record) (bool, error) {
		for _, p := range preds {
			ok, err := p(r)
			if err != nil {
				return false, err
			}
			if ok != all {
				return ok, nil
			}
		}
		return all, nil
	}, nil
}

// operators in match order; two-character comparisons before their
// one-character prefixes.
var operators = []string{"<=", ">=", "<", ">", "=", " like ", " in "}

func parseClause(clause string) (predicate, error) {
	lower := strings.ToLower(clause)

	op, at := "", -1
	for _, candidate := range operators {
		idx := strings.Index(lower, candidate)
		if idx <= 0 {
			continue
		}
		if at == -1 || idx < at || (idx == at && len(candidate) > len(op)) {
			op, at = candidate, idx
		}
	}
	if at == -1 {
		return nil, errBadQuery
	}

	prop := strings.TrimSpace(clause[:at])
	value := strings.TrimSpace(clause[at+len(op):])
	if prop == "" || value == "" {
		return nil, errBadQuery
	}

	switch op {
	case " like ":
		return likePredicate(prop, value)
	case " in ":
		return inPredicate(prop, value)
	default:
		return comparePredicate(prop, op, value)
	}
}

func comparePredicate(prop, op, rawValue string) (predicate, error) {
	var literal any
	if err := json.Unmarshal([]byte(rawValue), &literal); err != nil {
		return nil, fmt.Errorf("%w: %q", errBadQuery, rawValue)
	}

	return func(r schema.Record) (bool, error) {
		got := r[prop]
		if op == "=" {
			return literalEqual(got, literal), nil
		}
		gf, gok := asFloat(got)
		lf, lok := asFloat(literal)
		var cmp int
		switch {
		case gok && lok:
			switch {
			case gf < lf:
				cmp = -1
			case gf > lf:
				cmp = 1
			}
		default:
			gs, gok := got.(string)
			ls, lok := literal.(string)
			if !gok || !lok {
				return false, nil
			}
			cmp = strings.Compare(gs, ls)
		}
		switch op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}, nil
}

func likePredicate(prop, rawValue string) (predicate, error) {
	var needle string
	if err := json.Unmarshal([]byte(rawValue), &needle); err != nil {
		return nil, fmt.Errorf("%w: %q", errBadQuery, rawValue)
	}
	needle = strings.ToLower(needle)

	return func(r schema.Record) (bool, error) {
		s, ok := r[prop].(string)
		if !ok {
			return false, fmt.Errorf("%w: %q is not a string field", errBadQuery, prop)
		}
		return strings.Contains(strings.ToLower(s), needle), nil
	}, nil
}

func inPredicate(prop, rawValue string) (predicate, error) {
	m := inList.FindStringSubmatch(rawValue)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", errBadQuery, rawValue)
	}
	var values []any
	if err := json.Unmarshal([]byte("["+m[1]+"]"), &values); err != nil {
		return nil, fmt.Errorf("%w: %q", errBadQuery, rawValue)
	}

	return func(r schema.Record) (bool, error) {
		for _, v := range values {
			if literalEqual(r[prop], v) {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func literalEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}
