// Package query implements the query-string mini-language of the data
// service: filtering, sorting, pagination, distinct, projection and
// relation loading.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/papyr-dev/papyr-store/pkg/schema"
)

const defaultPageSize = 10

// Loader resolves a related record for the load stage. The api layer
// supplies one that reads from protected storage when the target
// collection is "users" and from generic storage otherwise.
type Loader func(collection, id string) (schema.Record, error)

// Options holds the raw query-string parameters of a list request.
type Options struct {
	Where    string
	SortBy   string
	Offset   string
	PageSize string
	Distinct string
	Count    bool
	Select   string
	Load     string
}

// ParseOptions extracts the recognized parameters from a query string.
func ParseOptions(values url.Values) Options {
	return Options{
		Where:    values.Get("where"),
		SortBy:   values.Get("sortBy"),
		Offset:   values.Get("offset"),
		PageSize: values.Get("pageSize"),
		Distinct: values.Get("distinct"),
		Count:    values.Has("count"),
		Select:   values.Get("select"),
		Load:     values.Get("load"),
	}
}

// Apply runs the pipeline over a record list in fixed order:
// filter, sort, offset, page size, distinct, count (short-circuits),
// select, load. The result is either []schema.Record or an int count.
func (o Options) Apply(records []schema.Record, load Loader) (any, error) {
	var err error

	if o.Where != "" {
		records, err = o.filter(records)
		if err != nil {
			return nil, err
		}
	}
	if o.SortBy != "" {
		sortRecords(records, o.SortBy)
	}
	if o.Offset != "" {
		offset, _ := strconv.Atoi(o.Offset)
		if offset > len(records) {
			offset = len(records)
		}
		if offset > 0 {
			records = records[offset:]
		}
	}
	if o.PageSize != "" {
		size, err := strconv.Atoi(o.PageSize)
		if err != nil || size <= 0 {
			size = defaultPageSize
		}
		if size < len(records) {
			records = records[:size]
		}
	}
	if o.Distinct != "" {
		records = distinct(records, o.Distinct)
	}
	if o.Count {
		return len(records), nil
	}
	if o.Select != "" {
		projected := make([]schema.Record, len(records))
		for i, r := range records {
			projected[i] = project(r, o.Select)
		}
		records = projected
	}
	if o.Load != "" {
		for _, r := range records {
			if err := loadRelations(r, o.Load, load); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// ApplySingle runs the projection and relation stages on a single record.
// Filtering and paging do not apply to get-by-ID requests.
func (o Options) ApplySingle(record schema.Record, load Loader) (schema.Record, error) {
	if o.Select != "" {
		record = project(record, o.Select)
	}
	if o.Load != "" {
		if err := loadRelations(record, o.Load, load); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (o Options) filter(records []schema.Record) ([]schema.Record, error) {
	pred, err := parseWhere(o.Where)
	if err != nil {
		return nil, err
	}
	filtered := make([]schema.Record, 0, len(records))
	for _, r := range records {
		ok, err := pred(r)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// sortRecords orders by comma-separated "prop[ desc]" terms, first term
// highest priority. Stable passes run from the last term to the first so
// earlier terms win overall.
func sortRecords(records []schema.Record, sortBy string) {
	type term struct {
		prop string
		desc bool
	}
	var terms []term
	for _, raw := range strings.Split(sortBy, ",") {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}
		terms = append(terms, term{prop: fields[0], desc: len(fields) > 1 && strings.EqualFold(fields[1], "desc")})
	}

	for i := len(terms) - 1; i >= 0; i-- {
		t := terms[i]
		sort.SliceStable(records, func(a, b int) bool {
			less := compareValues(records[a][t.prop], records[b][t.prop]) < 0
			if t.desc {
				return compareValues(records[b][t.prop], records[a][t.prop]) < 0
			}
			return less
		})
	}
}

// compareValues orders numbers numerically and everything else by string
// representation. String ordering is byte-wise, not locale-collated;
// accented or non-Latin titles sort by code point.
func compareValues(a, b any) int {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func distinct(records []schema.Record, props string) []schema.Record {
	keys := splitList(props)
	seen := make(map[string]bool)
	out := make([]schema.Record, 0, len(records))
	for _, r := range records {
		parts := make([]string, len(keys))
		for i, p := range keys {
			parts[i] = fmt.Sprint(r[p])
		}
		key := strings.Join(parts, "::")
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

func project(r schema.Record, selectList string) schema.Record {
	out := schema.Record{}
	for _, p := range splitList(selectList) {
		if v, ok := r[p]; ok {
			out[p] = v
		}
	}
	return out
}

// loadRelations resolves "alias=idField:collection" specs and attaches the
// related record (with hashedPassword stripped) under alias.
func loadRelations(r schema.Record, loadList string, load Loader) error {
	for _, spec := range splitList(loadList) {
		alias, relation, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("%w: invalid load spec %q", errBadQuery, spec)
		}
		idField, collection, ok := strings.Cut(relation, ":")
		if !ok {
			return fmt.Errorf("%w: invalid load spec %q", errBadQuery, spec)
		}
		seekID, _ := r[idField].(string)
		related, err := load(collection, seekID)
		if err != nil {
			return err
		}
		delete(related, "hashedPassword")
		r[alias] = related
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
