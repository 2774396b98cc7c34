// Package schema defines universal data structures shared across the Papyr platform.
package schema

// Record is a stored JSON document. Keys starting with an underscore are
// reserved for system metadata and cannot be set by clients.
type Record = map[string]any

// Reserved record fields, assigned by the server.
const (
	FieldID        = "_id"
	FieldOwnerID   = "_ownerId"
	FieldCreatedOn = "_createdOn"
	FieldUpdatedOn = "_updatedOn"
	FieldDeletedOn = "_deletedOn"
)

// reserved fields are preserved across replace/merge and stripped from
// incoming client payloads.
var reservedFields = []string{FieldID, FieldOwnerID, FieldCreatedOn, FieldUpdatedOn}

// DeepCopy clones a JSON-like value so callers never alias stored state.
func DeepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = DeepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = DeepCopy(item)
		}
		return out
	default:
		return v
	}
}

// CopyRecord clones a record.
func CopyRecord(r Record) Record {
	return DeepCopy(r).(map[string]any)
}

// AssignClean copies every non-reserved field of src onto dst (deep-copied)
// and returns dst.
func AssignClean(dst, src Record) Record {
	for k, v := range src {
		if isReserved(k) {
			continue
		}
		dst[k] = DeepCopy(v)
	}
	return dst
}

// AssignSystem copies the reserved fields present on src onto dst and
// returns dst. Used to preserve system metadata across a full replace.
func AssignSystem(dst, src Record) Record {
	for _, k := range reservedFields {
		if v, ok := src[k]; ok {
			dst[k] = DeepCopy(v)
		}
	}
	return dst
}

func isReserved(key string) bool {
	for _, r := range reservedFields {
		if key == r {
			return true
		}
	}
	return false
}
