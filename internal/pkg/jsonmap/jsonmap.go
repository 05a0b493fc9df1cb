package jsonmap

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Decode unmarshals a jsonb column into a map. Nil, empty, or non-object
// payloads decode to an empty map so callers can merge unconditionally.
func Decode(raw datatypes.JSON) map[string]interface{} {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

// Encode marshals a map back into a jsonb column value. A nil map encodes
// as an empty object, never as SQL NULL.
func Encode(m map[string]interface{}) datatypes.JSON {
	if m == nil {
		m = map[string]interface{}{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}

// EncodeList marshals a string slice into a jsonb array value. A nil slice
// encodes as an empty array, never as SQL NULL.
func EncodeList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// Merge folds incoming into base and returns base. Keys present in incoming
// overwrite the same key in base, except that two nested objects are merged
// recursively so partial updates do not clobber sibling fields.
func Merge(base, incoming map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}
	for k, v := range incoming {
		if sub, ok := v.(map[string]interface{}); ok {
			if existing, ok := base[k].(map[string]interface{}); ok {
				base[k] = Merge(existing, sub)
				continue
			}
		}
		base[k] = v
	}
	return base
}
