package layering

import "reflect"

// Step sections decoded from JSON only hold map[string]any, []any and
// scalars. mergeJSON and cloneJSON handle those shapes without reflection and
// hand anything else to the reflective path.

func mergeJSON(strong, weak any) any {
	switch s := strong.(type) {
	case nil:
		return cloneJSON(weak)
	case map[string]any:
		if s == nil {
			return cloneJSON(weak)
		}
		out := make(map[string]any, len(s))
		if w, ok := weak.(map[string]any); ok {
			for key, value := range w {
				out[key] = cloneJSON(value)
			}
		}
		for key, value := range s {
			if existing, ok := out[key]; ok {
				out[key] = mergeJSON(value, existing)
				continue
			}
			if isNilValue(reflect.ValueOf(value)) {
				continue
			}
			out[key] = cloneJSON(value)
		}
		return out
	case []any:
		if s == nil {
			return cloneJSON(weak)
		}
		return cloneJSON(s)
	case string, bool, float64, int, int64:
		return s
	}
	merged := mergeValue(reflect.ValueOf(strong), reflect.ValueOf(weak))
	if !merged.IsValid() {
		return nil
	}
	return merged.Interface()
}

func cloneJSON(value any) any {
	switch v := value.(type) {
	case nil, string, bool, float64, int, int64:
		return v
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = cloneJSON(child)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneJSON(child)
		}
		return out
	}
	return cloneValue(reflect.ValueOf(value)).Interface()
}
