// Package layering merges step sections ordered from strongest to weakest.
//
// A wizard step can be described by several layers at save time: a freshly
// pulled snapshot, the last cached snapshot, the fields written directly into
// the session and the documented defaults. MergeLayers folds those layers into
// one value where stronger layers keep their explicit values and weaker layers
// fill whatever is missing. A nil entry never erases a weaker value.
package layering

import "reflect"

// MergeLayers composes layers ordered from strongest to weakest and returns a
// detached value. Inputs are never mutated.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeValue(reflect.ValueOf(layers[i]), merged)
	}
	return asType[T](merged)
}

// MergeSections merges section maps ordered from strongest to weakest. Nil
// sections are skipped so a missing layer behaves like an empty one. The
// result is never nil.
func MergeSections(layers ...map[string]any) map[string]any {
	var merged map[string]any
	for i := len(layers) - 1; i >= 0; i-- {
		switch {
		case layers[i] == nil:
		case merged == nil:
			merged = cloneJSON(layers[i]).(map[string]any)
		default:
			merged = mergeJSON(layers[i], merged).(map[string]any)
		}
	}
	if merged == nil {
		return map[string]any{}
	}
	return merged
}

// Clone returns a deep copy of value.
func Clone[T any](value T) T {
	if section, ok := any(value).(map[string]any); ok {
		return any(cloneJSON(section)).(T)
	}
	return asType[T](cloneValue(reflect.ValueOf(value)))
}

func asType[T any](v reflect.Value) T {
	var zero T
	if !v.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if v.Type() == target {
		return v.Interface().(T)
	}
	if target.Kind() == reflect.Interface {
		if v.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(v)
			return out.Interface().(T)
		}
		return zero
	}
	out := reflect.New(target).Elem()
	out.Set(v.Convert(target))
	return out.Interface().(T)
}

func mergeValue(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer, reflect.Interface:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == strong.Kind() && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		merged := mergeValue(strong.Elem(), weakElem)
		if strong.Kind() == reflect.Interface {
			out := reflect.New(strong.Type()).Elem()
			out.Set(merged)
			return out
		}
		out := reflect.New(strong.Type().Elem())
		out.Elem().Set(merged)
		return out
	case reflect.Struct:
		out := reflect.New(strong.Type()).Elem()
		sameType := weak.IsValid() && weak.Type() == strong.Type()
		for i := 0; i < strong.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			var weakField reflect.Value
			if sameType {
				weakField = weak.Field(i)
			}
			field.Set(mergeValue(strong.Field(i), weakField))
		}
		return out
	case reflect.Map:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		out := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && weak.Type() == strong.Type() && !weak.IsNil() {
			iter := weak.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			existing := out.MapIndex(key)
			if existing.IsValid() {
				out.SetMapIndex(key, mergeValue(iter.Value(), existing))
				continue
			}
			if isNilValue(iter.Value()) {
				continue
			}
			out.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		// Lists are replaced wholesale: a step that reorders or empties a list
		// must not get weaker entries appended back.
		if strong.IsNil() {
			return cloneValue(weak)
		}
		return cloneValue(strong)
	default:
		return cloneValue(strong)
	}
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
