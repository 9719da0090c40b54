package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Schema derives a JSON schema from value. Maps are described by the keys they
// hold, so a draft document yields one property per wizard step. Array items
// merge the schemas of every element.
func Schema(value any) (map[string]any, error) {
	return describe(reflect.ValueOf(value))
}

func scalar(kind string) map[string]any { return map[string]any{"type": kind} }

func describe(rv reflect.Value) (map[string]any, error) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return scalar("null"), nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return scalar("null"), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return scalar("boolean"), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar("integer"), nil
	case reflect.Float32, reflect.Float64:
		return scalar("number"), nil
	case reflect.String:
		return scalar("string"), nil
	case reflect.Map:
		return describeMap(rv)
	case reflect.Struct:
		if rv.Type() == timeType {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		props, required, err := describeFields(rv)
		if err != nil {
			return nil, err
		}
		return object(props, required), nil
	case reflect.Slice, reflect.Array:
		return describeList(rv)
	}
	return nil, fmt.Errorf("openapi: %s cannot be described", rv.Type())
}

func object(props map[string]any, required []string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		sort.Strings(required)
		out["required"] = required
	}
	return out
}

func describeMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}
	props := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		name := iter.Key().String()
		child, err := describe(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("openapi: property %q: %w", name, err)
		}
		props[name] = child
	}
	return object(props, nil), nil
}

// describeFields walks exported fields by their json names. Embedded structs
// without a json name are flattened into the parent.
func describeFields(rv reflect.Value) (map[string]any, []string, error) {
	props := map[string]any{}
	var required []string
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}
		value := rv.Field(i)
		if field.Anonymous && name == "" {
			for value.Kind() == reflect.Pointer {
				if value.IsNil() {
					value = reflect.New(value.Type().Elem())
				}
				value = value.Elem()
			}
			if value.Kind() == reflect.Struct {
				inner, innerRequired, err := describeFields(value)
				if err != nil {
					return nil, nil, err
				}
				for key, child := range inner {
					props[key] = child
				}
				required = append(required, innerRequired...)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		child, err := describe(value)
		if err != nil {
			return nil, nil, fmt.Errorf("openapi: field %q: %w", name, err)
		}
		props[name] = child
		if !omitEmpty {
			required = append(required, name)
		}
	}
	return props, required, nil
}

func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return "", false, false
	}
	name, flags, _ := strings.Cut(tag, ",")
	if name == "-" && flags == "" {
		return "", false, true
	}
	for _, flag := range strings.Split(flags, ",") {
		if flag == "omitempty" || flag == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func describeList(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{"type": "string", "format": "byte"}, nil
	}
	var items map[string]any
	for i := 0; i < rv.Len(); i++ {
		child, err := describe(rv.Index(i))
		if err != nil {
			return nil, fmt.Errorf("openapi: item %d: %w", i, err)
		}
		items = mergeSchemas(items, child)
	}
	if items == nil {
		items = map[string]any{}
	}
	return map[string]any{"type": "array", "items": items}, nil
}

// mergeSchemas unions object properties and collapses disagreeing types to an
// unconstrained schema.
func mergeSchemas(a, b map[string]any) map[string]any {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a["type"] != b["type"]:
		return map[string]any{}
	case a["type"] == "object":
		props := map[string]any{}
		for _, side := range []map[string]any{a, b} {
			inner, _ := side["properties"].(map[string]any)
			for key, child := range inner {
				prev, _ := props[key].(map[string]any)
				next, _ := child.(map[string]any)
				props[key] = mergeSchemas(prev, next)
			}
		}
		return object(props, nil)
	case a["type"] == "array":
		left, _ := a["items"].(map[string]any)
		right, _ := b["items"].(map[string]any)
		return map[string]any{"type": "array", "items": mergeSchemas(left, right)}
	}
	return a
}
