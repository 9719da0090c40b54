package draftsync

import (
	"sort"
	"strings"
)

// Field kinds reported by DescribeFields, named after their JSON types.
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindArray   = "array"
	KindObject  = "object"
	KindNull    = "null"
	KindOther   = "other"
)

// FieldDescriptor describes one leaf of a draft document.
type FieldDescriptor struct {
	Step string `json:"step"`
	Path string `json:"path"`
	Kind string `json:"kind"`
	// Items is the kind of the first element of an array field.
	Items string `json:"items,omitempty"`
}

// Describe lists every leaf field of the payload sorted by path.
func (p *DraftPayload) Describe() []FieldDescriptor {
	if p == nil {
		return []FieldDescriptor{}
	}
	return DescribeFields(p.sections)
}

// DescribeFields flattens draft sections into "<step>.<field>" descriptors.
// Empty objects are reported as a single object leaf so the field stays
// visible.
func DescribeFields(sections map[string]map[string]any) []FieldDescriptor {
	steps := make([]string, 0, len(sections))
	for step := range sections {
		steps = append(steps, step)
	}
	sort.Strings(steps)

	out := []FieldDescriptor{}
	for _, step := range steps {
		out = describeValue(out, step, step, sections[step], true)
	}
	return out
}

func describeValue(out []FieldDescriptor, step, path string, value any, root bool) []FieldDescriptor {
	if obj, ok := value.(map[string]any); ok {
		if len(obj) == 0 && !root {
			return append(out, FieldDescriptor{Step: step, Path: path, Kind: KindObject})
		}
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = describeValue(out, step, strings.Join([]string{path, key}, "."), obj[key], false)
		}
		return out
	}
	desc := FieldDescriptor{Step: step, Path: path, Kind: kindOf(value)}
	if list, ok := value.([]any); ok && len(list) > 0 {
		desc.Items = kindOf(list[0])
	}
	return append(out, desc)
}

func kindOf(value any) string {
	switch value.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBoolean
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case []any, []string, []float64:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindOther
	}
}
