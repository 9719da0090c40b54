package draftsync

import (
	"fmt"
	"strings"
)

// Trace records what every precedence layer held for one payload field,
// strongest layer first.
type Trace struct {
	Step   string       `json:"step"`
	Field  string       `json:"field"`
	Layers []Provenance `json:"layers"`
}

// Provenance is one layer's view of a traced field.
type Provenance struct {
	Scope Scope `json:"scope"`
	Value any   `json:"value,omitempty"`
	Found bool  `json:"found"`
}

// Path returns the dotted "<step>.<field>" path.
func (t Trace) Path() string {
	return t.Step + "." + t.Field
}

// Winner returns the strongest layer holding a non-nil value. That value is
// the one the payload carries.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found && layer.Value != nil {
			return layer, true
		}
	}
	return Provenance{}, false
}

// Shadowed returns the weaker layers that held a value but lost to Winner.
func (t Trace) Shadowed() []Provenance {
	var out []Provenance
	won := false
	for _, layer := range t.Layers {
		if !layer.Found || layer.Value == nil {
			continue
		}
		if won {
			out = append(out, layer)
			continue
		}
		won = true
	}
	return out
}

// String renders the trace for logs, e.g. "pricing.price: snapshot=49 > session=10".
func (t Trace) String() string {
	parts := make([]string, 0, len(t.Layers))
	for _, layer := range t.Layers {
		if !layer.Found {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", layer.Scope.Name, layer.Value))
	}
	if len(parts) == 0 {
		return t.Path() + ": unset"
	}
	return t.Path() + ": " + strings.Join(parts, " > ")
}
