// Package script runs YAML wizard simulations against a draft coordinator.
//
// A script is a list of steps. Each step performs one action (set, pricing,
// save, publish, wait) and may carry an expect block checked right after it.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	draftsync "github.com/goliatone/go-draftsync"
	"gopkg.in/yaml.v3"
)

// Script is a parsed simulation.
type Script struct {
	Name string `yaml:"name"`
	// ResourceID resumes a stored draft instead of starting a new one.
	ResourceID string `yaml:"resource_id,omitempty"`
	Steps      []Step `yaml:"steps"`
}

// Step is a single action plus optional expectations.
type Step struct {
	// Set writes "<step>.<field>" paths into the session.
	Set map[string]any `yaml:"set,omitempty"`
	// Pricing drives the pricing calculator.
	Pricing *PricingStep `yaml:"pricing,omitempty"`
	// Save fires a trigger: manual, timer, navigation or unload.
	Save string `yaml:"save,omitempty"`
	// Publish asks for the given status.
	Publish string `yaml:"publish,omitempty"`
	// Wait blocks until background saves finish.
	Wait   bool    `yaml:"wait,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// PricingStep mutates the pricing calculator. Mounted toggles its provider
// registration.
type PricingStep struct {
	Mounted  *bool              `yaml:"mounted,omitempty"`
	Enabled  *bool              `yaml:"enabled,omitempty"`
	Price    *float64           `yaml:"price,omitempty"`
	Discount *float64           `yaml:"discount,omitempty"`
	Tiers    map[string]float64 `yaml:"tiers,omitempty"`
}

// Expect is checked after the step action runs.
type Expect struct {
	// Status is the outcome status of the action ("saved", "skipped", ...).
	Status string `yaml:"status,omitempty"`
	// Error must appear in the action error. Without it the action must not
	// fail unless Status is "failed".
	Error      string `yaml:"error,omitempty"`
	Dirty      *bool  `yaml:"dirty,omitempty"`
	Identified *bool  `yaml:"identified,omitempty"`
	// Saves is the total number of client save calls so far.
	Saves *int `yaml:"saves,omitempty"`
	// Stored compares "<step>.<field>" paths of the stored record.
	Stored map[string]any `yaml:"stored,omitempty"`
	// StoredStatus is the publish status of the stored record.
	StoredStatus string `yaml:"stored_status,omitempty"`
}

// Action names the step action.
func (s Step) Action() string {
	switch {
	case len(s.Set) > 0:
		return "set"
	case s.Pricing != nil:
		return "pricing"
	case s.Save != "":
		return "save"
	case s.Publish != "":
		return "publish"
	case s.Wait:
		return "wait"
	case s.Expect != nil:
		return "expect"
	default:
		return ""
	}
}

func (s Step) actions() int {
	count := 0
	for _, set := range []bool{len(s.Set) > 0, s.Pricing != nil, s.Save != "", s.Publish != "", s.Wait} {
		if set {
			count++
		}
	}
	return count
}

// Parse decodes and validates a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var script Script
	if err := decoder.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("script: empty document")
		}
		return nil, fmt.Errorf("script: decode: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	script, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if script.Name == "" {
		script.Name = path
	}
	return script, nil
}

// Validate checks that every step has exactly one action and a known
// trigger.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script: no steps")
	}
	var errs []error
	for i, step := range s.Steps {
		switch n := step.actions(); {
		case n == 0 && step.Expect == nil:
			errs = append(errs, fmt.Errorf("step %d: no action", i+1))
		case n > 1:
			errs = append(errs, fmt.Errorf("step %d: %d actions, want one", i+1, n))
		}
		if step.Save != "" {
			if _, err := draftsync.ParseTrigger(step.Save); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			}
		}
		for path := range step.Set {
			if !strings.Contains(path, ".") {
				errs = append(errs, fmt.Errorf("step %d: set path %q must be <step>.<field>", i+1, path))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("script: %w", errors.Join(errs...))
	}
	return nil
}
