package script

import (
	"context"
	"fmt"
	"io"
	"strings"

	draftsync "github.com/goliatone/go-draftsync"
	"github.com/goliatone/go-draftsync/layering"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// Result is what a single step did.
type Result struct {
	Index  int    `json:"index" yaml:"index"`
	Action string `json:"action" yaml:"action"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Name       string   `json:"name" yaml:"name"`
	ResourceID string   `json:"resource_id,omitempty" yaml:"resource_id,omitempty"`
	Saves      int      `json:"saves" yaml:"saves"`
	Publishes  int      `json:"publishes" yaml:"publishes"`
	Results    []Result `json:"results" yaml:"results"`
}

// ExpectationError reports a failed expect block.
type ExpectationError struct {
	Step     int
	Failures []string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("script: step %d: %s", e.Step, strings.Join(e.Failures, "; "))
}

// Runner executes scripts step by step.
type Runner struct {
	env *Env
	out io.Writer
}

// NewRunner returns a runner bound to env. out receives one line per step
// and may be nil.
func NewRunner(env *Env, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{env: env, out: out}
}

// Run executes every step and stops at the first failed expectation. The
// report covers the steps run so far.
func (r *Runner) Run(ctx context.Context, script *Script) (report Report, err error) {
	report.Name = script.Name
	defer func() {
		report.ResourceID = r.env.Session.ResourceID()
		report.Saves = r.env.Client.Saves()
		report.Publishes = r.env.Client.Publishes()
	}()

	for i, step := range script.Steps {
		result := Result{Index: i + 1, Action: step.Action()}
		status, stepErr := r.apply(ctx, step)
		result.Status = status
		if stepErr != nil {
			result.Error = stepErr.Error()
		}
		report.Results = append(report.Results, result)
		fmt.Fprintf(r.out, "%3d %-8s %-10s %s\n", result.Index, result.Action, result.Status, result.Error)

		if step.Expect == nil {
			if stepErr != nil && status == "" {
				return report, fmt.Errorf("script: step %d: %w", i+1, stepErr)
			}
			continue
		}
		if failures := r.check(ctx, *step.Expect, status, stepErr); len(failures) > 0 {
			return report, &ExpectationError{Step: i + 1, Failures: failures}
		}
	}
	return report, nil
}

// apply runs the step action. An empty status with an error means the step
// itself was malformed.
func (r *Runner) apply(ctx context.Context, step Step) (string, error) {
	switch step.Action() {
	case "set":
		for path, value := range step.Set {
			if err := r.env.Session.SetPath(path, value); err != nil {
				return "", err
			}
		}
		return "dirty", nil
	case "pricing":
		return r.applyPricing(*step.Pricing)
	case "save":
		trigger, err := draftsync.ParseTrigger(step.Save)
		if err != nil {
			return "", err
		}
		outcome, err := r.env.Coordinator.RequestSave(ctx, trigger)
		return string(outcome.Status), err
	case "publish":
		if _, err := r.env.Coordinator.Publish(ctx, step.Publish); err != nil {
			return "failed", err
		}
		return step.Publish, nil
	case "wait":
		if err := r.env.Coordinator.Wait(ctx); err != nil {
			return "", err
		}
		return "idle", nil
	case "expect":
		return "", nil
	default:
		return "", fmt.Errorf("no action")
	}
}

func (r *Runner) applyPricing(step PricingStep) (string, error) {
	if step.Mounted != nil {
		if *step.Mounted {
			if err := r.env.MountPricing(); err != nil {
				return "", err
			}
		} else {
			r.env.UnmountPricing()
		}
	}
	calc := r.env.Pricing
	if step.Enabled != nil {
		calc.SetEnabled(*step.Enabled)
	}
	if step.Price != nil {
		calc.SetPrice(*step.Price)
	}
	if step.Discount != nil {
		calc.SetDiscount(*step.Discount)
	}
	for tier, price := range step.Tiers {
		if err := calc.SetTier(tier, price); err != nil {
			return "", err
		}
	}
	if r.env.PricingMounted() {
		return "mounted", nil
	}
	return "unmounted", nil
}

func (r *Runner) check(ctx context.Context, expect Expect, status string, err error) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if expect.Status != "" && expect.Status != status {
		fail("status = %q, want %q", status, expect.Status)
	}
	switch {
	case expect.Error != "":
		if err == nil || !strings.Contains(err.Error(), expect.Error) {
			fail("error = %v, want it to contain %q", err, expect.Error)
		}
	case err != nil && expect.Status != string(draftsync.StatusFailed):
		fail("unexpected error: %v", err)
	}
	if expect.Dirty != nil && r.env.Session.Dirty() != *expect.Dirty {
		fail("dirty = %v, want %v", r.env.Session.Dirty(), *expect.Dirty)
	}
	if expect.Identified != nil {
		identified := r.env.Session.ResourceID() != ""
		if identified != *expect.Identified {
			fail("identified = %v, want %v", identified, *expect.Identified)
		}
	}
	if expect.Saves != nil && r.env.Client.Saves() != *expect.Saves {
		fail("saves = %d, want %d", r.env.Client.Saves(), *expect.Saves)
	}
	if len(expect.Stored) > 0 || expect.StoredStatus != "" {
		failures = append(failures, r.checkStored(ctx, expect)...)
	}
	return failures
}

func (r *Runner) checkStored(ctx context.Context, expect Expect) []string {
	resourceID := r.env.Session.ResourceID()
	if resourceID == "" {
		return []string{"stored: draft has no resource id"}
	}
	record, ok, err := r.env.Store.Load(ctx, resourceID)
	if err != nil {
		return []string{fmt.Sprintf("stored: load %s: %v", resourceID, err)}
	}
	if !ok {
		return []string{fmt.Sprintf("stored: %s not found", resourceID)}
	}

	var failures []string
	if expect.StoredStatus != "" && record.Status != expect.StoredStatus {
		failures = append(failures, fmt.Sprintf("stored status = %q, want %q", record.Status, expect.StoredStatus))
	}
	for path, want := range expect.Stored {
		got, found := lookupRecord(record, path)
		if !found {
			failures = append(failures, fmt.Sprintf("stored %s missing", path))
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			failures = append(failures, fmt.Sprintf("stored %s = %v, want %v", path, got, want))
		}
	}
	return failures
}

func lookupRecord(record state.Record, path string) (any, bool) {
	step, field, ok := strings.Cut(path, ".")
	if !ok {
		return nil, false
	}
	section, ok := record.Sections[step]
	if !ok {
		return nil, false
	}
	return layering.Lookup(section, field)
}
