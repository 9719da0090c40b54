// Package course declares the steps of the course authoring wizard: their
// defaults, numeric fields and the rules a draft must pass to be saved or
// published.
package course

import (
	"fmt"

	draftsync "github.com/goliatone/go-draftsync"
)

// Wizard step names.
const (
	StepBasics     = "basics"
	StepPricing    = "pricing"
	StepDetails    = "details"
	StepMedia      = "media"
	StepCurriculum = "curriculum"
)

// MaxDiscount caps pricing.discount, a percentage.
const MaxDiscount = 100.0

// Steps returns the wizard steps in display order. Every call returns fresh
// defaults.
func Steps() []draftsync.StepSpec {
	return []draftsync.StepSpec{
		{
			Name: StepBasics,
			Defaults: map[string]any{
				"title":    "",
				"subtitle": "",
				"category": "",
			},
		},
		{
			Name: StepPricing,
			Defaults: map[string]any{
				"enabled":  false,
				"price":    0.0,
				"currency": "USD",
				"discount": 0.0,
				"tiers": map[string]any{
					"early":   0.0,
					"regular": 0.0,
				},
			},
			Numeric:   []string{"price", "discount", "tiers.early", "tiers.regular"},
			Normalize: normalizePricing,
		},
		{
			Name: StepDetails,
			Defaults: map[string]any{
				"description":    "",
				"level":          "beginner",
				"language":       "en",
				"duration_hours": 0.0,
			},
			Numeric: []string{"duration_hours"},
		},
		{
			Name: StepMedia,
			Defaults: map[string]any{
				"cover_url":       "",
				"promo_video_url": "",
			},
		},
		{
			Name: StepCurriculum,
			Defaults: map[string]any{
				"modules": []any{},
			},
		},
	}
}

func normalizePricing(section map[string]any) map[string]any {
	if discount, ok := section["discount"].(float64); ok && discount > MaxDiscount {
		section["discount"] = MaxDiscount
	}
	return section
}

// NewBuilder returns a payload builder for the course wizard.
func NewBuilder(registry *draftsync.Registry, opts ...draftsync.BuilderOption) (*draftsync.Builder, error) {
	builder, err := draftsync.NewBuilder(registry, Steps(), opts...)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	return builder, nil
}
