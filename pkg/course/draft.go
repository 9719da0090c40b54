package course

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-draftsync/internal/hydrate"
	"github.com/goliatone/go-draftsync/pkg/state"
)

// Draft is a typed view of a stored course draft.
type Draft struct {
	ResourceID string     `json:"-"`
	Status     string     `json:"-"`
	Basics     Basics     `json:"basics"`
	Pricing    Pricing    `json:"pricing"`
	Details    Details    `json:"details"`
	Media      Media      `json:"media"`
	Curriculum Curriculum `json:"curriculum"`
}

type Basics struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Category string `json:"category"`
}

type Pricing struct {
	Enabled        bool    `json:"enabled"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	Discount       float64 `json:"discount"`
	EffectivePrice float64 `json:"effective_price"`
	Tiers          Tiers   `json:"tiers"`
}

type Tiers struct {
	Early   float64 `json:"early"`
	Regular float64 `json:"regular"`
}

type Details struct {
	Description   string  `json:"description"`
	Level         string  `json:"level"`
	Language      string  `json:"language"`
	DurationHours float64 `json:"duration_hours"`
}

type Media struct {
	CoverURL      string `json:"cover_url"`
	PromoVideoURL string `json:"promo_video_url"`
}

type Curriculum struct {
	Modules []string `json:"modules"`
}

// DecodeDraft converts a stored record into a Draft. Legacy pricing written as
// "<amount> <currency>" strings is split before decoding, and numbers stored
// as strings are accepted.
func DecodeDraft(record state.Record) (Draft, error) {
	payload := make(map[string]any, len(record.Sections))
	for step, section := range record.Sections {
		payload[step] = section
	}
	draft, err := draftDecoder.Decode(hydrate.Context{
		ResourceID: record.ResourceID,
		Status:     record.Status,
	}, payload)
	if err != nil {
		return Draft{}, fmt.Errorf("course: %w", err)
	}
	return draft, nil
}

var draftDecoder = hydrate.NewDecoder(
	hydrate.WithWeakTypes[Draft](),
	hydrate.WithPreHook[Draft](splitLegacyPrice),
	hydrate.WithPostHook[Draft](func(ctx hydrate.Context, draft *Draft) error {
		draft.ResourceID = ctx.ResourceID
		draft.Status = ctx.Status
		return nil
	}),
)

func splitLegacyPrice(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	pricing, ok := payload[StepPricing].(map[string]any)
	if !ok {
		return payload, nil
	}
	raw, ok := pricing["price"].(string)
	if !ok {
		return payload, nil
	}
	parts := strings.Fields(raw)
	if len(parts) == 0 || len(parts) > 2 {
		return nil, fmt.Errorf("invalid legacy price %q", raw)
	}
	amount, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid legacy price %q: %w", raw, err)
	}
	pricing["price"] = amount
	if len(parts) == 2 {
		pricing["currency"] = strings.ToUpper(parts[1])
	}
	return payload, nil
}
