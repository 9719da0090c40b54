package course

import (
	"fmt"
	"strings"
	"sync"

	draftsync "github.com/goliatone/go-draftsync"
)

// Pricing tiers held by the calculator.
const (
	TierEarly   = "early"
	TierRegular = "regular"
)

// PricingCalculator is the pricing step's local state. It owns nested tier
// values that never live in the session, so it is exposed to the payload
// builder as a snapshot provider while the step is mounted.
type PricingCalculator struct {
	mu       sync.RWMutex
	enabled  bool
	price    float64
	currency string
	discount float64
	tiers    map[string]float64
	onChange func()
}

// PricingOption configures a PricingCalculator.
type PricingOption func(*PricingCalculator)

// WithCurrency sets the starting currency.
func WithCurrency(currency string) PricingOption {
	return func(p *PricingCalculator) {
		if currency = strings.ToUpper(strings.TrimSpace(currency)); currency != "" {
			p.currency = currency
		}
	}
}

// WithChangeHook is called after every mutation, typically with
// Coordinator.MarkDirty.
func WithChangeHook(fn func()) PricingOption {
	return func(p *PricingCalculator) {
		p.onChange = fn
	}
}

// NewPricingCalculator returns a disabled calculator with zero prices.
func NewPricingCalculator(opts ...PricingOption) *PricingCalculator {
	p := &PricingCalculator{
		currency: "USD",
		tiers:    map[string]float64{TierEarly: 0, TierRegular: 0},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// SetEnabled toggles paid pricing.
func (p *PricingCalculator) SetEnabled(enabled bool) {
	p.mutate(func() { p.enabled = enabled })
}

// SetPrice sets the list price. Negative prices are clamped to zero.
func (p *PricingCalculator) SetPrice(price float64) {
	p.mutate(func() { p.price = clampPrice(price) })
}

// SetDiscount sets the discount percentage, clamped to [0, MaxDiscount].
func (p *PricingCalculator) SetDiscount(percent float64) {
	if percent > MaxDiscount {
		percent = MaxDiscount
	}
	p.mutate(func() { p.discount = clampPrice(percent) })
}

// SetTier sets the price of a known tier.
func (p *PricingCalculator) SetTier(tier string, price float64) error {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier != TierEarly && tier != TierRegular {
		return fmt.Errorf("course: unknown pricing tier %q", tier)
	}
	p.mutate(func() { p.tiers[tier] = clampPrice(price) })
	return nil
}

// EffectivePrice is the list price after discount.
func (p *PricingCalculator) EffectivePrice() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.effectiveLocked()
}

// Pull implements draftsync.Provider.
func (p *PricingCalculator) Pull() (draftsync.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tiers := make(map[string]any, len(p.tiers))
	for name, price := range p.tiers {
		tiers[name] = price
	}
	return draftsync.Snapshot{
		"enabled":         p.enabled,
		"price":           p.price,
		"currency":        p.currency,
		"discount":        p.discount,
		"effective_price": p.effectiveLocked(),
		"tiers":           tiers,
	}, true
}

// Load seeds the calculator from a stored pricing section without firing the
// change hook.
func (p *PricingCalculator) Load(section Pricing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = section.Enabled
	p.price = clampPrice(section.Price)
	p.discount = clampPrice(section.Discount)
	if section.Currency != "" {
		p.currency = section.Currency
	}
	p.tiers[TierEarly] = clampPrice(section.Tiers.Early)
	p.tiers[TierRegular] = clampPrice(section.Tiers.Regular)
}

// Mount registers the calculator as the pricing step provider. Call
// Deregister on the returned handle when the step unmounts.
func (p *PricingCalculator) Mount(registry *draftsync.Registry) (draftsync.Handle, error) {
	return registry.Register(StepPricing, p)
}

func (p *PricingCalculator) effectiveLocked() float64 {
	return p.price * (1 - p.discount/100)
}

func (p *PricingCalculator) mutate(fn func()) {
	p.mu.Lock()
	fn()
	onChange := p.onChange
	p.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func clampPrice(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}
