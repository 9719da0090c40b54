package course

import (
	"fmt"
	"strings"

	draftsync "github.com/goliatone/go-draftsync"
)

// IdentityExpr is the default identity rule: a draft is worth creating once it
// has a title or a category. The expression is valid for every engine.
const IdentityExpr = `basics.title != "" || basics.category != ""`

var publishExprs = map[string]string{
	draftsync.EngineExpr: `basics.title != "" && basics.category != "" && len(curriculum.modules) > 0 && (!pricing.enabled || pricing.price > 0)`,
	draftsync.EngineCEL:  `basics.title != "" && basics.category != "" && size(curriculum.modules) > 0 && (!pricing.enabled || pricing.price > 0.0)`,
	draftsync.EngineJS:   `basics.title != "" && basics.category != "" && curriculum.modules.length > 0 && (!pricing.enabled || pricing.price > 0)`,
}

// PublishExpr returns the default publish rule written for engine.
func PublishExpr(engine string) (string, error) {
	engine = normalizeEngine(engine)
	expr, ok := publishExprs[engine]
	if !ok {
		return "", fmt.Errorf("course: no publish rule for engine %q", engine)
	}
	return expr, nil
}

// RuleSet holds the expressions used for the identity and publish rules.
// Empty expressions fall back to the defaults for Engine.
type RuleSet struct {
	Engine   string
	Identity string
	Publish  string
}

// Compile builds both rules with draftsync.DefaultFunctions available. opts
// are applied to each rule after the engine and the default functions.
func (s RuleSet) Compile(opts ...draftsync.RuleOption) (identity, publish *draftsync.Rule, err error) {
	engine := normalizeEngine(s.Engine)
	ruleOpts := append([]draftsync.RuleOption{
		draftsync.WithEngine(engine),
		draftsync.WithFunctionRegistry(draftsync.DefaultFunctions()),
	}, opts...)

	identityExpr := strings.TrimSpace(s.Identity)
	if identityExpr == "" {
		identityExpr = IdentityExpr
	}
	publishExpr := strings.TrimSpace(s.Publish)
	if publishExpr == "" {
		if publishExpr, err = PublishExpr(engine); err != nil {
			return nil, nil, err
		}
	}

	identity, err = draftsync.NewRule("identity", identityExpr, ruleOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("course: %w", err)
	}
	publish, err = draftsync.NewRule("publish", publishExpr, ruleOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("course: %w", err)
	}
	return identity, publish, nil
}

// Options returns coordinator options wiring both rules.
func (s RuleSet) Options(opts ...draftsync.RuleOption) ([]draftsync.Option, error) {
	identity, publish, err := s.Compile(opts...)
	if err != nil {
		return nil, err
	}
	return []draftsync.Option{
		draftsync.WithIdentityRule(identity),
		draftsync.WithPublishRule(publish),
	}, nil
}

func normalizeEngine(engine string) string {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		return draftsync.EngineExpr
	}
	return engine
}
