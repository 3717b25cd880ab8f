package correlation

import (
	"context"
	"fmt"
	"time"

	"code.cloudfoundry.org/lager/v3"
	cache "github.com/patrickmn/go-cache"
	"github.com/xeipuuv/gojsonschema"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

const DefaultRuleCacheTTL = 5 * time.Minute

const mappingRuleSchema = `{
	"type": "object",
	"required": ["match_field", "match_type", "match_value", "metric"],
	"properties": {
		"match_field": {
			"enum": [
				"source", "priority", "severity", "team", "application",
				"subsystem", "alert_name", "message", "alert_query",
				"sample_log", "host", "path", "status_code"
			]
		},
		"match_type": {
			"enum": ["contains", "equals", "regex"]
		},
		"match_value": {
			"type": "string",
			"minLength": 1
		},
		"domain": {
			"type": "string"
		},
		"metric": {
			"type": "string",
			"minLength": 1
		}
	}
}`

// RuleProvider serves active mapping rules for a domain, caching them for a
// TTL. Rules failing schema validation are dropped with a log line; rules
// are operator-edited and a bad row must not poison a sweep.
type RuleProvider struct {
	logger lager.Logger
	store  db.RuleMappingStore
	cache  *cache.Cache
	ttl    time.Duration
	schema *gojsonschema.Schema
}

func NewRuleProvider(logger lager.Logger, store db.RuleMappingStore, ttl time.Duration) (*RuleProvider, error) {
	if ttl <= 0 {
		ttl = DefaultRuleCacheTTL
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(mappingRuleSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile mapping rule schema: %w", err)
	}
	return &RuleProvider{
		logger: logger.Session("rule-provider"),
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
		schema: schema,
	}, nil
}

// ActiveRules returns the validated active rules for the domain, from cache
// when fresh.
func (p *RuleProvider) ActiveRules(ctx context.Context, domain string) ([]models.MappingRule, error) {
	key := "rules/" + domain
	if cached, found := p.cache.Get(key); found {
		return cached.([]models.MappingRule), nil
	}

	rules, err := p.store.RetrieveMappingRules(ctx, domain, true)
	if err != nil {
		p.logger.Error("failed-to-retrieve-mapping-rules", err, lager.Data{"domain": domain})
		return nil, err
	}

	valid := make([]models.MappingRule, 0, len(rules))
	for _, rule := range rules {
		if p.validate(&rule) {
			valid = append(valid, rule)
		}
	}

	p.cache.Set(key, valid, p.ttl)
	return valid, nil
}

// Invalidate drops the cached rules for the domain.
func (p *RuleProvider) Invalidate(domain string) {
	p.cache.Delete("rules/" + domain)
}

func (p *RuleProvider) validate(rule *models.MappingRule) bool {
	result, err := p.schema.Validate(gojsonschema.NewGoLoader(rule))
	if err != nil {
		p.logger.Error("failed-to-validate-mapping-rule", err, lager.Data{"match_value": rule.MatchValue})
		return false
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		p.logger.Info("dropping-invalid-mapping-rule", lager.Data{"match_value": rule.MatchValue, "errors": errs})
		return false
	}
	return true
}
