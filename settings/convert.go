package settings

import (
	"fmt"
	"math"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/parameter"
)

// Definition converts the spec into a data access definition. Defaults are
// coerced to the declared parameter type.
func (d DataAccessSpec) Definition() (dataaccess.Definition, error) {
	params := make([]parameter.Parameter, 0, len(d.Parameters))
	for _, spec := range d.Parameters {
		p, err := spec.Parameter()
		if err != nil {
			return dataaccess.Definition{}, fmt.Errorf("data access %q: %w", d.ID, err)
		}
		params = append(params, p)
	}

	set, err := parameter.NewSet(params...)
	if err != nil {
		return dataaccess.Definition{}, fmt.Errorf("data access %q: %w", d.ID, err)
	}

	return dataaccess.Definition{
		ID:             d.ID,
		Name:           d.Name,
		ConnectionID:   d.Connection,
		ConnectionType: d.connectionType(),
		Query:          d.Query,
		Cache:          d.cache(),
		CacheDuration:  d.cacheDuration(),
		Parameters:     set,
	}, nil
}

// Parameter converts the spec into a declared parameter.
func (p ParameterSpec) Parameter() (parameter.Parameter, error) {
	typ, err := parameter.ParseType(p.Type)
	if err != nil {
		return parameter.Parameter{}, err
	}
	access, err := parameter.ParseAccess(p.Access)
	if err != nil {
		return parameter.Parameter{}, err
	}

	param := parameter.Parameter{
		Name:      p.Name,
		Type:      typ,
		Access:    access,
		Pattern:   p.Pattern,
		Separator: p.Separator,
	}

	if p.Default != nil {
		v, err := param.Coerce(p.Default)
		if err != nil {
			return parameter.Parameter{}, fmt.Errorf("parameter %q: default: %w", p.Name, err)
		}
		param.Default = v
	}

	if p.Constraints != nil {
		rules, err := p.Constraints.rules(param)
		if err != nil {
			return parameter.Parameter{}, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		param.Rules = rules
	}
	return param, nil
}

// rules builds ozzo rules for the element type of param.
func (c Constraints) rules(param parameter.Parameter) ([]validation.Rule, error) {
	elem := param
	elem.Type = param.Type.Element()

	var rules []validation.Rule
	if c.Required {
		rules = append(rules, validation.Required)
	}

	if c.MinLength != nil || c.MaxLength != nil {
		if elem.Type != parameter.TypeString {
			return nil, fmt.Errorf("length constraints need a String type, got %s", param.Type)
		}
		var lo, hi int
		if c.MinLength != nil {
			lo = *c.MinLength
		}
		if c.MaxLength != nil {
			hi = *c.MaxLength
		}
		rules = append(rules, validation.Length(lo, hi))
	}

	for _, bound := range []struct {
		value *float64
		rule  func(any) validation.ThresholdRule
	}{
		{c.Min, validation.Min},
		{c.Max, validation.Max},
	} {
		if bound.value == nil {
			continue
		}
		switch elem.Type {
		case parameter.TypeInteger:
			v := *bound.value
			if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, fmt.Errorf("bound %v is not a whole number for %s", v, param.Type)
			}
			rules = append(rules, bound.rule(int64(v)))
		case parameter.TypeNumeric:
			rules = append(rules, bound.rule(*bound.value))
		default:
			return nil, fmt.Errorf("min and max need a numeric type, got %s", param.Type)
		}
	}

	if len(c.In) > 0 {
		allowed := make([]any, len(c.In))
		for i, raw := range c.In {
			v, err := elem.Coerce(raw)
			if err != nil {
				return nil, fmt.Errorf("allowed value %v: %w", raw, err)
			}
			allowed[i] = v
		}
		rules = append(rules, validation.In(allowed...))
	}

	if c.Match != "" {
		if elem.Type != parameter.TypeString {
			return nil, fmt.Errorf("match needs a String type, got %s", param.Type)
		}
		re, err := regexp.Compile(c.Match)
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		rules = append(rules, validation.Match(re))
	}

	return rules, nil
}
