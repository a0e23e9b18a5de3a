package builtin

import (
	"regexp"

	"dataunifier/internal/config"
	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// Rule-driven replacement kinds.
const (
	KindReplace      = "replace"
	KindRegexReplace = "regex_replace"

	KeyReplace = "replace"
	KeyWith    = "with"
)

func init() {
	register(KindReplace, true, newReplace)
	register(KindRegexReplace, true, newRegexReplace)
}

// ruleOptions is what replace and regex_replace share.
type ruleOptions struct {
	valueTask
	OnUnmatched Unmatched
	AllowBlank  bool
	// RulesFile names the file the rules were read from, which differs from
	// the task's file when the rules are included.
	RulesFile string
}

// readRuleOptions reads the shared keys and hands each rule to fn in order.
func readRuleOptions(c *transformer.BuildContext, fn func(patterns []config.Node, with string) error) (ruleOptions, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyOnUnmatched, KeyAllowBlank, KeyRules); err != nil {
		return ruleOptions{}, err
	}
	var o ruleOptions
	fields, err := fieldList(n)
	if err != nil {
		return o, err
	}
	if o.OnUnmatched, err = unmatchedOption(n); err != nil {
		return o, err
	}
	if o.AllowBlank, _, err = n.Boolean(KeyAllowBlank, true); err != nil {
		return o, err
	}
	rules, _, err := n.DictList(KeyRules, true)
	if err != nil {
		return o, err
	}
	o.RulesFile = n.File
	if len(rules) > 0 {
		o.RulesFile = rules[0].File
	}
	for _, rn := range rules {
		patterns, _, err := rn.LiteralList(KeyReplace, true)
		if err != nil {
			return o, err
		}
		with, _, err := rn.String(KeyWith, true)
		if err != nil {
			return o, err
		}
		if err := fn(patterns, with); err != nil {
			return o, err
		}
	}
	if err := c.Check(fields...); err != nil {
		return o, err
	}
	o.valueTask = valueTask{Base: c.Base(), Targets: fields}
	return o, nil
}

// apply runs match over every target field, honouring allow_blank and the
// unmatched policy.
func (o *ruleOptions) apply(r record.Row, match func(string) (string, bool)) (record.Row, error) {
	return o.each(r, func(field, v string) (string, error) {
		if o.AllowBlank && v == "" {
			return v, nil
		}
		if out, ok := match(v); ok {
			return out, nil
		}
		return o.OnUnmatched.resolve(v, func() error {
			return errs.Transformf(`Encountered unrecognised value in field "%s": "%s". (Rules in file "%s")`, field, v, o.RulesFile)
		})
	})
}

// --- replace ---

// Replace maps exact values through a lookup built from the rules. The first
// rule that lists a value wins.
type Replace struct {
	ruleOptions
	Table map[string]string
}

func newReplace(c *transformer.BuildContext) (transformer.Task, error) {
	table := map[string]string{}
	o, err := readRuleOptions(c, func(patterns []config.Node, with string) error {
		for _, p := range patterns {
			if _, seen := table[p.Text()]; !seen {
				table[p.Text()] = with
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Replace{ruleOptions: o, Table: table}, nil
}

func (t *Replace) Transform(r record.Row) (record.Row, error) {
	return t.apply(r, func(v string) (string, bool) {
		out, ok := t.Table[v]
		return out, ok
	})
}

// --- regex_replace ---

// RegexRule is an ordered set of patterns sharing one replacement template.
type RegexRule struct {
	Patterns []*regexp.Regexp
	With     string
}

// RegexReplace searches each value with every pattern in declaration order.
// The first pattern found anywhere in the value has all its matches
// substituted and ends the scan.
type RegexReplace struct {
	ruleOptions
	Rules []RegexRule
}

func newRegexReplace(c *transformer.BuildContext) (transformer.Task, error) {
	var rules []RegexRule
	o, err := readRuleOptions(c, func(patterns []config.Node, with string) error {
		rule := RegexRule{With: with}
		for _, p := range patterns {
			re, err := regexp.Compile(p.Text())
			if err != nil {
				return errs.Configf(`Invalid regular expression at key "%s": "%s". Details: "%s" (File "%s")`, p.Path, p.Text(), err, p.File)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rules = append(rules, rule)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RegexReplace{ruleOptions: o, Rules: rules}, nil
}

func (t *RegexReplace) Transform(r record.Row) (record.Row, error) {
	return t.apply(r, func(v string) (string, bool) {
		for _, rule := range t.Rules {
			for _, re := range rule.Patterns {
				if re.MatchString(v) {
					return re.ReplaceAllString(v, rule.With), true
				}
			}
		}
		return "", false
	})
}
