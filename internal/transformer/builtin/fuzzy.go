package builtin

import (
	"strconv"

	"dataunifier/internal/errs"
	"dataunifier/internal/record"
	"dataunifier/internal/transformer"
)

// fuzzy_match_replace keys.
const (
	KindFuzzyMatchReplace = "fuzzy_match_replace"

	KeyMethod       = "method"
	KeyMinimumScore = "minimum_score"
	KeyNgramSize    = "ngram_size"
	KeyString       = "string"
	KeyReplacement  = "replacement"

	MethodJaccard = "jaccard"

	DefaultNgramSize = 3
)

func init() { register(KindFuzzyMatchReplace, true, newFuzzyMatchReplace) }

// JaccardRule scores a value by the Jaccard index of character n-gram sets.
type JaccardRule struct {
	String      string
	Replacement string
	size        int
	grams       map[string]struct{}
}

// NewJaccardRule precomputes the n-grams of s.
func NewJaccardRule(s, replacement string, n int) JaccardRule {
	return JaccardRule{String: s, Replacement: replacement, size: n, grams: ngrams(s, n)}
}

// ngrams splits s into its distinct rune n-grams. A string of at most n
// runes is its own single n-gram.
func ngrams(s string, n int) map[string]struct{} {
	rs := []rune(s)
	if len(rs) <= n {
		return map[string]struct{}{s: {}}
	}
	out := make(map[string]struct{}, len(rs)-n+1)
	for i := 0; i+n <= len(rs); i++ {
		out[string(rs[i:i+n])] = struct{}{}
	}
	return out
}

// Score returns |A∩B| / |A∪B| for the n-grams of s and the rule string.
func (j JaccardRule) Score(s string) float64 {
	in := ngrams(s, j.size)
	inter := 0
	for g := range in {
		if _, ok := j.grams[g]; ok {
			inter++
		}
	}
	union := len(in) + len(j.grams) - inter
	return float64(inter) / float64(union)
}

// FuzzyMatchReplace replaces each value with the replacement of the rule it
// resembles most.
type FuzzyMatchReplace struct {
	valueTask
	Rules        []JaccardRule
	MinimumScore float64
	OnUnmatched  Unmatched
}

func newFuzzyMatchReplace(c *transformer.BuildContext) (transformer.Task, error) {
	n := c.Node
	if err := n.CheckKeys(KeyFields, KeyMethod, KeyRules, KeyMinimumScore, KeyOnUnmatched, KeyNgramSize); err != nil {
		return nil, err
	}
	vt, err := newValueTask(c)
	if err != nil {
		return nil, err
	}
	t := &FuzzyMatchReplace{valueTask: vt}
	if _, _, err := enumOption(n, KeyMethod, false, MethodJaccard); err != nil {
		return nil, err
	}

	size := DefaultNgramSize
	if sn, ok, err := n.Literal(KeyNgramSize, false); err != nil {
		return nil, err
	} else if ok {
		size, err = strconv.Atoi(sn.Text())
		if err != nil || size < 1 {
			return nil, errs.Configf(`Invalid ngram_size: "%s". Must be an integer more than 0. (File "%s", Task "%s")`, sn.Text(), sn.File, c.Name)
		}
	}

	if mn, ok, err := n.Literal(KeyMinimumScore, false); err != nil {
		return nil, err
	} else if ok {
		score, err := strconv.ParseFloat(mn.Text(), 64)
		if err != nil {
			return nil, errs.Configf(`Invalid minimum_score: "%s". Must be a number. (File "%s", Task "%s")`, mn.Text(), mn.File, c.Name)
		}
		t.MinimumScore = score
	}
	if t.OnUnmatched, err = unmatchedOption(n); err != nil {
		return nil, err
	}

	rules, _, err := n.DictList(KeyRules, true)
	if err != nil {
		return nil, err
	}
	for _, rn := range rules {
		strs, _, err := rn.Strings(KeyString, true)
		if err != nil {
			return nil, err
		}
		repl, _, err := rn.String(KeyReplacement, true)
		if err != nil {
			return nil, err
		}
		for _, s := range strs {
			t.Rules = append(t.Rules, NewJaccardRule(s, repl, size))
		}
	}
	return t, nil
}

// best returns the first rule with the strictly highest positive score.
func (t *FuzzyMatchReplace) best(v string) (*JaccardRule, float64) {
	var (
		winner  *JaccardRule
		highest float64
	)
	for i := range t.Rules {
		if s := t.Rules[i].Score(v); s > highest {
			winner, highest = &t.Rules[i], s
		}
	}
	return winner, highest
}

func (t *FuzzyMatchReplace) Transform(r record.Row) (record.Row, error) {
	return t.each(r, func(field, v string) (string, error) {
		rule, score := t.best(v)
		if rule != nil && score >= t.MinimumScore {
			return rule.Replacement, nil
		}
		return t.OnUnmatched.resolve(v, func() error {
			return errs.Transformf(`Could not match value "%s" in field "%s" to any rules.`, v, field)
		})
	})
}
