// Package rules finds contradictions that can be decided from the text alone,
// without asking a semantic judge.
package rules

import (
	"regexp"
	"strings"

	"github.com/agenthands/lorekeeper/internal/core/lexicon"
	"github.com/agenthands/lorekeeper/internal/core/model"
)

const (
	RuleOpposingTerms  = "opposing_terms"
	RuleExclusiveValue = "exclusive_value"
	RuleTimeMismatch   = "time_mismatch"
	RuleNumberMismatch = "number_mismatch"
)

var (
	bareNumber = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// Hit is a candidate flagged by a rule.
type Hit struct {
	Fact   model.Fact
	Rule   string
	Detail string
}

// Checker holds the lexical tables. It does no I/O, so its output for a
// given pair of texts never changes.
type Checker struct {
	Pairs []lexicon.OpposingPair
	Sets  []lexicon.ExclusiveSet
}

func NewChecker() *Checker {
	return &Checker{
		Pairs: lexicon.OpposingPairs,
		Sets:  lexicon.ExclusiveSets,
	}
}

// Check returns the candidates that contradict newFact, in candidate order.
func (c *Checker) Check(newFact model.StructuredFact, candidates []model.Fact) []model.Fact {
	var out []model.Fact
	for _, h := range c.Hits(newFact, candidates) {
		out = append(out, h.Fact)
	}
	return out
}

// Hits is Check with the rule that fired for each conflict.
func (c *Checker) Hits(newFact model.StructuredFact, candidates []model.Fact) []Hit {
	var out []Hit
	for _, cand := range candidates {
		if rule, detail, ok := c.Conflict(newFact.Original.Content, cand.Content); ok {
			out = append(out, Hit{Fact: cand, Rule: rule, Detail: detail})
		}
	}
	return out
}

// Conflict reports whether texts a and b contradict under any rule, returning
// the first rule that fires and the terms involved.
func (c *Checker) Conflict(a, b string) (rule, detail string, ok bool) {
	a, b = lexicon.Normalize(a), lexicon.Normalize(b)

	for _, p := range c.Pairs {
		if hasTerm(a, p.A, p.B) && lexicon.ContainsTerm(b, p.B) ||
			lexicon.ContainsTerm(a, p.B) && hasTerm(b, p.A, p.B) {
			return RuleOpposingTerms, p.A + "/" + p.B, true
		}
	}

	for _, set := range c.Sets {
		if d, ok := exclusiveConflict(set, a, b); ok {
			return RuleExclusiveValue, d, true
		}
	}

	ta, tb := compact(lexicon.TimeOfDay.FindString(a)), compact(lexicon.TimeOfDay.FindString(b))
	if ta != "" && tb != "" && ta != tb {
		return RuleTimeMismatch, ta + "/" + tb, true
	}

	na, nb := bareNumber.FindString(a), bareNumber.FindString(b)
	if na != "" && nb != "" && na != nb {
		return RuleNumberMismatch, na + "/" + nb, true
	}
	return "", "", false
}

// hasTerm reports whether text contains term once every occurrence of its
// opposite has been removed, so "is not" does not also count as "is".
func hasTerm(text, term, opposite string) bool {
	if strings.Contains(opposite, term) {
		text = lexicon.RemoveTerm(text, opposite)
	}
	return lexicon.ContainsTerm(text, term)
}

func exclusiveConflict(set lexicon.ExclusiveSet, a, b string) (string, bool) {
	if len(lexicon.FindAll(a, set.Context)) == 0 || len(lexicon.FindAll(b, set.Context)) == 0 {
		return "", false
	}
	ma, mb := members(set, a), members(set, b)
	if len(ma) == 0 || len(mb) == 0 {
		return "", false
	}
	for m := range ma {
		if mb[m] {
			return "", false
		}
	}
	return set.Name, true
}

func members(set lexicon.ExclusiveSet, text string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range lexicon.FindAll(text, set.Members) {
		out[set.Canonical(m)] = true
	}
	return out
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
