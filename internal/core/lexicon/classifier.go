// Package lexicon holds the fixed vocabularies used to structure and compare
// facts, and a small first-match classifier that evaluates them.
package lexicon

import (
	"regexp"
	"strings"
	"sync"
)

// Rule selects Label when any of its keywords occurs in the text.
type Rule struct {
	Label    string
	Keywords []string
}

// Classifier evaluates an ordered list of rules and returns the label of the
// first rule that matches. Order is priority, not position in the text.
type Classifier struct {
	rules    []compiledRule
	fallback string
}

type compiledRule struct {
	label string
	re    *regexp.Regexp
}

// NewClassifier compiles rules in order. Rules with no keywords never match.
func NewClassifier(fallback string, rules ...Rule) *Classifier {
	c := &Classifier{fallback: fallback}
	for _, r := range rules {
		if len(r.Keywords) == 0 {
			continue
		}
		c.rules = append(c.rules, compiledRule{label: r.Label, re: KeywordPattern(r.Keywords...)})
	}
	return c
}

// Classify returns the first matching label, or the fallback.
func (c *Classifier) Classify(text string) string {
	label, _ := c.Match(text)
	return label
}

// Match is Classify that also reports whether a rule (not the fallback) matched.
func (c *Classifier) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if r.re.MatchString(lower) {
			return r.label, true
		}
	}
	return c.fallback, false
}

// Labels lists rule labels in priority order.
func (c *Classifier) Labels() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.label)
	}
	return out
}

// KeywordPattern builds a case-insensitive whole-word matcher for the given
// keywords. A trailing plural ("s" or "es") is accepted so "main" matches
// "mains".
func KeywordPattern(keywords ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)(?:s|es)?\b`)
}

// TimeOfDay matches a clock time such as "8 PM" or "9pm".
var TimeOfDay = regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:am|pm)\b`)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// Normalize lowercases text and folds curly apostrophes to straight ones so
// contractions like "can’t" match the vocabularies.
func Normalize(text string) string {
	return strings.ToLower(apostrophes.Replace(text))
}

var termPatterns sync.Map // term -> *regexp.Regexp

func termPattern(term string) *regexp.Regexp {
	if re, ok := termPatterns.Load(term); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := termPatterns.LoadOrStore(term, KeywordPattern(term))
	return re.(*regexp.Regexp)
}

// ContainsTerm reports whether term occurs in text as a whole word or phrase.
func ContainsTerm(text, term string) bool {
	return termPattern(term).MatchString(text)
}

// RemoveTerm blanks every whole-word occurrence of term in text.
func RemoveTerm(text, term string) string {
	return termPattern(term).ReplaceAllString(text, " ")
}

// FindFirst returns the first keyword (as listed, not as it appears in text)
// found in text, scanning keywords in order.
func FindFirst(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if ContainsTerm(text, k) {
			return k, true
		}
	}
	return "", false
}

// FindAll returns every keyword found in text, in list order.
func FindAll(text string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if ContainsTerm(text, k) {
			out = append(out, k)
		}
	}
	return out
}
