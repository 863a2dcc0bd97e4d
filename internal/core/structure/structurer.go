package structure

import (
	"regexp"
	"strings"

	"github.com/agenthands/lorekeeper/internal/core/lexicon"
	"github.com/agenthands/lorekeeper/internal/core/model"
)

const valuePrefixLen = 50

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// ValueExtractor produces a cluster-specific descriptor for lowercased
// content. It returns false when it has nothing better than the default.
type ValueExtractor func(lower string) (string, bool)

// Structurer converts facts into StructuredFacts with keyword heuristics only.
type Structurer struct {
	Subjects *lexicon.Classifier
	Clusters *lexicon.Classifier
	Polarity *lexicon.Classifier
	Values   map[string]ValueExtractor
}

func NewStructurer() *Structurer {
	rivalry := lexicon.NewClassifier("general_rivalry", lexicon.RivalryKinds...)
	skill := lexicon.NewClassifier("", lexicon.SkillTiers...)

	return &Structurer{
		Subjects: lexicon.NewClassifier(lexicon.UnknownSubject, lexicon.Subjects...),
		Clusters: lexicon.NewClassifier(lexicon.GeneralCluster, lexicon.Clusters...),
		Polarity: lexicon.NewClassifier(string(model.PolarityNeutral),
			lexicon.Rule{Label: string(model.PolarityNegative), Keywords: lexicon.StrongNegative},
			lexicon.Rule{Label: string(model.PolarityPositive), Keywords: lexicon.StrongPositive},
			lexicon.Rule{Label: string(model.PolarityNegative), Keywords: lexicon.WeakNegative},
			lexicon.Rule{Label: string(model.PolarityPositive), Keywords: lexicon.WeakPositive},
		),
		Values: map[string]ValueExtractor{
			lexicon.ClusterRivalry: func(lower string) (string, bool) {
				return rivalry.Classify(lower), true
			},
			lexicon.ClusterGameplayTactics: func(lower string) (string, bool) {
				if k, ok := lexicon.FindFirst(lower, lexicon.Killers); ok {
					return "killer:" + k, true
				}
				return "", false
			},
			lexicon.ClusterScheduling: func(lower string) (string, bool) {
				if t := lexicon.TimeOfDay.FindString(lower); t != "" {
					return "time:" + strings.ReplaceAll(t, " ", ""), true
				}
				if d, ok := lexicon.FindFirst(lower, lexicon.Weekdays); ok {
					return "day:" + d, true
				}
				return "", false
			},
			lexicon.ClusterCulturalIdentity: func(lower string) (string, bool) {
				if h, ok := lexicon.FindFirst(lower, lexicon.Heritage); ok {
					return "heritage:" + h, true
				}
				return "", false
			},
			lexicon.ClusterSkillLevel: func(lower string) (string, bool) {
				return skill.Match(lower)
			},
		},
	}
}

// Structure decomposes f. It returns false only when the content is empty;
// an unrecognised subject still yields a structure with subject "unknown".
func (s *Structurer) Structure(f model.Fact) (model.StructuredFact, bool) {
	lower := strings.TrimSpace(lexicon.Normalize(f.Content))
	if lower == "" {
		return model.StructuredFact{}, false
	}

	cluster, ok := s.Clusters.Match(lower)
	if !ok && lexicon.TimeOfDay.MatchString(lower) {
		cluster = lexicon.ClusterScheduling
	}
	return model.StructuredFact{
		Subject:    s.Subjects.Classify(lower),
		Predicate:  cluster,
		Polarity:   model.Polarity(s.Polarity.Classify(lower)),
		Value:      s.value(cluster, lower),
		Confidence: f.Confidence,
		Original:   f,
	}, true
}

func (s *Structurer) value(cluster, lower string) string {
	if extract, ok := s.Values[cluster]; ok {
		if v, ok := extract(lower); ok && v != "" {
			return v
		}
	}
	return NormalizedPrefix(lower)
}

// NormalizedPrefix strips punctuation, collapses whitespace and truncates to
// the first 50 characters.
func NormalizedPrefix(text string) string {
	v := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	v = strings.TrimSpace(whitespace.ReplaceAllString(v, " "))
	if len(v) > valuePrefixLen {
		v = strings.TrimSpace(v[:valuePrefixLen])
	}
	return v
}
