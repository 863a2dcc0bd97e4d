package candidate

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core/lexicon"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/core/structure"
)

const (
	DefaultLimit                 = 1000
	DefaultConfidenceGap         = 30
	DefaultSemanticMinConfidence = 70
	minSharedKeywords            = 2
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Lister is the slice of the fact repository the filter reads from.
type Lister interface {
	ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error)
}

// Reason records which inclusion rule admitted a candidate.
type Reason string

const (
	ReasonExactTopic   Reason = "exact_topic"
	ReasonRelatedTopic Reason = "related_topic"
	ReasonSemantic     Reason = "high_confidence_overlap"
)

// Filter narrows a profile's active facts to the few worth comparing against
// a new fact.
type Filter struct {
	Repo                  Lister
	Structurer            *structure.Structurer
	Limit                 int
	ConfidenceGap         int
	SemanticMinConfidence int
	Logger                *zap.Logger
}

func NewFilter(repo Lister, structurer *structure.Structurer) *Filter {
	return &Filter{
		Repo:                  repo,
		Structurer:            structurer,
		Limit:                 DefaultLimit,
		ConfidenceGap:         DefaultConfidenceGap,
		SemanticMinConfidence: DefaultSemanticMinConfidence,
		Logger:                zap.L(),
	}
}

// FindCandidates returns the active, ungrouped facts of profileID that could
// contradict newFact. Facts of other profiles are never returned.
func (f *Filter) FindCandidates(ctx context.Context, profileID string, newFact model.StructuredFact) ([]model.Fact, error) {
	facts, err := f.Repo.ListActiveFacts(ctx, profileID, f.Limit)
	if err != nil {
		return nil, eris.Wrapf(err, "candidate: list active facts for profile %s", profileID)
	}

	var out []model.Fact
	for _, existing := range facts {
		if existing.ProfileID != profileID || existing.ID == newFact.Original.ID {
			continue
		}
		if existing.Status != model.StatusActive || existing.Grouped() {
			continue
		}
		sf, ok := f.Structurer.Structure(existing)
		if !ok {
			f.Logger.Warn("skipping unstructurable fact",
				zap.String("profile_id", profileID),
				zap.String("fact_id", existing.ID))
			continue
		}
		if _, ok := f.Match(newFact, sf); ok {
			out = append(out, existing)
		}
	}
	return out, nil
}

// Match applies the inclusion rules to a structured pair.
func (f *Filter) Match(newFact, existing model.StructuredFact) (Reason, bool) {
	gap := newFact.Confidence - existing.Confidence
	if gap < 0 {
		gap = -gap
	}
	near := gap <= f.ConfidenceGap

	if newFact.Subject == existing.Subject && newFact.Predicate == existing.Predicate && near {
		return ReasonExactTopic, true
	}
	if near && lexicon.Related(newFact.Predicate, existing.Predicate) {
		return ReasonRelatedTopic, true
	}
	if newFact.Confidence >= f.SemanticMinConfidence && existing.Confidence >= f.SemanticMinConfidence &&
		SharedKeywords(newFact.Value, existing.Value) >= minSharedKeywords {
		return ReasonSemantic, true
	}
	return "", false
}

// SharedKeywords counts distinct tokens longer than three characters present
// in both values.
func SharedKeywords(a, b string) int {
	seen := make(map[string]bool)
	for _, tok := range tokenSplit.Split(strings.ToLower(a), -1) {
		if len(tok) > 3 {
			seen[tok] = true
		}
	}
	n := 0
	for _, tok := range tokenSplit.Split(strings.ToLower(b), -1) {
		if seen[tok] {
			n++
			delete(seen, tok)
		}
	}
	return n
}
