// Package resolve picks the authoritative fact of a contradiction set and
// records the group on the fact repository.
package resolve

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

const (
	confidenceWeight = 0.5
	supportWeight    = 0.3
	importanceWeight = 0.2

	// MaxSupport caps how much repeated observation can outweigh confidence.
	MaxSupport = 5
)

var (
	ErrEmptyGroup      = eris.New("resolve: no conflicting facts")
	ErrProfileMismatch = eris.New("resolve: fact belongs to another profile")
)

// Repository is the two-call write contract: demote every listed fact into
// the group, then reactivate one.
type Repository interface {
	MarkGroup(ctx context.Context, factIDs []string, groupID string) error
	SetStatus(ctx context.Context, factID string, status model.FactStatus) error
}

// GroupWriter is implemented by repositories that can write a whole group,
// primary included, atomically. Resolver prefers it when available.
type GroupWriter interface {
	ResolveGroup(ctx context.Context, factIDs []string, groupID, primaryID string) error
}

type Resolver struct {
	Repo          Repository
	UUIDGenerator func() string
	Logger        *zap.Logger
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{
		Repo:          repo,
		UUIDGenerator: uuid.NewString,
		Logger:        zap.L(),
	}
}

// Score ranks a fact within a contradiction set. Confidence carries half the
// weight, capped support 30% and importance 20%.
func Score(f model.Fact) float64 {
	support := f.SupportCount
	if support > MaxSupport {
		support = MaxSupport
	}
	return float64(f.Confidence)*confidenceWeight +
		float64(support)*20*supportWeight +
		float64(f.Importance)*10*importanceWeight
}

// Rank orders facts by descending score. Equal scores keep input order.
func Rank(facts []model.Fact) []model.Fact {
	ranked := append([]model.Fact(nil), facts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Score(ranked[i]) > Score(ranked[j])
	})
	return ranked
}

// Severity grades a contradiction for reporting only.
func Severity(newFact model.Fact, conflicts []model.Fact) model.Severity {
	maxConf := 0
	for _, c := range conflicts {
		if c.Confidence > maxConf {
			maxConf = c.Confidence
		}
	}
	switch {
	case len(conflicts) >= 3 || (maxConf >= 80 && newFact.Confidence >= 80):
		return model.SeverityHigh
	case len(conflicts) >= 2 || (maxConf >= 60 && newFact.Confidence >= 60):
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// Plan computes the group without writing anything. Conflicts repeating the
// new fact or each other are dropped.
func (r *Resolver) Plan(profileID string, newFact model.Fact, conflicts []model.Fact) (*model.ContradictionGroup, error) {
	seen := map[string]bool{newFact.ID: true}
	all := []model.Fact{newFact}
	var unique []model.Fact
	for _, f := range append([]model.Fact{newFact}, conflicts...) {
		if f.ProfileID != "" && f.ProfileID != profileID {
			return nil, eris.Wrapf(ErrProfileMismatch, "fact %s in profile %s, expected %s", f.ID, f.ProfileID, profileID)
		}
	}
	for _, c := range conflicts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
		all = append(all, c)
	}
	if len(unique) == 0 {
		return nil, ErrEmptyGroup
	}

	groupID := r.UUIDGenerator()
	ranked := Rank(all)
	for i := range ranked {
		gid := groupID
		ranked[i].ContradictionGroupID = &gid
		ranked[i].Status = model.StatusAmbiguous
	}
	ranked[0].Status = model.StatusActive

	primary := ranked[0]
	return &model.ContradictionGroup{
		GroupID:          groupID,
		Facts:            ranked,
		PrimaryFact:      primary,
		ConflictingFacts: ranked[1:],
		Severity:         Severity(newFact, unique),
		Explanation: fmt.Sprintf("Kept %q (score %.1f) as primary over %d conflicting fact(s)",
			primary.Content, Score(primary), len(ranked)-1),
	}, nil
}

// Resolve plans the group and persists it. Repository failures are returned
// unretried; the caller decides whether to run the whole resolution again.
func (r *Resolver) Resolve(ctx context.Context, profileID string, newFact model.Fact, conflicts []model.Fact) (*model.ContradictionGroup, error) {
	group, err := r.Plan(profileID, newFact, conflicts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(group.Facts))
	for _, f := range group.Facts {
		ids = append(ids, f.ID)
	}

	if gw, ok := r.Repo.(GroupWriter); ok {
		if err := gw.ResolveGroup(ctx, ids, group.GroupID, group.PrimaryFact.ID); err != nil {
			return nil, eris.Wrapf(err, "resolve: write group %s", group.GroupID)
		}
	} else {
		if err := r.Repo.MarkGroup(ctx, ids, group.GroupID); err != nil {
			return nil, eris.Wrapf(err, "resolve: mark group %s", group.GroupID)
		}
		if err := r.Repo.SetStatus(ctx, group.PrimaryFact.ID, model.StatusActive); err != nil {
			r.Logger.Error("group left without an active fact",
				zap.String("profile_id", profileID),
				zap.String("group_id", group.GroupID),
				zap.String("primary_id", group.PrimaryFact.ID),
				zap.Error(err))
			return nil, eris.Wrapf(err, "resolve: reactivate primary %s", group.PrimaryFact.ID)
		}
	}

	r.Logger.Info("contradiction group resolved",
		zap.String("profile_id", profileID),
		zap.String("group_id", group.GroupID),
		zap.String("primary_id", group.PrimaryFact.ID),
		zap.Int("conflicts", len(group.ConflictingFacts)),
		zap.String("severity", string(group.Severity)))
	return group, nil
}
