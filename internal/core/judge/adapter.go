package judge

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

const (
	// MaxBudget is the hard ceiling on judge queries per contradiction check.
	MaxBudget    = 10
	DefaultDelay = 100 * time.Millisecond
	MaxDelay     = 2 * time.Second
)

// Result summarizes one batch of judge queries.
type Result struct {
	Conflicts []model.Fact
	Checked   int // budget slots used
	Queries   int // calls that reached the judge
	Failures  int
	CacheHits int
}

// Adapter sends at most Budget candidates to the judge, pacing successive
// calls. It is safe to share between checks; the pacing is shared too.
type Adapter struct {
	Backend SemanticJudge
	Budget  int
	Logger  *zap.Logger
	limiter *rate.Limiter
	cache   *cache.Cache
}

// NewAdapter clamps budget to 1..MaxBudget and delay to a nonzero value no
// larger than MaxDelay.
func NewAdapter(judge SemanticJudge, budget int, delay time.Duration) *Adapter {
	if budget <= 0 || budget > MaxBudget {
		budget = MaxBudget
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if delay > MaxDelay {
		delay = MaxDelay
	}
	return &Adapter{
		Backend: judge,
		Budget:  budget,
		Logger:  zap.L(),
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// EnableVerdictCache remembers verdicts for ttl. A cached verdict still uses
// a budget slot but skips the judge call and the delay.
func (a *Adapter) EnableVerdictCache(ttl time.Duration) {
	if ttl <= 0 {
		a.cache = nil
		return
	}
	a.cache = cache.New(ttl, 2*ttl)
}

// Judge checks the first Budget candidates against newFact. Failures count as
// no conflict and never abort the batch.
func (a *Adapter) Judge(ctx context.Context, newFact model.Fact, candidates []model.Fact) Result {
	var res Result

	n := len(candidates)
	if n > a.Budget {
		n = a.Budget
		a.Logger.Debug("judge budget exhausted",
			zap.String("fact_id", newFact.ID),
			zap.Int("candidates", len(candidates)),
			zap.Int("unchecked", len(candidates)-n))
	}

	for _, cand := range candidates[:n] {
		res.Checked++

		key := cacheKey(newFact.Content, cand.Content)
		if a.cache != nil {
			if v, ok := a.cache.Get(key); ok {
				res.CacheHits++
				if v.(bool) {
					res.Conflicts = append(res.Conflicts, cand)
				}
				continue
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			res.Failures++
			a.Logger.Warn("judge pacing interrupted", zap.String("fact_id", newFact.ID), zap.Error(err))
			continue
		}

		res.Queries++
		verdict, err := a.Backend.JudgeContradiction(ctx, newFact.Content, cand.Content)
		if err != nil {
			res.Failures++
			a.Logger.Warn("judge call failed, treating as no conflict",
				zap.String("fact_id", newFact.ID),
				zap.String("candidate_id", cand.ID),
				zap.Error(err))
			continue
		}

		conflict := IsAffirmative(verdict)
		if a.cache != nil {
			a.cache.SetDefault(key, conflict)
		}
		if conflict {
			res.Conflicts = append(res.Conflicts, cand)
		}
	}

	if res.Failures > 0 {
		a.Logger.Warn("judge batch finished with failures",
			zap.String("fact_id", newFact.ID),
			zap.Int("failures", res.Failures),
			zap.Int("queries", res.Queries))
	}
	return res
}

// verdicts are symmetric
func cacheKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
