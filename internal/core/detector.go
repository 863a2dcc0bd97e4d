package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/core/candidate"
	"github.com/agenthands/lorekeeper/internal/core/judge"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/core/resolve"
	"github.com/agenthands/lorekeeper/internal/core/rules"
	"github.com/agenthands/lorekeeper/internal/core/scan"
	"github.com/agenthands/lorekeeper/internal/core/structure"
)

const (
	ExplainNoCandidates = "No relevant facts to compare against"
	ExplainUnstructured = "Fact could not be structured; skipped"
)

// Repository is the slice of the fact store the detector drives.
type Repository interface {
	resolve.Repository
	ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error)
	InsertFact(ctx context.Context, f *model.Fact) error
	GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error)
}

// Detector runs the per-fact contradiction pipeline: structure, filter,
// rules, judge, resolve. Judge may be nil, in which case only rules apply.
type Detector struct {
	Repo       Repository
	Structurer *structure.Structurer
	Filter     *candidate.Filter
	Rules      *rules.Checker
	Judge      *judge.Adapter
	Resolver   *resolve.Resolver
	Scans      *scan.Tracker
	Logger     *zap.Logger
}

func NewDetector(repo Repository, semantic judge.SemanticJudge, cfg *config.Config) *Detector {
	s := structure.NewStructurer()

	filter := candidate.NewFilter(repo, s)
	filter.Limit = cfg.Detection.CandidateLimit
	filter.ConfidenceGap = cfg.Detection.ConfidenceGap
	filter.SemanticMinConfidence = cfg.Detection.SemanticMinConfidence

	var adapter *judge.Adapter
	if semantic != nil {
		adapter = judge.NewAdapter(semantic, cfg.Detection.JudgeBudget, cfg.Detection.JudgeDelay())
		adapter.EnableVerdictCache(cfg.Detection.VerdictCacheTTL())
	}

	return &Detector{
		Repo:       repo,
		Structurer: s,
		Filter:     filter,
		Rules:      rules.NewChecker(),
		Judge:      adapter,
		Resolver:   resolve.NewResolver(repo),
		Scans:      scan.NewTracker(cfg.Scan.Timeout()),
		Logger:     zap.L(),
	}
}

// DetectContradictions finds the active facts of profileID that conflict with
// fact. It reads the repository but never writes to it.
func (d *Detector) DetectContradictions(ctx context.Context, profileID string, fact model.Fact) (model.DetectionResult, error) {
	sf, ok := d.Structurer.Structure(fact)
	if !ok {
		d.Logger.Warn("fact could not be structured",
			zap.String("profile_id", profileID),
			zap.String("fact_id", fact.ID))
		return model.DetectionResult{Explanation: ExplainUnstructured}, nil
	}

	candidates, err := d.Filter.FindCandidates(ctx, profileID, sf)
	if err != nil {
		return model.DetectionResult{}, err
	}
	if len(candidates) == 0 {
		return model.DetectionResult{Explanation: ExplainNoCandidates}, nil
	}

	result := model.DetectionResult{Candidates: len(candidates)}

	hits := d.Rules.Hits(sf, candidates)
	flagged := make(map[string]bool, len(hits))
	conflicts := make([]model.Fact, 0, len(hits))
	for _, h := range hits {
		flagged[h.Fact.ID] = true
		conflicts = append(conflicts, h.Fact)
		d.Logger.Debug("rule conflict",
			zap.String("fact_id", fact.ID),
			zap.String("candidate_id", h.Fact.ID),
			zap.String("rule", h.Rule),
			zap.String("detail", h.Detail))
	}
	result.RuleConflicts = len(conflicts)

	var residual []model.Fact
	for _, c := range candidates {
		if !flagged[c.ID] {
			residual = append(residual, c)
		}
	}

	if d.Judge != nil && len(residual) > 0 {
		jr := d.Judge.Judge(ctx, fact, residual)
		result.JudgeQueries = jr.Queries
		result.JudgeFailures = jr.Failures
		for _, c := range jr.Conflicts {
			if flagged[c.ID] {
				continue
			}
			flagged[c.ID] = true
			conflicts = append(conflicts, c)
			result.JudgeConflicts++
		}
	}

	if len(conflicts) == 0 {
		result.Explanation = fmt.Sprintf("Checked %d candidate(s); no contradictions found", len(candidates))
		return result, nil
	}

	result.IsContradiction = true
	result.Conflicts = conflicts
	result.Severity = resolve.Severity(fact, conflicts)
	result.Explanation = fmt.Sprintf("Found %d contradiction(s) among %d candidate(s): %d by rules, %d by semantic judge",
		len(conflicts), len(candidates), result.RuleConflicts, result.JudgeConflicts)
	return result, nil
}

// CheckFact is a dry run for a stored fact. The returned group shows how the
// conflict would be resolved; nothing is persisted.
func (d *Detector) CheckFact(ctx context.Context, profileID, factID string) (model.DetectionResult, *model.ContradictionGroup, error) {
	fact, err := d.Repo.GetFact(ctx, profileID, factID)
	if err != nil {
		return model.DetectionResult{}, nil, err
	}

	result, err := d.DetectContradictions(ctx, profileID, *fact)
	if err != nil || !result.IsContradiction {
		return result, nil, err
	}

	group, err := d.Resolver.Plan(profileID, *fact, result.Conflicts)
	if err != nil {
		return result, nil, err
	}
	return result, group, nil
}

// IngestFact stores fact and resolves any contradiction it introduces.
// Only the insert can fail the call: a detection or resolution error is
// logged and the fact is left ACTIVE and ungrouped.
func (d *Detector) IngestFact(ctx context.Context, fact *model.Fact) (*model.ContradictionGroup, error) {
	if err := d.Repo.InsertFact(ctx, fact); err != nil {
		return nil, err
	}

	group, err := d.resolveFact(ctx, fact.ProfileID, *fact)
	if err != nil {
		d.Logger.Warn("contradiction check failed; fact kept ungrouped",
			zap.String("profile_id", fact.ProfileID),
			zap.String("fact_id", fact.ID),
			zap.Error(err))
		return nil, nil
	}
	if group != nil {
		for _, f := range group.Facts {
			if f.ID == fact.ID {
				*fact = f
				break
			}
		}
	}
	return group, nil
}

func (d *Detector) resolveFact(ctx context.Context, profileID string, fact model.Fact) (*model.ContradictionGroup, error) {
	result, err := d.DetectContradictions(ctx, profileID, fact)
	if err != nil {
		return nil, err
	}
	if !result.IsContradiction {
		return nil, nil
	}
	return d.Resolver.Resolve(ctx, profileID, fact, result.Conflicts)
}

// RunScan re-checks every active, ungrouped fact of profileID under the scan
// tracker. It returns scan.ErrScanRunning or scan.ErrScanUnaccepted when a
// scan may not start.
func (d *Detector) RunScan(ctx context.Context, profileID string) (model.ScanReport, error) {
	job, err := d.Scans.Start(profileID)
	if err != nil {
		return model.ScanReport{}, err
	}
	return d.finishScan(ctx, job)
}

// StartScan starts a scan in the background and returns the running job.
// The scan is detached from ctx and bounded by the tracker timeout.
func (d *Detector) StartScan(ctx context.Context, profileID string) (scan.Job, error) {
	job, err := d.Scans.Start(profileID)
	if err != nil {
		return job, err
	}

	scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.Scans.Timeout())
	go func() {
		defer cancel()
		_, _ = d.finishScan(scanCtx, job)
	}()
	return job, nil
}

func (d *Detector) finishScan(ctx context.Context, job scan.Job) (model.ScanReport, error) {
	report, err := d.ScanProfile(ctx, job.ProfileID)
	if err != nil {
		if _, ferr := d.Scans.Fail(job.ProfileID, job.ID, err); ferr != nil {
			d.Logger.Warn("scan failure not recorded",
				zap.String("profile_id", job.ProfileID),
				zap.String("scan_id", job.ID),
				zap.Error(ferr))
		}
		return report, err
	}
	if _, cerr := d.Scans.Complete(job.ProfileID, job.ID, report); cerr != nil {
		d.Logger.Warn("scan result discarded",
			zap.String("profile_id", job.ProfileID),
			zap.String("scan_id", job.ID),
			zap.Error(cerr))
		return report, cerr
	}
	return report, nil
}

// ScanProfile walks the profile's active facts oldest first and resolves
// each contradiction it finds. Facts grouped earlier in the same pass are
// skipped. A failed check is counted and the scan continues; a failed write
// aborts it.
func (d *Detector) ScanProfile(ctx context.Context, profileID string) (model.ScanReport, error) {
	start := time.Now()
	report := model.ScanReport{ProfileID: profileID}

	facts, err := d.Repo.ListActiveFacts(ctx, profileID, d.Filter.Limit)
	if err != nil {
		return report, eris.Wrapf(err, "scan: list facts for profile %s", profileID)
	}

	grouped := make(map[string]bool)
	for i := len(facts) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "scan: interrupted")
		}

		fact := facts[i]
		if grouped[fact.ID] {
			report.FactsSkipped++
			continue
		}
		report.FactsScanned++

		result, err := d.DetectContradictions(ctx, profileID, fact)
		if err != nil {
			report.CheckErrors++
			d.Logger.Warn("scan check failed",
				zap.String("profile_id", profileID),
				zap.String("fact_id", fact.ID),
				zap.Error(err))
			continue
		}
		if !result.IsContradiction {
			continue
		}

		group, err := d.Resolver.Resolve(ctx, profileID, fact, result.Conflicts)
		if err != nil {
			return report, err
		}
		for _, f := range group.Facts {
			grouped[f.ID] = true
		}
		report.GroupsCreated++
		report.Groups = append(report.Groups, *group)
	}

	report.Duration = time.Since(start)
	d.Logger.Info("scan finished",
		zap.String("profile_id", profileID),
		zap.Int("facts_scanned", report.FactsScanned),
		zap.Int("groups_created", report.GroupsCreated),
		zap.Duration("duration", report.Duration))
	return report, nil
}
