package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/core/scan"
)

func newTestDetector(repo *MockRepository, j *MockJudge) *Detector {
	cfg := config.Default()
	cfg.Detection.JudgeDelayMS = 1
	if j == nil {
		return NewDetector(repo, nil, cfg)
	}
	return NewDetector(repo, j, cfg)
}

func fact(id, content string, confidence int) model.Fact {
	return model.Fact{ID: id, ProfileID: "p1", Content: content, Confidence: confidence}
}

func TestIngestFact_RuleConflictResolved(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("hillbilly", "Nicky mains Hillbilly", 75))
	judge := &MockJudge{}
	d := newTestDetector(repo, judge)

	newFact := fact("ghostface", "Nicky mains Ghostface", 80)
	group, err := d.IngestFact(context.Background(), &newFact)
	require.NoError(t, err)
	require.NotNil(t, group)

	assert.Equal(t, 0, judge.calls())
	assert.Equal(t, "ghostface", group.PrimaryFact.ID)
	require.Len(t, group.ConflictingFacts, 1)
	assert.Equal(t, "hillbilly", group.ConflictingFacts[0].ID)

	assert.Equal(t, model.StatusActive, repo.get("ghostface").Status)
	assert.Equal(t, model.StatusAmbiguous, repo.get("hillbilly").Status)
	assert.Equal(t, group.GroupID, *repo.get("ghostface").ContradictionGroupID)
	assert.Equal(t, group.GroupID, *repo.get("hillbilly").ContradictionGroupID)

	// the caller's copy reflects the resolution
	assert.Equal(t, model.StatusActive, newFact.Status)
	require.NotNil(t, newFact.ContradictionGroupID)
}

func TestDetectContradictions_TimeMismatch(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("nine", "The stream starts at 9 PM", 60))
	judge := &MockJudge{}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("eight", "The stream starts at 8 PM", 60))
	require.NoError(t, err)
	assert.True(t, res.IsContradiction)
	assert.Equal(t, 1, res.RuleConflicts)
	assert.Equal(t, 0, res.JudgeQueries)
	assert.Equal(t, 0, judge.calls())
	assert.Equal(t, "nine", res.Conflicts[0].ID)
	assert.Equal(t, model.SeverityMedium, res.Severity)
}

func TestDetectContradictions_NoCandidates(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("vinny", "Uncle Vinny wears a suit", 40))
	judge := &MockJudge{Default: "YES"}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Sunsets look purple", 50))
	require.NoError(t, err)
	assert.False(t, res.IsContradiction)
	assert.Equal(t, ExplainNoCandidates, res.Explanation)
	assert.Equal(t, 0, judge.calls())
}

func TestDetectContradictions_JudgeBudget(t *testing.T) {
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
		"india", "juliet", "kilo", "lima", "mike", "november", "oscar"}
	repo := newMockRepository()
	for _, w := range words {
		repo.add(fact(w, fmt.Sprintf("Nicky favors the %s loadout", w), 50))
	}
	judge := &MockJudge{}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Nicky runs a stealth build", 50))
	require.NoError(t, err)
	assert.Equal(t, 15, res.Candidates)
	assert.Equal(t, 0, res.RuleConflicts)
	assert.Equal(t, 10, res.JudgeQueries)
	assert.Equal(t, 10, judge.calls())
	assert.False(t, res.IsContradiction)
}

func TestDetectContradictions_JudgeConflict(t *testing.T) {
	repo := newMockRepository()
	repo.add(
		fact("camp", "Nicky refuses to camp hooks", 70),
		fact("tunnel", "Nicky tunnels the obsession", 70),
	)
	judge := &MockJudge{Verdicts: map[string]string{"Nicky refuses to camp hooks": "Yes, they conflict."}}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Nicky camps every hook", 70))
	require.NoError(t, err)
	assert.True(t, res.IsContradiction)
	assert.Equal(t, 1, res.JudgeConflicts)
	assert.Equal(t, 2, res.JudgeQueries)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "camp", res.Conflicts[0].ID)
}

func TestDetectContradictions_JudgeFailureIsNoConflict(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("camp", "Nicky refuses to camp hooks", 70))
	judge := &MockJudge{Err: errors.New("rate limited")}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Nicky camps every hook", 70))
	require.NoError(t, err)
	assert.False(t, res.IsContradiction)
	assert.Equal(t, 1, res.JudgeFailures)
}

func TestDetectContradictions_RulesOnly(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("camp", "Nicky refuses to camp hooks", 70))
	d := newTestDetector(repo, nil)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Nicky camps every hook", 70))
	require.NoError(t, err)
	assert.False(t, res.IsContradiction)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 0, res.JudgeQueries)
}

func TestDetectContradictions_ProfileIsolation(t *testing.T) {
	repo := newMockRepository()
	other := fact("other", "Nicky mains Hillbilly", 75)
	other.ProfileID = "p2"
	repo.add(other)
	judge := &MockJudge{Default: "YES"}
	d := newTestDetector(repo, judge)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "Nicky mains Ghostface", 80))
	require.NoError(t, err)
	assert.False(t, res.IsContradiction)
	assert.Equal(t, ExplainNoCandidates, res.Explanation)
}

func TestDetectContradictions_Unstructured(t *testing.T) {
	d := newTestDetector(newMockRepository(), nil)

	res, err := d.DetectContradictions(context.Background(), "p1", fact("new", "   ", 50))
	require.NoError(t, err)
	assert.False(t, res.IsContradiction)
	assert.Equal(t, ExplainUnstructured, res.Explanation)
}

func TestIngestFact_DetectionFailureKeepsFactActive(t *testing.T) {
	repo := newMockRepository()
	repo.ListErr = errors.New("connection reset")
	d := newTestDetector(repo, &MockJudge{})

	f := fact("new", "Nicky mains Ghostface", 80)
	group, err := d.IngestFact(context.Background(), &f)
	require.NoError(t, err)
	assert.Nil(t, group)

	stored := repo.get("new")
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.Nil(t, stored.ContradictionGroupID)
}

func TestIngestFact_ResolveFailureKeepsFactActive(t *testing.T) {
	repo := newMockRepository()
	repo.add(fact("hillbilly", "Nicky mains Hillbilly", 75))
	repo.MarkErr = errors.New("write timeout")
	d := newTestDetector(repo, &MockJudge{})

	f := fact("ghostface", "Nicky mains Ghostface", 80)
	group, err := d.IngestFact(context.Background(), &f)
	require.NoError(t, err)
	assert.Nil(t, group)
	assert.Equal(t, 1, repo.Marks)
	assert.Equal(t, model.StatusActive, repo.get("ghostface").Status)
	assert.Nil(t, repo.get("ghostface").ContradictionGroupID)
}

func TestCheckFact_DryRun(t *testing.T) {
	repo := newMockRepository()
	repo.add(
		fact("hillbilly", "Nicky mains Hillbilly", 90),
		fact("ghostface", "Nicky mains Ghostface", 80),
	)
	d := newTestDetector(repo, &MockJudge{})

	res, group, err := d.CheckFact(context.Background(), "p1", "ghostface")
	require.NoError(t, err)
	assert.True(t, res.IsContradiction)
	require.NotNil(t, group)
	assert.Equal(t, "hillbilly", group.PrimaryFact.ID)
	assert.Equal(t, model.SeverityHigh, group.Severity)

	assert.Equal(t, 0, repo.Marks)
	assert.Empty(t, repo.groups())
}

func TestCheckFact_NotFound(t *testing.T) {
	d := newTestDetector(newMockRepository(), nil)
	_, _, err := d.CheckFact(context.Background(), "p1", "missing")
	assert.Error(t, err)
}

func scanFixture() *MockRepository {
	repo := newMockRepository()
	repo.add(
		fact("nurse", "Nicky mains Nurse", 70),
		fact("eight", "The stream starts at 8 PM", 60),
		fact("wraith", "Nicky mains Wraith", 60),
		fact("nine", "The stream starts at 9 PM", 50),
		fact("vinny", "Uncle Vinny wears a suit", 40),
	)
	return repo
}

func TestRunScan(t *testing.T) {
	repo := scanFixture()
	d := newTestDetector(repo, &MockJudge{})

	report, err := d.RunScan(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.GroupsCreated)
	assert.Equal(t, 3, report.FactsScanned)
	assert.Equal(t, 2, report.FactsSkipped)

	groups := repo.groups()
	require.Len(t, groups, 2)
	for gid, ids := range groups {
		active := 0
		for _, id := range ids {
			if repo.get(id).Status == model.StatusActive {
				active++
			}
		}
		assert.Equal(t, 1, active, "group %s", gid)
	}
	assert.Equal(t, model.StatusActive, repo.get("nurse").Status)
	assert.Equal(t, model.StatusAmbiguous, repo.get("wraith").Status)
	assert.Nil(t, repo.get("vinny").ContradictionGroupID)

	job := d.Scans.Status("p1")
	assert.Equal(t, scan.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.GroupsCreated)

	_, err = d.RunScan(context.Background(), "p1")
	assert.ErrorIs(t, err, scan.ErrScanUnaccepted)

	_, err = d.Scans.Accept("p1")
	require.NoError(t, err)
	report, err = d.RunScan(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.GroupsCreated)
}

func TestRunScan_ListFailureFailsJob(t *testing.T) {
	repo := scanFixture()
	repo.ListErr = errors.New("connection reset")
	d := newTestDetector(repo, nil)

	_, err := d.RunScan(context.Background(), "p1")
	require.Error(t, err)

	job := d.Scans.Status("p1")
	assert.Equal(t, scan.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "connection reset")

	repo.ListErr = nil
	_, err = d.RunScan(context.Background(), "p1")
	assert.NoError(t, err)
}

func TestStartScan(t *testing.T) {
	repo := scanFixture()
	d := newTestDetector(repo, &MockJudge{})

	job, err := d.StartScan(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, scan.StatusRunning, job.Status)

	require.Eventually(t, func() bool {
		return d.Scans.Status("p1").Status == scan.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	_, err = d.StartScan(context.Background(), "p1")
	assert.ErrorIs(t, err, scan.ErrScanUnaccepted)
}

func TestFinishScan_StaleJobLeavesReplacementRunning(t *testing.T) {
	repo := newMockRepository()
	d := newTestDetector(repo, nil)

	current, err := d.Scans.Start("p1")
	require.NoError(t, err)
	stale := scan.Job{ID: "timed-out-scan", ProfileID: "p1"}

	_, err = d.finishScan(context.Background(), stale)
	assert.ErrorIs(t, err, scan.ErrNotRunning)

	repo.ListErr = errors.New("connection reset")
	_, err = d.finishScan(context.Background(), stale)
	require.Error(t, err)

	job := d.Scans.Status("p1")
	assert.Equal(t, current.ID, job.ID)
	assert.Equal(t, scan.StatusRunning, job.Status)
	assert.Nil(t, job.Result)

	_, err = d.StartScan(context.Background(), "p1")
	assert.ErrorIs(t, err, scan.ErrScanRunning)
}
