package model

import "time"

type Polarity string

const (
	PolarityPositive Polarity = "POSITIVE"
	PolarityNegative Polarity = "NEGATIVE"
	PolarityNeutral  Polarity = "NEUTRAL"
)

// StructuredFact is the lexical decomposition of a Fact. It is derived on
// demand and never persisted.
type StructuredFact struct {
	Subject    string   `json:"subject"`
	Predicate  string   `json:"predicate"` // topic cluster
	Polarity   Polarity `json:"polarity"`
	Value      string   `json:"value"`
	Confidence int      `json:"confidence"`
	Original   Fact     `json:"-"`
}

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ContradictionGroup is the outcome of resolving one contradiction set. Only
// GroupID and the per-fact status are persisted.
type ContradictionGroup struct {
	GroupID          string   `json:"group_id"`
	Facts            []Fact   `json:"facts"`
	PrimaryFact      Fact     `json:"primary_fact"`
	ConflictingFacts []Fact   `json:"conflicting_facts"`
	Severity         Severity `json:"severity"`
	Explanation      string   `json:"explanation"`
}

// DetectionResult reports what a single contradiction check found.
type DetectionResult struct {
	IsContradiction bool     `json:"is_contradiction"`
	Conflicts       []Fact   `json:"conflicts"`
	Candidates      int      `json:"candidates"`
	RuleConflicts   int      `json:"rule_conflicts"`
	JudgeConflicts  int      `json:"judge_conflicts"`
	JudgeQueries    int      `json:"judge_queries"`
	JudgeFailures   int      `json:"judge_failures"`
	Severity        Severity `json:"severity,omitempty"`
	Explanation     string   `json:"explanation"`
}

// ScanReport summarises a full-profile contradiction scan.
type ScanReport struct {
	ProfileID     string               `json:"profile_id"`
	FactsScanned  int                  `json:"facts_scanned"`
	FactsSkipped  int                  `json:"facts_skipped"`
	CheckErrors   int                  `json:"check_errors"`
	GroupsCreated int                  `json:"groups_created"`
	Groups        []ContradictionGroup `json:"groups"`
	Duration      time.Duration        `json:"duration"`
}
