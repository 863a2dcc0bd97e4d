package model

import "time"

type FactStatus string

const (
	StatusActive     FactStatus = "ACTIVE"
	StatusAmbiguous  FactStatus = "AMBIGUOUS"
	StatusDeprecated FactStatus = "DEPRECATED"
)

// Valid reports whether s is one of the known statuses.
func (s FactStatus) Valid() bool {
	switch s {
	case StatusActive, StatusAmbiguous, StatusDeprecated:
		return true
	}
	return false
}

const (
	DefaultConfidence   = 50
	DefaultImportance   = 1
	DefaultSupportCount = 1
)

// Fact is a stored claim about the persona. Content is immutable once created;
// the remaining fields are metadata that contradiction resolution may update.
type Fact struct {
	ID                   string     `json:"id"`
	ProfileID            string     `json:"profile_id"`
	Content              string     `json:"content"`
	Type                 string     `json:"type,omitempty"`
	Source               string     `json:"source,omitempty"`
	Confidence           int        `json:"confidence"`
	Importance           int        `json:"importance"`
	SupportCount         int        `json:"support_count"`
	Status               FactStatus `json:"status"`
	ContradictionGroupID *string    `json:"contradiction_group_id,omitempty"`
	IsProtected          bool       `json:"is_protected"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Grouped reports whether the fact already belongs to a contradiction group.
func (f Fact) Grouped() bool {
	return f.ContradictionGroupID != nil && *f.ContradictionGroupID != ""
}

// Normalize clamps numeric metadata into range and fills in a missing status.
// Confidence is clamped to 0..100; a missing confidence must be defaulted by
// the caller because zero is a legal value.
func (f *Fact) Normalize() {
	if f.Confidence < 0 {
		f.Confidence = 0
	}
	if f.Confidence > 100 {
		f.Confidence = 100
	}
	if f.Importance < 1 {
		f.Importance = DefaultImportance
	}
	if f.Importance > 5 {
		f.Importance = 5
	}
	if f.SupportCount < 1 {
		f.SupportCount = DefaultSupportCount
	}
	if f.Status == "" {
		f.Status = StatusActive
	}
	if f.Type == "" {
		f.Type = "FACT"
	}
}
