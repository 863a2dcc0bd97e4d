package core

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

// MockRepository is an in-memory fact store. Insert order stands in for
// creation time.
type MockRepository struct {
	mu      sync.Mutex
	facts   map[string]*model.Fact
	order   []string
	ListErr error
	MarkErr error
	Marks   int
}

func newMockRepository() *MockRepository {
	return &MockRepository{facts: map[string]*model.Fact{}}
}

func (m *MockRepository) add(facts ...model.Fact) {
	for _, f := range facts {
		f.Normalize()
		m.facts[f.ID] = &f
		m.order = append(m.order, f.ID)
	}
}

func (m *MockRepository) get(id string) model.Fact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.facts[id]
}

func (m *MockRepository) InsertFact(ctx context.Context, f *model.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Normalize()
	m.add(*f)
	return nil
}

func (m *MockRepository) GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facts[factID]
	if !ok || f.ProfileID != profileID {
		return nil, eris.New("not found")
	}
	cp := *f
	return &cp, nil
}

// ListActiveFacts returns newest first.
func (m *MockRepository) ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []model.Fact
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		f := m.facts[m.order[i]]
		if f.ProfileID == profileID && f.Status == model.StatusActive && !f.Grouped() {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (m *MockRepository) MarkGroup(ctx context.Context, factIDs []string, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Marks++
	if m.MarkErr != nil {
		return m.MarkErr
	}
	for _, id := range factIDs {
		gid := groupID
		m.facts[id].Status = model.StatusAmbiguous
		m.facts[id].ContradictionGroupID = &gid
	}
	return nil
}

func (m *MockRepository) SetStatus(ctx context.Context, factID string, status model.FactStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[factID].Status = status
	return nil
}

func (m *MockRepository) groups() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]string{}
	for id, f := range m.facts {
		if f.Grouped() {
			out[*f.ContradictionGroupID] = append(out[*f.ContradictionGroupID], id)
		}
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}

// MockJudge answers by the content of fact B and counts calls.
type MockJudge struct {
	mu       sync.Mutex
	Verdicts map[string]string
	Default  string
	Err      error
	Calls    int
}

func (m *MockJudge) JudgeContradiction(ctx context.Context, factA, factB string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if v, ok := m.Verdicts[factB]; ok {
		return v, nil
	}
	if m.Default != "" {
		return m.Default, nil
	}
	return "NO", nil
}

func (m *MockJudge) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
