package judge

import (
	"context"
	"sync"
)

type MockJudge struct {
	mu       sync.Mutex
	Verdicts map[string]string // keyed by fact B
	Errs     map[string]error
	Default  string
	Calls    []string
}

func (m *MockJudge) JudgeContradiction(ctx context.Context, factA, factB string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, factB)
	if err, ok := m.Errs[factB]; ok {
		return "", err
	}
	if v, ok := m.Verdicts[factB]; ok {
		return v, nil
	}
	return m.Default, nil
}

type MockLLM struct {
	Prompts  []string
	Response string
	Err      error
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
