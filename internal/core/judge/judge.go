// Package judge asks an external semantic judge whether two facts conflict,
// under a fixed per-check query budget.
package judge

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/llm"
)

// SemanticJudge returns a raw verdict for a pair of fact texts. Only a
// response starting with YES counts as a contradiction; see IsAffirmative.
type SemanticJudge interface {
	JudgeContradiction(ctx context.Context, factA, factB string) (string, error)
}

// LLMJudge renders a two-placeholder prompt and sends it to an LLM.
type LLMJudge struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewLLMJudge(client llm.LLMClient, prompt string) *LLMJudge {
	if prompt == "" {
		prompt = config.DefaultContradictionPrompt
	}
	return &LLMJudge{LLM: client, Prompt: prompt}
}

func (j *LLMJudge) JudgeContradiction(ctx context.Context, factA, factB string) (string, error) {
	resp, err := j.LLM.Generate(ctx, fmt.Sprintf(j.Prompt, factA, factB))
	if err != nil {
		return "", eris.Wrap(err, "judge: generate verdict")
	}
	return resp, nil
}

// IsAffirmative reports whether a verdict is a case-insensitive YES at the
// start of the trimmed response. "Yes." and "YES - both name a main" count;
// "Yesterday", "NO" and empty output do not.
func IsAffirmative(verdict string) bool {
	s := strings.TrimSpace(verdict)
	if len(s) < 3 || !strings.EqualFold(s[:3], "yes") {
		return false
	}
	if len(s) == 3 {
		return true
	}
	next := rune(s[3])
	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}
