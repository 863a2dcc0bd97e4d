package cli

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core"
	"github.com/agenthands/lorekeeper/internal/core/judge"
	"github.com/agenthands/lorekeeper/internal/llm"
	"github.com/agenthands/lorekeeper/internal/store"
)

// env holds the wired components a command runs against.
type env struct {
	Store    store.Store
	Detector *core.Detector
	closers  []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// initEnv opens the store and, unless --rules-only is set, the LLM judge.
func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e := &env{Store: st, closers: []io.Closer{st}}

	var sj judge.SemanticJudge
	if !rulesOnly {
		client, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			e.Close()
			return nil, err
		}
		if c, ok := client.(io.Closer); ok {
			e.closers = append(e.closers, c)
		}
		sj = judge.NewLLMJudge(client, cfg.Prompts.Contradiction)
	}

	e.Detector = core.NewDetector(st, sj, cfg)
	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("rules_only", rulesOnly))
	return e, nil
}
