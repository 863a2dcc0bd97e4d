package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/driver"
)

const DefaultListLimit = 100

var ErrNotFound = eris.New("store: not found")

// FactFilter specifies criteria for listing a profile's facts.
type FactFilter struct {
	Status model.FactStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// FactRepository is what contradiction detection needs from storage.
type FactRepository interface {
	ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error)
	MarkGroup(ctx context.Context, factIDs []string, groupID string) error
	SetStatus(ctx context.Context, factID string, status model.FactStatus) error
}

// Store defines the persistence interface for facts.
type Store interface {
	FactRepository

	// ResolveGroup atomically marks factIDs as one AMBIGUOUS group and
	// leaves primaryID ACTIVE.
	ResolveGroup(ctx context.Context, factIDs []string, groupID, primaryID string) error

	InsertFact(ctx context.Context, f *model.Fact) error
	GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error)
	// ListFacts orders by importance, then newest first.
	ListFacts(ctx context.Context, profileID string, filter FactFilter) ([]model.Fact, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.Store.DatabaseURL)
	case "memgraph":
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return nil, err
		}
		return NewMemgraph(d), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// prepareFact fills in the id, defaults and timestamps of a fact about to
// be inserted.
func prepareFact(f *model.Fact) error {
	if f.ProfileID == "" {
		return eris.New("store: fact has no profile id")
	}
	if f.Content == "" {
		return eris.New("store: fact has no content")
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.Normalize()
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	return nil
}

func listLimit(filter FactFilter) int {
	if filter.Limit <= 0 {
		return DefaultListLimit
	}
	return filter.Limit
}
