package store

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/driver"
)

// MemgraphStore keeps facts as :Fact nodes. Timestamps are stored as unix
// milliseconds.
type MemgraphStore struct {
	driver driver.GraphDriver
}

func NewMemgraph(d driver.GraphDriver) *MemgraphStore {
	return &MemgraphStore{driver: d}
}

func (s *MemgraphStore) Migrate(ctx context.Context) error {
	return eris.Wrap(s.driver.BuildIndices(ctx), "memgraph: build indices")
}

func (s *MemgraphStore) Close() error {
	return s.driver.Close(context.Background())
}

func (s *MemgraphStore) InsertFact(ctx context.Context, f *model.Fact) error {
	if err := prepareFact(f); err != nil {
		return err
	}
	_, err := s.driver.ExecuteQuery(ctx, driver.CreateFactQuery, map[string]interface{}{
		"id":            f.ID,
		"profile_id":    f.ProfileID,
		"content":       f.Content,
		"type":          f.Type,
		"source":        f.Source,
		"confidence":    int64(f.Confidence),
		"importance":    int64(f.Importance),
		"support_count": int64(f.SupportCount),
		"status":        string(f.Status),
		"is_protected":  f.IsProtected,
		"created_at":    f.CreatedAt.UnixMilli(),
		"updated_at":    f.UpdatedAt.UnixMilli(),
	})
	return eris.Wrapf(err, "memgraph: insert fact %s", f.ID)
}

func (s *MemgraphStore) GetFact(ctx context.Context, profileID, factID string) (*model.Fact, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.GetFactQuery, map[string]interface{}{
		"id":         factID,
		"profile_id": profileID,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "memgraph: get fact %s", factID)
	}
	if len(res.Records) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "memgraph: get fact %s", factID)
	}
	f := recordToFact(res.Records[0])
	return &f, nil
}

func (s *MemgraphStore) ListActiveFacts(ctx context.Context, profileID string, limit int) ([]model.Fact, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.ListActiveFactsQuery, map[string]interface{}{
		"profile_id": profileID,
		"limit":      int64(limit),
	})
	if err != nil {
		return nil, eris.Wrap(err, "memgraph: list active facts")
	}
	return recordsToFacts(res.Records), nil
}

func (s *MemgraphStore) ListFacts(ctx context.Context, profileID string, filter FactFilter) ([]model.Fact, error) {
	res, err := s.driver.ExecuteQuery(ctx, driver.ListFactsQuery, map[string]interface{}{
		"profile_id": profileID,
		"status":     string(filter.Status),
		"limit":      int64(listLimit(filter)),
		"offset":     int64(filter.Offset),
	})
	if err != nil {
		return nil, eris.Wrap(err, "memgraph: list facts")
	}
	return recordsToFacts(res.Records), nil
}

func (s *MemgraphStore) MarkGroup(ctx context.Context, factIDs []string, groupID string) error {
	res, err := s.driver.ExecuteQuery(ctx, driver.MarkGroupQuery, map[string]interface{}{
		"ids":        factIDs,
		"group_id":   groupID,
		"updated_at": time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return eris.Wrapf(err, "memgraph: mark group %s", groupID)
	}
	return checkUpdated(res, len(factIDs), "memgraph: mark group "+groupID)
}

func (s *MemgraphStore) SetStatus(ctx context.Context, factID string, status model.FactStatus) error {
	res, err := s.driver.ExecuteQuery(ctx, driver.SetStatusQuery, map[string]interface{}{
		"id":         factID,
		"status":     string(status),
		"updated_at": time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return eris.Wrapf(err, "memgraph: set status %s", factID)
	}
	return checkUpdated(res, 1, "memgraph: set status "+factID)
}

// ResolveGroup writes the group and its primary in a single statement.
func (s *MemgraphStore) ResolveGroup(ctx context.Context, factIDs []string, groupID, primaryID string) error {
	res, err := s.driver.ExecuteQuery(ctx, driver.ResolveGroupQuery, map[string]interface{}{
		"ids":        factIDs,
		"group_id":   groupID,
		"primary_id": primaryID,
		"updated_at": time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return eris.Wrapf(err, "memgraph: resolve group %s", groupID)
	}
	return checkUpdated(res, len(factIDs), "memgraph: resolve group "+groupID)
}

func checkUpdated(res neo4j.EagerResult, want int, op string) error {
	var updated int64
	if len(res.Records) > 0 {
		v, _ := res.Records[0].Get("updated")
		updated = asInt64(v)
	}
	if int(updated) != want {
		return eris.Wrapf(ErrNotFound, "%s updated %d of %d facts", op, updated, want)
	}
	return nil
}

func recordsToFacts(records []*neo4j.Record) []model.Fact {
	facts := make([]model.Fact, 0, len(records))
	for _, rec := range records {
		facts = append(facts, recordToFact(rec))
	}
	return facts
}

func recordToFact(rec *neo4j.Record) model.Fact {
	get := func(key string) interface{} {
		v, _ := rec.Get(key)
		return v
	}

	f := model.Fact{
		ID:           asString(get("id")),
		ProfileID:    asString(get("profile_id")),
		Content:      asString(get("content")),
		Type:         asString(get("type")),
		Source:       asString(get("source")),
		Confidence:   int(asInt64(get("confidence"))),
		Importance:   int(asInt64(get("importance"))),
		SupportCount: int(asInt64(get("support_count"))),
		Status:       model.FactStatus(asString(get("status"))),
		CreatedAt:    time.UnixMilli(asInt64(get("created_at"))).UTC(),
		UpdatedAt:    time.UnixMilli(asInt64(get("updated_at"))).UTC(),
	}
	if b, ok := get("is_protected").(bool); ok {
		f.IsProtected = b
	}
	if g := asString(get("contradiction_group_id")); g != "" {
		f.ContradictionGroupID = &g
	}
	return f
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
