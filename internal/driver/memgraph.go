package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(ctx context.Context, uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, eris.Wrap(err, "memgraph: new driver")
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, eris.Wrapf(err, "memgraph: connect %s", uri)
	}

	zap.L().Info("connected to memgraph", zap.String("uri", uri))
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, eris.Wrap(err, "memgraph: execute query")
	}
	return *result, nil
}

// BuildIndices creates the label-property indices fact lookups rely on.
// Memgraph rejects duplicates, so failures are logged and skipped.
func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	for _, q := range FactIndexQueries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			zap.L().Warn("failed to create index", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}
