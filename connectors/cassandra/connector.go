package cassandra

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
)

// Connector executes rendered statements against a Store. It implements
// api.Executor.
type Connector struct {
	store        *Store
	maxBatchSize int
}

// NewConnector connects to the configured cluster and returns an executor
// bound to it.
func NewConnector(config *Config, scope tally.Scope) (*Connector, error) {
	store, err := CreateStore(config.CassandraConn, config.StoreName, scope)
	if err != nil {
		return nil, err
	}
	return &Connector{
		store:        store,
		maxBatchSize: config.MaxBatchSize,
	}, nil
}

// Close tears down the underlying session.
func (c *Connector) Close() {
	c.store.Close()
}

// Execute sends a single statement and returns its result set. Statements
// that render to nothing, such as an empty batch, are a no-op and yield a
// nil result set.
func (c *Connector) Execute(ctx context.Context, stmt api.Statement) (api.ResultSet, error) {
	uql, args, options, err := stmt.ToUql()
	if err != nil {
		return nil, err
	}
	if uql == "" {
		return nil, nil
	}
	convertArgs(args)

	q := c.store.cSession.Query(uql, args...).WithContext(ctx)
	isCAS, _ := options["IsCAS"].(bool)

	var rs api.ResultSet
	op := func() error {
		switch {
		case stmt.StmtType() == api.SelectStmtType:
			iter := q.Iter()
			rs = &ResultSet{rawIter: iter, store: c.store, applied: true}
			return nil
		case isCAS:
			row := map[string]interface{}{}
			applied, casErr := q.MapScanCAS(row)
			if casErr != nil {
				return casErr
			}
			rs = &ResultSet{store: c.store, applied: applied, casRow: row}
			if !applied {
				return api.ErrObjectAlreadyExists
			}
			return nil
		default:
			if execErr := q.Exec(); execErr != nil {
				return execErr
			}
			rs = &ResultSet{store: c.store, applied: true}
			return nil
		}
	}

	start := time.Now()
	err = Decorate(op,
		Safeguard(c.store),
		Count(ctx, c.store, "execute"),
		Trace(ctx, "execute"))()
	c.store.sendLatency("execute_latency", time.Since(start))

	if err != nil {
		if err != api.ErrObjectAlreadyExists {
			c.store.metrics.ExecuteFail.Inc(1)
			log.WithFields(log.Fields{
				"store": c.store.String(),
				"query": uql,
			}).WithError(err).Error("execute failed")
			return rs, err
		}
		return rs, err
	}
	c.store.metrics.ExecuteSuccess.Inc(1)
	return rs, nil
}

// ExecuteBatch sends a list of pre-rendered statements as one logged batch.
// Statements rendering to nothing are skipped; an all-empty list is a no-op.
func (c *Connector) ExecuteBatch(ctx context.Context, stmts []api.Statement) error {
	if c.maxBatchSize > 0 && len(stmts) > c.maxBatchSize {
		return yarpcerrors.InvalidArgumentErrorf(
			"batch of %d statements exceeds the configured maximum of %d",
			len(stmts), c.maxBatchSize)
	}

	batchType := gocql.LoggedBatch
	for _, stmt := range stmts {
		if counter, ok := stmt.(api.CounterStatement); ok && counter.IsCounterOp() {
			batchType = gocql.CounterBatch
			break
		}
	}

	batch := c.store.cSession.NewBatch(batchType).WithContext(ctx)
	for _, stmt := range stmts {
		if stmt.StmtType() == api.SelectStmtType {
			return yarpcerrors.InvalidArgumentErrorf("SELECT statement is not batchable")
		}
		uql, args, _, err := stmt.ToUql()
		if err != nil {
			return err
		}
		if uql == "" {
			continue
		}
		convertArgs(args)
		batch.Query(uql, args...)
	}
	if len(batch.Entries) == 0 {
		return nil
	}

	op := func() error {
		return c.store.cSession.ExecuteBatch(batch)
	}

	start := time.Now()
	err := Decorate(op,
		Safeguard(c.store),
		Count(ctx, c.store, "execute_batch"),
		Trace(ctx, "execute_batch"))()
	c.store.sendLatency("execute_batch_latency", time.Since(start))

	if err != nil {
		c.store.metrics.ExecuteBatchFail.Inc(1)
		log.WithFields(log.Fields{
			"store":      c.store.String(),
			"batch_size": len(batch.Entries),
		}).WithError(err).Error("execute batch failed")
		return err
	}
	c.store.metrics.ExecuteBatchSuccess.Inc(1)
	return nil
}

// convertArgs rewrites argument types the driver does not marshal natively.
func convertArgs(args []interface{}) {
	for i, arg := range args {
		switch v := arg.(type) {
		case uuid.UUID:
			if g, err := gocql.UUIDFromBytes(v); err == nil {
				args[i] = g
			}
		}
	}
}
