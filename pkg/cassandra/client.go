package cassandra

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Client dispatches remote calls through the pool with bounded retries and
// exponential backoff. Every failure during an attempt is treated as
// possibly transient and retried; the only non-retried failures are
// InvalidRequestError (a malformed request cannot be fixed by retrying) and
// context cancellation.
type Client struct {
	cfg     Config
	pool    *Pool
	logger  log.Logger
	metrics *metrics
}

// New builds a client from config. The config must carry a StubFactory;
// production embedders wrap their protocol bindings, tests inject fakes.
func New(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Client, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.StubFactory == nil {
		return nil, errors.New("no stub factory configured")
	}
	servers, err := cfg.servers()
	if err != nil {
		return nil, err
	}

	m := newMetrics(reg)
	c := &Client{
		cfg:     cfg,
		pool:    newPool(servers, cfg.StubFactory, cfg.Rand, logger, m),
		logger:  logger,
		metrics: m,
	}

	if cfg.Keyspace != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		if err := c.UseKeyspace(ctx, cfg.Keyspace, cfg.Username, cfg.Password); err != nil {
			c.pool.Close()
			return nil, err
		}
	}
	return c, nil
}

// Pool exposes the connection pool, mainly so embedders can register extra
// servers after construction.
func (c *Client) Pool() *Pool { return c.pool }

// Keyspace returns the active keyspace, empty when none was selected.
func (c *Client) Keyspace() string { return c.pool.Keyspace() }

// UseKeyspace selects the keyspace (and authenticates when a username is
// given) on every current and future connection.
func (c *Client) UseKeyspace(ctx context.Context, keyspace, username, password string) error {
	return c.pool.UseKeyspace(ctx, keyspace, username, password)
}

// Close shuts down all pooled connections.
func (c *Client) Close() {
	c.pool.Close()
}

// Call executes the named operation with positional arguments, retrying on
// failure up to the configured budget. Attempts are strictly sequential;
// there is never parallel fan-out for one logical call, so non-idempotent
// writes are applied at most once per attempt.
func (c *Client) Call(ctx context.Context, op Op, args ...interface{}) (interface{}, error) {
	if opRequiresKeyspace(op) && c.pool.Keyspace() == "" {
		return nil, invalidRequestf("%s requires an active keyspace; call UseKeyspace first", op)
	}

	var lastErr error
	b := backoff.New(ctx, backoff.Config{
		MinBackoff: c.cfg.MinBackoff,
		MaxBackoff: c.cfg.MaxBackoff,
		MaxRetries: c.cfg.MaxRetries,
	})
	for b.Ongoing() {
		res, err := c.attempt(ctx, op, args)
		if err == nil {
			return res, nil
		}

		var invalid *InvalidRequestError
		if errors.As(err, &invalid) {
			return nil, err
		}

		lastErr = err
		c.metrics.retriesTotal.WithLabelValues(string(op)).Inc()
		level.Debug(c.logger).Log("msg", "call attempt failed", "operation", op, "attempt", b.NumRetries()+1, "err", err)
		b.Wait()
	}

	if ctx.Err() != nil {
		// Cancellation abandons the loop; pool state is left as-is and any
		// half-open connection gets evicted lazily on next use.
		return nil, errors.Wrapf(ctx.Err(), "%s aborted", op)
	}
	level.Warn(c.logger).Log("msg", "call retries exhausted", "operation", op, "retries", c.cfg.MaxRetries, "err", lastErr)
	return nil, &MaxRetriesExceededError{Op: op, Retries: c.cfg.MaxRetries, LastErr: lastErr}
}

func (c *Client) attempt(ctx context.Context, op Op, args []interface{}) (interface{}, error) {
	conn, err := c.pool.Get(ctx)
	if err != nil {
		return nil, err
	}
	stub, err := conn.Client()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := invoke(ctx, stub, op, args)
	status := "200"
	if err != nil {
		status = "500"
	}
	c.metrics.requestDuration.WithLabelValues(string(op), status).Observe(time.Since(start).Seconds())
	return res, err
}

// DescribeVersion returns the API version of the backend.
func (c *Client) DescribeVersion(ctx context.Context) (string, error) {
	res, err := c.Call(ctx, OpDescribeVersion)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// DescribeKeyspace returns the schema of the named keyspace.
func (c *Client) DescribeKeyspace(ctx context.Context, keyspace string) (*KsDef, error) {
	res, err := c.Call(ctx, OpDescribeKeyspace, keyspace)
	if err != nil {
		return nil, err
	}
	return res.(*KsDef), nil
}

// DescribeRing returns the token ring of the named keyspace.
func (c *Client) DescribeRing(ctx context.Context, keyspace string) ([]*TokenRange, error) {
	res, err := c.Call(ctx, OpDescribeRing, keyspace)
	if err != nil {
		return nil, err
	}
	return res.([]*TokenRange), nil
}

// DescribeSplits returns split points for parallel processing of a column
// family.
func (c *Client) DescribeSplits(ctx context.Context, columnFamily, startToken, endToken string, keysPerSplit int32) ([]string, error) {
	res, err := c.Call(ctx, OpDescribeSplits, columnFamily, startToken, endToken, keysPerSplit)
	if err != nil {
		return nil, err
	}
	return res.([]string), nil
}

// AddKeyspace creates a keyspace and returns the resulting schema version.
func (c *Client) AddKeyspace(ctx context.Context, ks *KsDef) (string, error) {
	res, err := c.Call(ctx, OpAddKeyspace, ks)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// DropKeyspace drops a keyspace and returns the resulting schema version.
func (c *Client) DropKeyspace(ctx context.Context, keyspace string) (string, error) {
	res, err := c.Call(ctx, OpDropKeyspace, keyspace)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// AddColumnFamily creates a column family in the active keyspace.
func (c *Client) AddColumnFamily(ctx context.Context, cf *CfDef) (string, error) {
	res, err := c.Call(ctx, OpAddColumnFamily, cf)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// DropColumnFamily drops a column family from the active keyspace.
func (c *Client) DropColumnFamily(ctx context.Context, columnFamily string) (string, error) {
	res, err := c.Call(ctx, OpDropColumnFamily, columnFamily)
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// TruncateColumnFamily removes all data from a column family.
func (c *Client) TruncateColumnFamily(ctx context.Context, columnFamily string) error {
	_, err := c.Call(ctx, OpTruncate, columnFamily)
	return err
}
