package cassandra

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Pool owns the node list and at most one live connection per node. It picks
// nodes at random with a bounded attempt budget so a few dead nodes do not
// pin the worst-case latency, and evicts dead connections lazily when it
// trips over them.
//
// Pool is not safe for concurrent use; run one per goroutine or add external
// locking, matching the single caller the iterators assume.
type Pool struct {
	servers []NodeDescriptor
	conns   map[int]*Conn
	factory StubFactory

	// Keyspace context, applied to every current and future connection.
	keyspace string
	username string
	password string

	rnd     *rand.Rand
	logger  log.Logger
	metrics *metrics
}

func newPool(servers []NodeDescriptor, factory StubFactory, rnd *rand.Rand, logger log.Logger, m *metrics) *Pool {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Pool{
		servers: servers,
		conns:   make(map[int]*Conn),
		factory: factory,
		rnd:     rnd,
		logger:  log.With(logger, "component", "pool"),
		metrics: m,
	}
	m.serversKnown.Set(float64(len(servers)))
	return p
}

// AddServer registers another node. Existing connections are unaffected.
func (p *Pool) AddServer(node NodeDescriptor) {
	p.servers = append(p.servers, node)
	p.metrics.serversKnown.Set(float64(len(p.servers)))
}

// Keyspace returns the active keyspace name, empty when none was selected.
func (p *Pool) Keyspace() string { return p.keyspace }

// Get returns a live connection to a randomly chosen node, dialing one when
// needed. Each node gets roughly two chances under the 2×N attempt budget
// before the pool gives up.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	if len(p.servers) == 0 {
		return nil, &ConnectionFailedError{}
	}

	attempts := 2 * len(p.servers)
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		idx := p.rnd.Intn(len(p.servers))

		if conn, ok := p.conns[idx]; ok {
			if conn.IsOpen() {
				return conn, nil
			}
			p.evict(idx, conn)
			continue
		}

		conn, err := newConn(p.servers[idx], p.factory, p.logger)
		if err != nil {
			lastErr = err
			level.Debug(p.logger).Log("msg", "connection attempt failed", "node", p.servers[idx].Addr(), "err", err)
			continue
		}
		if p.keyspace != "" {
			if err := conn.UseKeyspace(ctx, p.keyspace, p.username, p.password); err != nil {
				lastErr = err
				conn.Close()
				continue
			}
		}
		p.conns[idx] = conn
		p.metrics.openConnections.Set(float64(len(p.conns)))
		return conn, nil
	}

	return nil, &ConnectionFailedError{Attempts: attempts, LastErr: lastErr}
}

// UseKeyspace stores the keyspace context, eagerly obtains one connection so
// connection problems surface here rather than on the first call, then
// applies the context to every tracked connection.
func (p *Pool) UseKeyspace(ctx context.Context, keyspace, username, password string) error {
	p.keyspace = keyspace
	p.username = username
	p.password = password

	if _, err := p.Get(ctx); err != nil {
		return err
	}

	for idx, conn := range p.conns {
		if !conn.IsOpen() {
			p.evict(idx, conn)
			continue
		}
		if conn.Keyspace() == keyspace {
			continue
		}
		if err := conn.UseKeyspace(ctx, keyspace, username, password); err != nil {
			return err
		}
	}
	return nil
}

// Close closes and discards every tracked connection.
func (p *Pool) Close() {
	for idx, conn := range p.conns {
		conn.Close()
		delete(p.conns, idx)
	}
	p.metrics.openConnections.Set(0)
}

func (p *Pool) evict(idx int, conn *Conn) {
	conn.Close()
	delete(p.conns, idx)
	p.metrics.openConnections.Set(float64(len(p.conns)))
	p.metrics.evictionsTotal.Inc()
	level.Debug(p.logger).Log("msg", "evicted dead connection", "node", conn.Node().Addr())
}
