package cassandra

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// keyspaceSelectAttempts covers backends that spuriously reject the first
// set_keyspace right after connect.
const keyspaceSelectAttempts = 3

// NodeDescriptor identifies one backend endpoint. Immutable once registered
// with a pool.
type NodeDescriptor struct {
	Host           string
	Port           int
	Framed         bool
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	ReceiveTimeout time.Duration
}

func (n NodeDescriptor) Addr() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// StubFactory opens a transport to the node and wraps it in protocol
// bindings. Tests return a fake stub and a nil transport.
type StubFactory func(node NodeDescriptor) (RPCStub, thrift.TTransport, error)

// DialTransport opens a thrift socket to the node, framed when the
// descriptor says so. The socket timeout is fixed for the life of the
// connection; thrift has a single socket timeout, so the receive timeout
// wins when both are set.
func DialTransport(node NodeDescriptor) (thrift.TTransport, error) {
	socketTimeout := node.ReceiveTimeout
	if socketTimeout == 0 {
		socketTimeout = node.SendTimeout
	}
	conf := &thrift.TConfiguration{
		ConnectTimeout: node.ConnectTimeout,
		SocketTimeout:  socketTimeout,
	}

	var transport thrift.TTransport = thrift.NewTSocketConf(node.Addr(), conf)
	if node.Framed {
		transport = thrift.NewTFramedTransportConf(transport, conf)
	}
	if err := transport.Open(); err != nil {
		return nil, errors.Wrapf(err, "opening transport to %s", node.Addr())
	}
	return transport, nil
}

// Conn is one transport session to one node. Closing is terminal; a dead
// node gets a fresh Conn from the pool, never a reconnect.
type Conn struct {
	node      NodeDescriptor
	stub      RPCStub
	transport thrift.TTransport
	keyspace  string
	closed    bool
	logger    log.Logger
}

// newConn dials immediately so an unusable node fails fast.
func newConn(node NodeDescriptor, factory StubFactory, logger log.Logger) (*Conn, error) {
	stub, transport, err := factory(node)
	if err != nil {
		return nil, err
	}
	level.Debug(logger).Log("msg", "opened connection", "node", node.Addr())
	return &Conn{
		node:      node,
		stub:      stub,
		transport: transport,
		logger:    logger,
	}, nil
}

// Node returns the descriptor this connection was opened against.
func (c *Conn) Node() NodeDescriptor { return c.node }

// Keyspace returns the keyspace selected on this connection, if any.
func (c *Conn) Keyspace() string { return c.keyspace }

func (c *Conn) IsOpen() bool {
	if c.closed {
		return false
	}
	if c.transport != nil {
		return c.transport.IsOpen()
	}
	return true
}

// Client returns the stub for this connection.
func (c *Conn) Client() (RPCStub, error) {
	if !c.IsOpen() {
		return nil, &ConnectionClosedError{Node: c.node.Addr()}
	}
	return c.stub, nil
}

// UseKeyspace selects the keyspace on this connection, retrying the select a
// few times, then authenticates when credentials are given. The login is not
// retried: credentials do not become valid on a second attempt.
func (c *Conn) UseKeyspace(ctx context.Context, keyspace, username, password string) error {
	stub, err := c.Client()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= keyspaceSelectAttempts; attempt++ {
		if lastErr = stub.SetKeyspace(ctx, keyspace); lastErr == nil {
			break
		}
		level.Debug(c.logger).Log("msg", "set_keyspace failed", "node", c.node.Addr(), "keyspace", keyspace, "attempt", attempt, "err", lastErr)
	}
	if lastErr != nil {
		return &KeyspaceSelectionError{Keyspace: keyspace, Attempts: keyspaceSelectAttempts, LastErr: lastErr}
	}
	c.keyspace = keyspace

	if username != "" {
		if err := stub.Login(ctx, username, password); err != nil {
			return errors.Wrapf(err, "authenticating to %s", c.node.Addr())
		}
	}
	return nil
}

// Close flushes and closes the transport. Idempotent.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.transport == nil {
		return
	}
	if err := c.transport.Flush(context.Background()); err != nil {
		level.Debug(c.logger).Log("msg", "flush on close failed", "node", c.node.Addr(), "err", err)
	}
	if err := c.transport.Close(); err != nil {
		level.Debug(c.logger).Log("msg", "close failed", "node", c.node.Addr(), "err", err)
	}
}
