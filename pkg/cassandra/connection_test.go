package cassandra

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testConn(t *testing.T, stub RPCStub) *Conn {
	t.Helper()
	conn, err := newConn(NodeDescriptor{Host: "node", Port: 9160}, stubFactory(stub), log.NewNopLogger())
	require.NoError(t, err)
	return conn
}

func TestNewConnFailsFast(t *testing.T) {
	dialErr := errors.New("connection refused")
	factory := func(node NodeDescriptor) (RPCStub, thrift.TTransport, error) {
		return nil, nil, dialErr
	}

	conn, err := newConn(NodeDescriptor{Host: "node", Port: 9160}, factory, log.NewNopLogger())
	require.ErrorIs(t, err, dialErr)
	require.Nil(t, conn)
}

func TestConnUseKeyspaceRetriesSelect(t *testing.T) {
	stub := &testStub{setKeyspaceErrs: []error{
		errors.New("spurious rejection"),
		errors.New("spurious rejection"),
	}}
	conn := testConn(t, stub)

	require.NoError(t, conn.UseKeyspace(context.Background(), "app", "", ""))
	require.Equal(t, "app", conn.Keyspace())
	require.Equal(t, 3, stub.setKeyspaceCalls)
	require.Equal(t, 0, stub.loginCalls)
}

func TestConnUseKeyspaceGivesUpAfterThreeAttempts(t *testing.T) {
	cause := errors.New("unknown keyspace")
	stub := &testStub{setKeyspaceErrs: []error{cause, cause, cause, cause}}
	conn := testConn(t, stub)

	err := conn.UseKeyspace(context.Background(), "missing", "", "")
	var selection *KeyspaceSelectionError
	require.ErrorAs(t, err, &selection)
	require.Equal(t, "missing", selection.Keyspace)
	require.Equal(t, 3, selection.Attempts)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 3, stub.setKeyspaceCalls)
	require.Empty(t, conn.Keyspace())
}

func TestConnUseKeyspaceLoginNotRetried(t *testing.T) {
	stub := &testStub{}
	conn := testConn(t, stub)
	require.NoError(t, conn.UseKeyspace(context.Background(), "app", "alice", "secret"))
	require.Equal(t, 1, stub.loginCalls)

	// Bad credentials fail the whole call after a single login attempt; the
	// keyspace still sticks.
	stub2 := &testStub{}
	conn2 := testConn(t, stub2)
	stub2.setKeyspaceErrs = []error{nil}
	stub2.err = errors.New("bad credentials")
	require.Error(t, conn2.UseKeyspace(context.Background(), "app", "alice", "wrong"))
	require.Equal(t, 1, stub2.loginCalls)
	require.Equal(t, "app", conn2.Keyspace())
}

func TestConnClientAfterClose(t *testing.T) {
	conn := testConn(t, &testStub{})
	stub, err := conn.Client()
	require.NoError(t, err)
	require.NotNil(t, stub)

	conn.Close()
	require.False(t, conn.IsOpen())

	_, err = conn.Client()
	var closed *ConnectionClosedError
	require.ErrorAs(t, err, &closed)

	// Closing is terminal, and closing twice is a no-op.
	conn.Close()
	require.False(t, conn.IsOpen())
}

func TestConnUseKeyspaceAfterClose(t *testing.T) {
	conn := testConn(t, &testStub{})
	conn.Close()

	err := conn.UseKeyspace(context.Background(), "app", "", "")
	var closed *ConnectionClosedError
	require.ErrorAs(t, err, &closed)
}
