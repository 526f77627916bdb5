package cassandra

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// testStub counts invocations and fails every operation with err when set.
// Individual behaviors are overridden through the func fields.
type testStub struct {
	err   error
	calls int

	setKeyspaceCalls int
	setKeyspaceErrs  []error // consumed per call, then err applies
	loginCalls       int

	version string

	getRangeFn   func(keyRange KeyRange) ([]*KeySlice, error)
	getIndexedFn func(clause IndexClause) ([]*KeySlice, error)
	getSliceFn   func(key []byte) ([]*ColumnOrSuperColumn, error)
	describeFn   func(keyspace string) (*KsDef, error)

	mutations []MutationMap
	removed   [][]byte
}

func (s *testStub) Login(ctx context.Context, username, password string) error {
	s.loginCalls++
	return s.err
}

func (s *testStub) SetKeyspace(ctx context.Context, keyspace string) error {
	s.setKeyspaceCalls++
	if len(s.setKeyspaceErrs) > 0 {
		err := s.setKeyspaceErrs[0]
		s.setKeyspaceErrs = s.setKeyspaceErrs[1:]
		return err
	}
	return s.err
}

func (s *testStub) DescribeVersion(ctx context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if s.version == "" {
		return "19.10.0", nil
	}
	return s.version, nil
}

func (s *testStub) DescribeKeyspace(ctx context.Context, keyspace string) (*KsDef, error) {
	s.calls++
	if s.describeFn != nil {
		return s.describeFn(keyspace)
	}
	return &KsDef{Name: keyspace}, s.err
}

func (s *testStub) DescribeRing(ctx context.Context, keyspace string) ([]*TokenRange, error) {
	s.calls++
	return nil, s.err
}

func (s *testStub) DescribeSplits(ctx context.Context, columnFamily, startToken, endToken string, keysPerSplit int32) ([]string, error) {
	s.calls++
	return nil, s.err
}

func (s *testStub) GetSlice(ctx context.Context, key []byte, parent ColumnParent, predicate SlicePredicate, cl ConsistencyLevel) ([]*ColumnOrSuperColumn, error) {
	s.calls++
	if s.getSliceFn != nil {
		return s.getSliceFn(key)
	}
	return nil, s.err
}

func (s *testStub) MultigetSlice(ctx context.Context, keys [][]byte, parent ColumnParent, predicate SlicePredicate, cl ConsistencyLevel) (map[string][]*ColumnOrSuperColumn, error) {
	s.calls++
	return nil, s.err
}

func (s *testStub) GetRangeSlices(ctx context.Context, parent ColumnParent, predicate SlicePredicate, keyRange KeyRange, cl ConsistencyLevel) ([]*KeySlice, error) {
	s.calls++
	if s.getRangeFn != nil {
		return s.getRangeFn(keyRange)
	}
	return nil, s.err
}

func (s *testStub) GetIndexedSlices(ctx context.Context, parent ColumnParent, clause IndexClause, predicate SlicePredicate, cl ConsistencyLevel) ([]*KeySlice, error) {
	s.calls++
	if s.getIndexedFn != nil {
		return s.getIndexedFn(clause)
	}
	return nil, s.err
}

func (s *testStub) BatchMutate(ctx context.Context, mutations MutationMap, cl ConsistencyLevel) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.mutations = append(s.mutations, mutations)
	return nil
}

func (s *testStub) Remove(ctx context.Context, key []byte, path ColumnPath, timestamp int64, cl ConsistencyLevel) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.removed = append(s.removed, key)
	return nil
}

func (s *testStub) AddKeyspace(ctx context.Context, ks *KsDef) (string, error) {
	s.calls++
	return "v1", s.err
}

func (s *testStub) DropKeyspace(ctx context.Context, keyspace string) (string, error) {
	s.calls++
	return "v1", s.err
}

func (s *testStub) AddColumnFamily(ctx context.Context, cf *CfDef) (string, error) {
	s.calls++
	return "v1", s.err
}

func (s *testStub) DropColumnFamily(ctx context.Context, columnFamily string) (string, error) {
	s.calls++
	return "v1", s.err
}

func (s *testStub) Truncate(ctx context.Context, columnFamily string) error {
	s.calls++
	return s.err
}

// stubFactory hands the same stub to every node.
func stubFactory(s RPCStub) StubFactory {
	return func(node NodeDescriptor) (RPCStub, thrift.TTransport, error) {
		return s, nil, nil
	}
}
