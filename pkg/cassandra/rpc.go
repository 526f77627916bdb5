package cassandra

import (
	"context"
)

// Op names a remote operation. Dispatch is by name plus positional arguments
// so the retry loop in Client.Call stays generic across operations.
type Op string

const (
	OpLogin            Op = "login"
	OpSetKeyspace      Op = "set_keyspace"
	OpDescribeVersion  Op = "describe_version"
	OpDescribeKeyspace Op = "describe_keyspace"
	OpDescribeRing     Op = "describe_ring"
	OpDescribeSplits   Op = "describe_splits"
	OpGetSlice         Op = "get_slice"
	OpMultigetSlice    Op = "multiget_slice"
	OpGetRangeSlices   Op = "get_range_slices"
	OpGetIndexedSlices Op = "get_indexed_slices"
	OpBatchMutate      Op = "batch_mutate"
	OpRemove           Op = "remove"
	OpAddKeyspace      Op = "system_add_keyspace"
	OpDropKeyspace     Op = "system_drop_keyspace"
	OpAddColumnFamily  Op = "system_add_column_family"
	OpDropColumnFamily Op = "system_drop_column_family"
	OpTruncate         Op = "truncate"
)

// keyspaceRequired lists the operations the server rejects without an active
// keyspace. Checking client-side avoids burning a connection on a request
// guaranteed to fail.
var keyspaceRequired = map[Op]struct{}{
	OpLogin:            {},
	OpGetSlice:         {},
	OpMultigetSlice:    {},
	OpGetRangeSlices:   {},
	OpGetIndexedSlices: {},
	OpBatchMutate:      {},
	OpRemove:           {},
	OpDescribeSplits:   {},
	OpAddColumnFamily:  {},
	OpDropColumnFamily: {},
	OpTruncate:         {},
}

func opRequiresKeyspace(op Op) bool {
	_, ok := keyspaceRequired[op]
	return ok
}

// RPCStub is the black-box client for one open transport. Implementations
// wrap whatever protocol bindings the embedder uses; everything above this
// interface is transport-agnostic.
type RPCStub interface {
	Login(ctx context.Context, username, password string) error
	SetKeyspace(ctx context.Context, keyspace string) error

	DescribeVersion(ctx context.Context) (string, error)
	DescribeKeyspace(ctx context.Context, keyspace string) (*KsDef, error)
	DescribeRing(ctx context.Context, keyspace string) ([]*TokenRange, error)
	DescribeSplits(ctx context.Context, columnFamily, startToken, endToken string, keysPerSplit int32) ([]string, error)

	GetSlice(ctx context.Context, key []byte, parent ColumnParent, predicate SlicePredicate, cl ConsistencyLevel) ([]*ColumnOrSuperColumn, error)
	MultigetSlice(ctx context.Context, keys [][]byte, parent ColumnParent, predicate SlicePredicate, cl ConsistencyLevel) (map[string][]*ColumnOrSuperColumn, error)
	GetRangeSlices(ctx context.Context, parent ColumnParent, predicate SlicePredicate, keyRange KeyRange, cl ConsistencyLevel) ([]*KeySlice, error)
	GetIndexedSlices(ctx context.Context, parent ColumnParent, clause IndexClause, predicate SlicePredicate, cl ConsistencyLevel) ([]*KeySlice, error)
	BatchMutate(ctx context.Context, mutations MutationMap, cl ConsistencyLevel) error
	Remove(ctx context.Context, key []byte, path ColumnPath, timestamp int64, cl ConsistencyLevel) error

	AddKeyspace(ctx context.Context, ks *KsDef) (string, error)
	DropKeyspace(ctx context.Context, keyspace string) (string, error)
	AddColumnFamily(ctx context.Context, cf *CfDef) (string, error)
	DropColumnFamily(ctx context.Context, columnFamily string) (string, error)
	Truncate(ctx context.Context, columnFamily string) error
}

// invoke maps an operation name plus positional arguments onto the stub. A
// wrong argument count or type is an InvalidRequestError and is never
// retried by the caller.
func invoke(ctx context.Context, stub RPCStub, op Op, args []interface{}) (interface{}, error) {
	a := argReader{op: op, args: args}

	switch op {
	case OpLogin:
		username, password := a.str(0), a.str(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return nil, stub.Login(ctx, username, password)

	case OpSetKeyspace:
		keyspace := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return nil, stub.SetKeyspace(ctx, keyspace)

	case OpDescribeVersion:
		if err := a.done(0); err != nil {
			return nil, err
		}
		return stub.DescribeVersion(ctx)

	case OpDescribeKeyspace:
		keyspace := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.DescribeKeyspace(ctx, keyspace)

	case OpDescribeRing:
		keyspace := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.DescribeRing(ctx, keyspace)

	case OpDescribeSplits:
		cf, start, end := a.str(0), a.str(1), a.str(2)
		keysPerSplit := a.i32(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return stub.DescribeSplits(ctx, cf, start, end, keysPerSplit)

	case OpGetSlice:
		key := a.bytes(0)
		parent := a.parent(1)
		predicate := a.predicate(2)
		cl := a.consistency(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return stub.GetSlice(ctx, key, parent, predicate, cl)

	case OpMultigetSlice:
		keys, ok := a.get(0).([][]byte)
		if !ok {
			a.fail(0, "want [][]byte")
		}
		parent := a.parent(1)
		predicate := a.predicate(2)
		cl := a.consistency(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return stub.MultigetSlice(ctx, keys, parent, predicate, cl)

	case OpGetRangeSlices:
		parent := a.parent(0)
		predicate := a.predicate(1)
		keyRange, ok := a.get(2).(KeyRange)
		if !ok {
			a.fail(2, "want KeyRange")
		}
		cl := a.consistency(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return stub.GetRangeSlices(ctx, parent, predicate, keyRange, cl)

	case OpGetIndexedSlices:
		parent := a.parent(0)
		clause, ok := a.get(1).(IndexClause)
		if !ok {
			a.fail(1, "want IndexClause")
		}
		predicate := a.predicate(2)
		cl := a.consistency(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return stub.GetIndexedSlices(ctx, parent, clause, predicate, cl)

	case OpBatchMutate:
		mutations, ok := a.get(0).(MutationMap)
		if !ok {
			a.fail(0, "want MutationMap")
		}
		cl := a.consistency(1)
		if err := a.done(2); err != nil {
			return nil, err
		}
		return nil, stub.BatchMutate(ctx, mutations, cl)

	case OpRemove:
		key := a.bytes(0)
		path, ok := a.get(1).(ColumnPath)
		if !ok {
			a.fail(1, "want ColumnPath")
		}
		timestamp, ok2 := a.get(2).(int64)
		if !ok2 {
			a.fail(2, "want int64")
		}
		cl := a.consistency(3)
		if err := a.done(4); err != nil {
			return nil, err
		}
		return nil, stub.Remove(ctx, key, path, timestamp, cl)

	case OpAddKeyspace:
		ks, ok := a.get(0).(*KsDef)
		if !ok {
			a.fail(0, "want *KsDef")
		}
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.AddKeyspace(ctx, ks)

	case OpDropKeyspace:
		keyspace := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.DropKeyspace(ctx, keyspace)

	case OpAddColumnFamily:
		cf, ok := a.get(0).(*CfDef)
		if !ok {
			a.fail(0, "want *CfDef")
		}
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.AddColumnFamily(ctx, cf)

	case OpDropColumnFamily:
		cf := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return stub.DropColumnFamily(ctx, cf)

	case OpTruncate:
		cf := a.str(0)
		if err := a.done(1); err != nil {
			return nil, err
		}
		return nil, stub.Truncate(ctx, cf)
	}

	return nil, invalidRequestf("unknown operation %q", op)
}

// argReader pulls typed positional arguments and accumulates the first
// mismatch instead of panicking, so malformed calls surface as
// InvalidRequestError.
type argReader struct {
	op   Op
	args []interface{}
	err  error
}

func (a *argReader) get(i int) interface{} {
	if i >= len(a.args) {
		a.fail(i, "missing argument")
		return nil
	}
	return a.args[i]
}

func (a *argReader) fail(i int, why string) {
	if a.err == nil {
		a.err = invalidRequestf("%s: bad argument %d: %s", a.op, i, why)
	}
}

func (a *argReader) str(i int) string {
	v, ok := a.get(i).(string)
	if !ok {
		a.fail(i, "want string")
	}
	return v
}

func (a *argReader) i32(i int) int32 {
	v, ok := a.get(i).(int32)
	if !ok {
		a.fail(i, "want int32")
	}
	return v
}

func (a *argReader) bytes(i int) []byte {
	switch v := a.get(i).(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	a.fail(i, "want []byte")
	return nil
}

func (a *argReader) parent(i int) ColumnParent {
	v, ok := a.get(i).(ColumnParent)
	if !ok {
		a.fail(i, "want ColumnParent")
	}
	return v
}

func (a *argReader) predicate(i int) SlicePredicate {
	v, ok := a.get(i).(SlicePredicate)
	if !ok {
		a.fail(i, "want SlicePredicate")
	}
	return v
}

func (a *argReader) consistency(i int) ConsistencyLevel {
	v, ok := a.get(i).(ConsistencyLevel)
	if !ok {
		a.fail(i, "want ConsistencyLevel")
	}
	return v
}

// done validates the argument count and reports the first typed-argument
// mismatch, if any.
func (a *argReader) done(want int) error {
	if a.err != nil {
		return a.err
	}
	if len(a.args) != want {
		return invalidRequestf("%s: want %d arguments, got %d", a.op, want, len(a.args))
	}
	return nil
}
