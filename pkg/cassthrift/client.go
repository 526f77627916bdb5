// Package cassthrift implements the cassandra.RPCStub interface over the
// thrift binary protocol, playing the role of generated bindings. The core
// client never imports this package; wiring happens at composition roots
// through the stub factory.
package cassthrift

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
)

// Factory returns a stub factory dialing each node with the thrift binary
// protocol. Plug it into cassandra.Config.StubFactory.
func Factory() cassandra.StubFactory {
	return func(node cassandra.NodeDescriptor) (cassandra.RPCStub, thrift.TTransport, error) {
		transport, err := cassandra.DialTransport(node)
		if err != nil {
			return nil, nil, err
		}
		proto := thrift.NewTBinaryProtocolConf(transport, &thrift.TConfiguration{})
		return &client{tc: thrift.NewTStandardClient(proto, proto)}, transport, nil
	}
}

type client struct {
	tc *thrift.TStandardClient
}

// tArgs adapts a writer closure to thrift.TStruct for outgoing arguments.
type tArgs struct {
	write func(w *writer)
}

func (a tArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	w := &writer{ctx: ctx, p: p}
	w.structBegin("args")
	a.write(w)
	w.structEnd()
	return w.err
}

func (a tArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolException(errors.New("client args are write-only"))
}

// tResult decodes a method result: field 0 is the success value, higher
// field ids are the declared exceptions.
type tResult struct {
	fields map[int16]func(r *reader)
	exc    error
}

func newResult() *tResult {
	return &tResult{fields: make(map[int16]func(r *reader))}
}

func (res *tResult) on(id int16, fn func(r *reader)) *tResult {
	res.fields[id] = fn
	return res
}

func (res *tResult) exception(id int16, make func(why string) error) *tResult {
	return res.on(id, func(r *reader) {
		why := readExceptionWhy(r)
		if res.exc == nil {
			res.exc = make(why)
		}
	})
}

func (res *tResult) Write(ctx context.Context, p thrift.TProtocol) error {
	return thrift.NewTProtocolException(errors.New("client results are read-only"))
}

func (res *tResult) Read(ctx context.Context, p thrift.TProtocol) error {
	r := &reader{ctx: ctx, p: p}
	r.fields(func(typ thrift.TType, id int16) bool {
		fn, ok := res.fields[id]
		if !ok {
			return false
		}
		fn(r)
		return true
	})
	return r.err
}

// readExceptionWhy consumes an exception struct, keeping its `why` string
// when it has one.
func readExceptionWhy(r *reader) string {
	var why string
	r.fields(func(typ thrift.TType, id int16) bool {
		if id == 1 && typ == thrift.STRING {
			why = r.str()
			return true
		}
		return false
	})
	return why
}

func invalidRequest(why string) error {
	return &cassandra.InvalidRequestError{Reason: why}
}

func unavailable(string) error  { return UnavailableError{} }
func timedOut(string) error     { return TimedOutError{} }
func notFound(string) error     { return NotFoundError{} }
func disagreement(string) error { return SchemaDisagreementError{} }

func (c *client) call(ctx context.Context, method string, args func(w *writer), res *tResult) error {
	if _, err := c.tc.Call(ctx, method, tArgs{write: args}, res); err != nil {
		return errors.Wrapf(err, "cassandra %s", method)
	}
	return res.exc
}

func (c *client) Login(ctx context.Context, username, password string) error {
	res := newResult().
		exception(1, func(why string) error { return AuthenticationError{Why: why} }).
		exception(2, func(why string) error { return AuthorizationError{Why: why} })
	return c.call(ctx, "login", func(w *writer) {
		w.field("auth_request", thrift.STRUCT, 1, func() {
			w.structBegin("AuthenticationRequest")
			w.field("credentials", thrift.MAP, 1, func() {
				w.mapBegin(thrift.STRING, thrift.STRING, 2)
				w.str("username")
				w.str(username)
				w.str("password")
				w.str(password)
				w.mapEnd()
			})
			w.structEnd()
		})
	}, res)
}

func (c *client) SetKeyspace(ctx context.Context, keyspace string) error {
	res := newResult().exception(1, invalidRequest)
	return c.call(ctx, "set_keyspace", func(w *writer) {
		w.field("keyspace", thrift.STRING, 1, func() { w.str(keyspace) })
	}, res)
}

func (c *client) DescribeVersion(ctx context.Context) (string, error) {
	var version string
	res := newResult().on(0, func(r *reader) { version = r.str() })
	err := c.call(ctx, "describe_version", func(w *writer) {}, res)
	return version, err
}

func (c *client) DescribeKeyspace(ctx context.Context, keyspace string) (*cassandra.KsDef, error) {
	var ks *cassandra.KsDef
	res := newResult().
		on(0, func(r *reader) { ks = readKsDef(r) }).
		exception(1, notFound).
		exception(2, invalidRequest)
	err := c.call(ctx, "describe_keyspace", func(w *writer) {
		w.field("keyspace", thrift.STRING, 1, func() { w.str(keyspace) })
	}, res)
	return ks, err
}

func (c *client) DescribeRing(ctx context.Context, keyspace string) ([]*cassandra.TokenRange, error) {
	var ring []*cassandra.TokenRange
	res := newResult().
		on(0, func(r *reader) {
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				ring = append(ring, readTokenRange(r))
			}
			r.listEnd()
		}).
		exception(1, invalidRequest)
	err := c.call(ctx, "describe_ring", func(w *writer) {
		w.field("keyspace", thrift.STRING, 1, func() { w.str(keyspace) })
	}, res)
	return ring, err
}

func (c *client) DescribeSplits(ctx context.Context, columnFamily, startToken, endToken string, keysPerSplit int32) ([]string, error) {
	var splits []string
	res := newResult().
		on(0, func(r *reader) {
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				splits = append(splits, r.str())
			}
			r.listEnd()
		}).
		exception(1, invalidRequest)
	err := c.call(ctx, "describe_splits", func(w *writer) {
		w.field("cfName", thrift.STRING, 1, func() { w.str(columnFamily) })
		w.field("start_token", thrift.STRING, 2, func() { w.str(startToken) })
		w.field("end_token", thrift.STRING, 3, func() { w.str(endToken) })
		w.field("keys_per_split", thrift.I32, 4, func() { w.i32(keysPerSplit) })
	}, res)
	return splits, err
}

func dataExceptions(res *tResult) *tResult {
	return res.
		exception(1, invalidRequest).
		exception(2, unavailable).
		exception(3, timedOut)
}

func (c *client) GetSlice(ctx context.Context, key []byte, parent cassandra.ColumnParent, predicate cassandra.SlicePredicate, cl cassandra.ConsistencyLevel) ([]*cassandra.ColumnOrSuperColumn, error) {
	var out []*cassandra.ColumnOrSuperColumn
	res := dataExceptions(newResult().on(0, func(r *reader) { out = readColumnOrSuperColumnList(r) }))
	err := c.call(ctx, "get_slice", func(w *writer) {
		w.field("key", thrift.STRING, 1, func() { w.binary(key) })
		w.field("column_parent", thrift.STRUCT, 2, func() { writeColumnParent(w, parent) })
		w.field("predicate", thrift.STRUCT, 3, func() { writeSlicePredicate(w, predicate) })
		w.field("consistency_level", thrift.I32, 4, func() { w.i32(int32(cl)) })
	}, res)
	return out, err
}

func (c *client) MultigetSlice(ctx context.Context, keys [][]byte, parent cassandra.ColumnParent, predicate cassandra.SlicePredicate, cl cassandra.ConsistencyLevel) (map[string][]*cassandra.ColumnOrSuperColumn, error) {
	out := make(map[string][]*cassandra.ColumnOrSuperColumn)
	res := dataExceptions(newResult().on(0, func(r *reader) {
		n := r.mapHeader()
		for i := 0; i < n && r.err == nil; i++ {
			key := r.binary()
			out[string(key)] = readColumnOrSuperColumnList(r)
		}
		r.mapEnd()
	}))
	err := c.call(ctx, "multiget_slice", func(w *writer) {
		w.field("keys", thrift.LIST, 1, func() {
			w.listBegin(thrift.STRING, len(keys))
			for _, key := range keys {
				w.binary(key)
			}
			w.listEnd()
		})
		w.field("column_parent", thrift.STRUCT, 2, func() { writeColumnParent(w, parent) })
		w.field("predicate", thrift.STRUCT, 3, func() { writeSlicePredicate(w, predicate) })
		w.field("consistency_level", thrift.I32, 4, func() { w.i32(int32(cl)) })
	}, res)
	return out, err
}

func (c *client) GetRangeSlices(ctx context.Context, parent cassandra.ColumnParent, predicate cassandra.SlicePredicate, keyRange cassandra.KeyRange, cl cassandra.ConsistencyLevel) ([]*cassandra.KeySlice, error) {
	var out []*cassandra.KeySlice
	res := dataExceptions(newResult().on(0, func(r *reader) { out = readKeySliceList(r) }))
	err := c.call(ctx, "get_range_slices", func(w *writer) {
		w.field("column_parent", thrift.STRUCT, 1, func() { writeColumnParent(w, parent) })
		w.field("predicate", thrift.STRUCT, 2, func() { writeSlicePredicate(w, predicate) })
		w.field("range", thrift.STRUCT, 3, func() { writeKeyRange(w, keyRange) })
		w.field("consistency_level", thrift.I32, 4, func() { w.i32(int32(cl)) })
	}, res)
	return out, err
}

func (c *client) GetIndexedSlices(ctx context.Context, parent cassandra.ColumnParent, clause cassandra.IndexClause, predicate cassandra.SlicePredicate, cl cassandra.ConsistencyLevel) ([]*cassandra.KeySlice, error) {
	var out []*cassandra.KeySlice
	res := dataExceptions(newResult().on(0, func(r *reader) { out = readKeySliceList(r) }))
	err := c.call(ctx, "get_indexed_slices", func(w *writer) {
		w.field("column_parent", thrift.STRUCT, 1, func() { writeColumnParent(w, parent) })
		w.field("index_clause", thrift.STRUCT, 2, func() { writeIndexClause(w, clause) })
		w.field("column_predicate", thrift.STRUCT, 3, func() { writeSlicePredicate(w, predicate) })
		w.field("consistency_level", thrift.I32, 4, func() { w.i32(int32(cl)) })
	}, res)
	return out, err
}

func (c *client) BatchMutate(ctx context.Context, mutations cassandra.MutationMap, cl cassandra.ConsistencyLevel) error {
	res := dataExceptions(newResult())
	return c.call(ctx, "batch_mutate", func(w *writer) {
		w.field("mutation_map", thrift.MAP, 1, func() { writeMutationMap(w, mutations) })
		w.field("consistency_level", thrift.I32, 2, func() { w.i32(int32(cl)) })
	}, res)
}

func (c *client) Remove(ctx context.Context, key []byte, path cassandra.ColumnPath, timestamp int64, cl cassandra.ConsistencyLevel) error {
	res := dataExceptions(newResult())
	return c.call(ctx, "remove", func(w *writer) {
		w.field("key", thrift.STRING, 1, func() { w.binary(key) })
		w.field("column_path", thrift.STRUCT, 2, func() { writeColumnPath(w, path) })
		w.field("timestamp", thrift.I64, 3, func() { w.i64(timestamp) })
		w.field("consistency_level", thrift.I32, 4, func() { w.i32(int32(cl)) })
	}, res)
}

func (c *client) schemaCall(ctx context.Context, method string, args func(w *writer)) (string, error) {
	var version string
	res := newResult().
		on(0, func(r *reader) { version = r.str() }).
		exception(1, invalidRequest).
		exception(2, disagreement)
	err := c.call(ctx, method, args, res)
	return version, err
}

func (c *client) AddKeyspace(ctx context.Context, ks *cassandra.KsDef) (string, error) {
	return c.schemaCall(ctx, "system_add_keyspace", func(w *writer) {
		w.field("ks_def", thrift.STRUCT, 1, func() { writeKsDef(w, ks) })
	})
}

func (c *client) DropKeyspace(ctx context.Context, keyspace string) (string, error) {
	return c.schemaCall(ctx, "system_drop_keyspace", func(w *writer) {
		w.field("keyspace", thrift.STRING, 1, func() { w.str(keyspace) })
	})
}

func (c *client) AddColumnFamily(ctx context.Context, cf *cassandra.CfDef) (string, error) {
	return c.schemaCall(ctx, "system_add_column_family", func(w *writer) {
		w.field("cf_def", thrift.STRUCT, 1, func() { writeCfDef(w, cf) })
	})
}

func (c *client) DropColumnFamily(ctx context.Context, columnFamily string) (string, error) {
	return c.schemaCall(ctx, "system_drop_column_family", func(w *writer) {
		w.field("column_family", thrift.STRING, 1, func() { w.str(columnFamily) })
	})
}

func (c *client) Truncate(ctx context.Context, columnFamily string) error {
	res := newResult().
		exception(1, invalidRequest).
		exception(2, unavailable)
	return c.call(ctx, "truncate", func(w *writer) {
		w.field("cfname", thrift.STRING, 1, func() { w.str(columnFamily) })
	}, res)
}
