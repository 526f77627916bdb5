package cassthrift

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/require"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
)

// wirePair shares one memory buffer between a writer and a reader, so what
// the encoders produce is exactly what the decoders consume.
func wirePair(t *testing.T) (*writer, *reader) {
	t.Helper()
	buf := thrift.NewTMemoryBuffer()
	proto := thrift.NewTBinaryProtocolConf(buf, nil)
	ctx := context.Background()
	return &writer{ctx: ctx, p: proto}, &reader{ctx: ctx, p: proto}
}

func TestColumnRoundTrip(t *testing.T) {
	w, r := wirePair(t)

	writeColumn(w, &cassandra.Column{
		Name:      []byte("email"),
		Value:     []byte("alice@example.com"),
		Timestamp: 1308134394003000,
		TTL:       600,
	})
	require.NoError(t, w.err)

	got := readColumn(r)
	require.NoError(t, r.err)
	require.Equal(t, []byte("email"), got.Name)
	require.Equal(t, []byte("alice@example.com"), got.Value)
	require.Equal(t, int64(1308134394003000), got.Timestamp)
	require.Equal(t, int32(600), got.TTL)
}

func TestColumnOrSuperColumnRoundTrip(t *testing.T) {
	w, r := wirePair(t)

	writeColumnOrSuperColumn(w, &cassandra.ColumnOrSuperColumn{
		SuperColumn: &cassandra.SuperColumn{
			Name: []byte("address"),
			Columns: []*cassandra.Column{
				{Name: []byte("city"), Value: []byte("Tallinn"), Timestamp: 1},
				{Name: []byte("zip"), Value: []byte("10111"), Timestamp: 1},
			},
		},
	})
	require.NoError(t, w.err)

	got := readColumnOrSuperColumn(r)
	require.NoError(t, r.err)
	require.Nil(t, got.Column)
	require.Equal(t, []byte("address"), got.SuperColumn.Name)
	require.Len(t, got.SuperColumn.Columns, 2)
	require.Equal(t, []byte("city"), got.SuperColumn.Columns[0].Name)
}

func TestKeySliceListRoundTrip(t *testing.T) {
	w, r := wirePair(t)

	w.listBegin(thrift.STRUCT, 2)
	for _, key := range []string{"k1", "k2"} {
		w.structBegin("KeySlice")
		w.field("key", thrift.STRING, 1, func() { w.binary([]byte(key)) })
		w.field("columns", thrift.LIST, 2, func() {
			w.listBegin(thrift.STRUCT, 1)
			writeColumnOrSuperColumn(w, &cassandra.ColumnOrSuperColumn{
				Column: &cassandra.Column{Name: []byte("c"), Value: []byte(key), Timestamp: 2},
			})
			w.listEnd()
		})
		w.structEnd()
	}
	w.listEnd()
	require.NoError(t, w.err)

	got := readKeySliceList(r)
	require.NoError(t, r.err)
	require.Len(t, got, 2)
	require.Equal(t, []byte("k1"), got[0].Key)
	require.Equal(t, []byte("k2"), got[1].Columns[0].Column.Value)
}

func TestKsDefRoundTrip(t *testing.T) {
	w, r := wirePair(t)

	writeKsDef(w, &cassandra.KsDef{
		Name:            "app",
		StrategyClass:   "org.apache.cassandra.locator.SimpleStrategy",
		StrategyOptions: map[string]string{"replication_factor": "3"},
		CfDefs: []*cassandra.CfDef{{
			Keyspace:               "app",
			Name:                   "users",
			ColumnType:             "Standard",
			ComparatorType:         "UTF8Type",
			DefaultValidationClass: "BytesType",
			ColumnMetadata: []*cassandra.ColumnDef{
				{Name: []byte("age"), ValidationClass: "LongType", Indexed: true, IndexName: "users_age_idx"},
			},
		}},
		DurableWrites: true,
	})
	require.NoError(t, w.err)

	got := readKsDef(r)
	require.NoError(t, r.err)
	require.Equal(t, "app", got.Name)
	require.Equal(t, map[string]string{"replication_factor": "3"}, got.StrategyOptions)
	require.True(t, got.DurableWrites)
	require.Len(t, got.CfDefs, 1)

	cf := got.CfDefs[0]
	require.Equal(t, "users", cf.Name)
	require.Equal(t, "UTF8Type", cf.ComparatorType)
	require.Len(t, cf.ColumnMetadata, 1)
	require.True(t, cf.ColumnMetadata[0].Indexed)
	require.Equal(t, "users_age_idx", cf.ColumnMetadata[0].IndexName)
}

// Decoders must skip fields they do not know so newer servers stay readable.
func TestReaderSkipsUnknownFields(t *testing.T) {
	w, r := wirePair(t)

	w.structBegin("Column")
	w.field("name", thrift.STRING, 1, func() { w.binary([]byte("c")) })
	w.field("value", thrift.STRING, 2, func() { w.binary([]byte("v")) })
	w.field("timestamp", thrift.I64, 3, func() { w.i64(9) })
	w.field("mystery", thrift.STRING, 99, func() { w.str("from the future") })
	w.structEnd()
	require.NoError(t, w.err)

	got := readColumn(r)
	require.NoError(t, r.err)
	require.Equal(t, []byte("c"), got.Name)
	require.Equal(t, []byte("v"), got.Value)
	require.Equal(t, int64(9), got.Timestamp)
}

func TestWriterErrorIsSticky(t *testing.T) {
	// A transport with no room fails the first write; everything after must
	// be a no-op instead of a panic or a partial frame.
	buf := thrift.NewTMemoryBuffer()
	proto := thrift.NewTBinaryProtocolConf(&failingTransport{TTransport: buf}, nil)
	w := &writer{ctx: context.Background(), p: proto}

	writeColumn(w, &cassandra.Column{Name: []byte("n"), Value: []byte("v")})
	require.Error(t, w.err)
}

type failingTransport struct {
	thrift.TTransport
}

func (f *failingTransport) Write(p []byte) (int, error) {
	return 0, thrift.NewTTransportException(thrift.NOT_OPEN, "broken pipe")
}
