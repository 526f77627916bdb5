package schema

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
	"github.com/kallaspriit/cassandra-go-client/pkg/marshal"
)

// fakeDescriber counts describe_keyspace calls and serves a fixed schema.
type fakeDescriber struct {
	keyspace  string
	def       *cassandra.KsDef
	err       error
	describes int
}

func (f *fakeDescriber) Keyspace() string { return f.keyspace }

func (f *fakeDescriber) DescribeKeyspace(ctx context.Context, keyspace string) (*cassandra.KsDef, error) {
	f.describes++
	return f.def, f.err
}

func testDescriber() *fakeDescriber {
	return &fakeDescriber{
		keyspace: "app",
		def: &cassandra.KsDef{
			Name: "app",
			CfDefs: []*cassandra.CfDef{
				{
					Name:                   "users",
					ColumnType:             "Standard",
					ComparatorType:         "org.apache.cassandra.db.marshal.UTF8Type",
					DefaultValidationClass: "org.apache.cassandra.db.marshal.BytesType",
					ColumnMetadata: []*cassandra.ColumnDef{
						{Name: []byte("age"), ValidationClass: "org.apache.cassandra.db.marshal.LongType"},
					},
				},
				{Name: "timelines", ColumnType: "Super", ComparatorType: "TimeUUIDType"},
			},
		},
	}
}

func TestProviderResolvesTypes(t *testing.T) {
	d := testDescriber()
	p := New(d, 0, nil)

	nameType, err := p.ColumnNameType(context.Background(), "users", true)
	require.NoError(t, err)
	require.Equal(t, marshal.UTF8Type, nameType)

	// Per-column metadata wins over the family default.
	valueType, err := p.ColumnValueType(context.Background(), "users", "age", true)
	require.NoError(t, err)
	require.Equal(t, marshal.LongType, valueType)

	// Unknown columns fall back to the default validation class.
	valueType, err = p.ColumnValueType(context.Background(), "users", "email", true)
	require.NoError(t, err)
	require.Equal(t, marshal.BytesType, valueType)

	super, err := p.IsSuper(context.Background(), "timelines", true)
	require.NoError(t, err)
	require.True(t, super)
	super, err = p.IsSuper(context.Background(), "users", true)
	require.NoError(t, err)
	require.False(t, super)
}

func TestProviderCachesDescription(t *testing.T) {
	d := testDescriber()
	p := New(d, time.Hour, nil)

	for i := 0; i < 5; i++ {
		_, err := p.ColumnNameType(context.Background(), "users", true)
		require.NoError(t, err)
	}
	require.Equal(t, 1, d.describes)
}

func TestProviderBypassesCachePerCall(t *testing.T) {
	d := testDescriber()
	p := New(d, time.Hour, nil)

	_, err := p.ColumnNameType(context.Background(), "users", true)
	require.NoError(t, err)
	_, err = p.ColumnNameType(context.Background(), "users", false)
	require.NoError(t, err)
	require.Equal(t, 2, d.describes)

	// The bypassing call refreshed the cache, so the next cached call hits.
	_, err = p.ColumnNameType(context.Background(), "users", true)
	require.NoError(t, err)
	require.Equal(t, 2, d.describes)
}

func TestProviderInvalidate(t *testing.T) {
	d := testDescriber()
	p := New(d, time.Hour, nil)

	_, err := p.ColumnNameType(context.Background(), "users", true)
	require.NoError(t, err)
	p.Invalidate("app")
	_, err = p.ColumnNameType(context.Background(), "users", true)
	require.NoError(t, err)
	require.Equal(t, 2, d.describes)
}

func TestProviderUnknownColumnFamily(t *testing.T) {
	d := testDescriber()
	p := New(d, time.Hour, nil)

	_, err := p.ColumnNameType(context.Background(), "missing", true)
	require.Error(t, err)
}

func TestProviderNoKeyspace(t *testing.T) {
	d := testDescriber()
	d.keyspace = ""
	p := New(d, time.Hour, nil)

	_, err := p.ColumnNameType(context.Background(), "users", true)
	require.Error(t, err)
	require.Equal(t, 0, d.describes)
}

func TestProviderDescribeError(t *testing.T) {
	d := testDescriber()
	cause := errors.New("unavailable")
	d.err = cause
	p := New(d, time.Hour, nil)

	_, err := p.IsSuper(context.Background(), "users", true)
	require.ErrorIs(t, err, cause)
}
