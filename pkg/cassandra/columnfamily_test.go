package cassandra

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kallaspriit/cassandra-go-client/pkg/marshal"
)

func testColumnFamily(t *testing.T, stub RPCStub) *ColumnFamily {
	t.Helper()
	client := testClient(t, stub, func(cfg *Config) { cfg.Keyspace = "app" })
	return NewColumnFamily(client, "users")
}

func TestColumnFamilyGet(t *testing.T) {
	stub := &testStub{getSliceFn: func(key []byte) ([]*ColumnOrSuperColumn, error) {
		require.Equal(t, []byte("alice"), key)
		return []*ColumnOrSuperColumn{
			{Column: &Column{Name: []byte("email"), Value: []byte("alice@example.com")}},
		}, nil
	}}
	cf := testColumnFamily(t, stub)

	row, err := cf.Get(context.Background(), []byte("alice"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("alice@example.com"), row.Columns["email"])
}

func TestColumnFamilyGetMissingKey(t *testing.T) {
	stub := &testStub{getSliceFn: func(key []byte) ([]*ColumnOrSuperColumn, error) {
		return nil, nil
	}}
	cf := testColumnFamily(t, stub)

	row, err := cf.Get(context.Background(), []byte("nobody"), nil)
	require.NoError(t, err)
	require.True(t, row.Empty())
}

func TestColumnFamilyGetKeyRangePages(t *testing.T) {
	rows := make([]*KeySlice, 0, 5)
	for i := 1; i <= 5; i++ {
		rows = append(rows, liveRow(fmt.Sprintf("k%02d", i)))
	}
	f := &fakeRange{rows: rows}
	stub := &testStub{getRangeFn: func(keyRange KeyRange) ([]*KeySlice, error) {
		require.Equal(t, []byte("k99"), keyRange.EndKey)
		return f.fetch(keyRange.StartKey, keyRange.Count)
	}}
	cf := testColumnFamily(t, stub)
	cf.PageSize = 2

	it := cf.GetKeyRange(context.Background(), nil, []byte("k99"), 0, nil)
	keys := drainKeys(t, it)
	require.Equal(t, []string{"k01", "k02", "k03", "k04", "k05"}, keys)
}

func TestColumnFamilyGetWherePacksValues(t *testing.T) {
	var clauses []IndexClause
	stub := &testStub{getIndexedFn: func(clause IndexClause) ([]*KeySlice, error) {
		clauses = append(clauses, clause)
		return []*KeySlice{liveRow("match")}, nil
	}}
	cf := testColumnFamily(t, stub)

	it, err := cf.GetWhere(context.Background(), []IndexExpr{
		{Column: "age", Op: IndexOpEQ, Value: []byte{0x2a}},
	}, 0, nil)
	require.NoError(t, err)

	keys := drainKeys(t, it)
	require.Equal(t, []string{"match"}, keys)
	require.NotEmpty(t, clauses)
	require.Equal(t, []byte("age"), clauses[0].Expressions[0].ColumnName)
	require.Equal(t, IndexOpEQ, clauses[0].Expressions[0].Op)
	require.Equal(t, []byte{0x2a}, clauses[0].Expressions[0].Value)
}

func TestColumnFamilyGetWhereNoExpressions(t *testing.T) {
	cf := testColumnFamily(t, &testStub{})
	_, err := cf.GetWhere(context.Background(), nil, 0, nil)
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestColumnFamilyInsert(t *testing.T) {
	stub := &testStub{}
	cf := testColumnFamily(t, stub)

	err := cf.Insert(context.Background(), []byte("alice"), Row{Columns: Columns{
		"email": []byte("alice@example.com"),
		"name":  []byte("Alice"),
	}})
	require.NoError(t, err)
	require.Len(t, stub.mutations, 1)

	mutations := stub.mutations[0]["alice"]["users"]
	require.Len(t, mutations, 2)
	byName := map[string][]byte{}
	var ts int64
	for _, m := range mutations {
		col := m.ColumnOrSuperColumn.Column
		byName[string(col.Name)] = col.Value
		if ts == 0 {
			ts = col.Timestamp
		}
		// One timestamp for the whole batch.
		require.Equal(t, ts, col.Timestamp)
	}
	require.Equal(t, []byte("alice@example.com"), byName["email"])
	require.Equal(t, []byte("Alice"), byName["name"])
}

func TestColumnFamilyInsertSuper(t *testing.T) {
	stub := &testStub{}
	cf := testColumnFamily(t, stub)
	cf.Super = true

	err := cf.Insert(context.Background(), []byte("alice"), Row{SuperColumns: SuperColumns{
		"address": Columns{"city": []byte("Tallinn")},
	}})
	require.NoError(t, err)

	mutations := stub.mutations[0]["alice"]["users"]
	require.Len(t, mutations, 1)
	sc := mutations[0].ColumnOrSuperColumn.SuperColumn
	require.Equal(t, []byte("address"), sc.Name)
	require.Len(t, sc.Columns, 1)
	require.Equal(t, []byte("city"), sc.Columns[0].Name)
}

func TestColumnFamilyInsertEmptyRow(t *testing.T) {
	cf := testColumnFamily(t, &testStub{})
	err := cf.Insert(context.Background(), []byte("alice"), Row{})
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestColumnFamilyRemoveWholeRow(t *testing.T) {
	stub := &testStub{}
	cf := testColumnFamily(t, stub)

	require.NoError(t, cf.Remove(context.Background(), []byte("alice"), nil))
	require.Equal(t, [][]byte{[]byte("alice")}, stub.removed)
	require.Empty(t, stub.mutations)
}

func TestColumnFamilyRemoveNamedColumns(t *testing.T) {
	stub := &testStub{}
	cf := testColumnFamily(t, stub)

	require.NoError(t, cf.Remove(context.Background(), []byte("alice"), [][]byte{[]byte("email")}))
	require.Empty(t, stub.removed)

	mutations := stub.mutations[0]["alice"]["users"]
	require.Len(t, mutations, 1)
	require.NotNil(t, mutations[0].Deletion)
	require.Equal(t, [][]byte{[]byte("email")}, mutations[0].Deletion.Predicate.ColumnNames)
}

// fixedSchema serves canned metadata without a backend.
type fixedSchema struct {
	nameType  marshal.TypeTag
	valueType marshal.TypeTag
	super     bool
}

func (s fixedSchema) ColumnNameType(ctx context.Context, columnFamily string, useCache bool) (marshal.TypeTag, error) {
	return s.nameType, nil
}

func (s fixedSchema) ColumnValueType(ctx context.Context, columnFamily, column string, useCache bool) (marshal.TypeTag, error) {
	return s.valueType, nil
}

func (s fixedSchema) IsSuper(ctx context.Context, columnFamily string, useCache bool) (bool, error) {
	return s.super, nil
}

func TestColumnFamilySchemaDrivesDecode(t *testing.T) {
	stub := &testStub{getSliceFn: func(key []byte) ([]*ColumnOrSuperColumn, error) {
		return []*ColumnOrSuperColumn{{
			SuperColumn: &SuperColumn{
				Name:    []byte("address"),
				Columns: []*Column{{Name: []byte("city"), Value: []byte("Tallinn")}},
			},
		}}, nil
	}}
	cf := testColumnFamily(t, stub)
	// The schema says super even though the flag was never set.
	cf.Schema = fixedSchema{super: true}

	row, err := cf.Get(context.Background(), []byte("alice"), nil)
	require.NoError(t, err)
	require.Equal(t, []byte("Tallinn"), row.SuperColumns["address"]["city"])
}

func TestColumnFamilyGetWherePacksTypedValues(t *testing.T) {
	var clauses []IndexClause
	stub := &testStub{getIndexedFn: func(clause IndexClause) ([]*KeySlice, error) {
		clauses = append(clauses, clause)
		return nil, nil
	}}
	cf := testColumnFamily(t, stub)
	cf.Schema = fixedSchema{valueType: marshal.LongType}

	it, err := cf.GetWhere(context.Background(), []IndexExpr{
		{Column: "age", Op: IndexOpEQ, Value: int64(42)},
	}, 0, nil)
	require.NoError(t, err)
	require.False(t, it.Next())
	require.NoError(t, it.Err())

	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0x2a}, clauses[0].Expressions[0].Value)
}
