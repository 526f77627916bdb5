package cassandra

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kallaspriit/cassandra-go-client/pkg/marshal"
)

// SchemaProvider resolves comparator/validator types and the column family
// kind from schema metadata. Implementations cache describe_keyspace
// results; useCache=false forces a fresh description.
type SchemaProvider interface {
	ColumnNameType(ctx context.Context, columnFamily string, useCache bool) (marshal.TypeTag, error)
	ColumnValueType(ctx context.Context, columnFamily, column string, useCache bool) (marshal.TypeTag, error)
	IsSuper(ctx context.Context, columnFamily string, useCache bool) (bool, error)
}

// SliceOptions narrows which columns of each row are returned.
type SliceOptions struct {
	// Columns selects by explicit name list; when nil the Start/Finish
	// range applies instead.
	Columns     [][]byte
	Start       []byte
	Finish      []byte
	Reversed    bool
	Count       int32
	SuperColumn []byte
	Consistency ConsistencyLevel
}

// IndexExpr is one secondary-index comparison. Value is packed using the
// column's validation class when a schema provider is attached, or taken as
// raw bytes/string otherwise.
type IndexExpr struct {
	Column string
	Op     IndexOperator
	Value  interface{}
}

// ColumnFamily provides typed operations over one table, layered on
// Client.Call.
type ColumnFamily struct {
	client *Client
	name   string

	// Super marks a super-column family. When a Schema is attached it
	// takes precedence over this flag.
	Super  bool
	Schema SchemaProvider

	ReadConsistency  ConsistencyLevel
	WriteConsistency ConsistencyLevel
	// ColumnCount bounds columns per row on reads without explicit options.
	ColumnCount int32
	// PageSize is the row count per page for range and index scans.
	PageSize int32
}

// NewColumnFamily binds a column family name to a client with default
// consistency ONE and the client's configured page size.
func NewColumnFamily(client *Client, name string) *ColumnFamily {
	return &ColumnFamily{
		client:           client,
		name:             name,
		ReadConsistency:  ConsistencyOne,
		WriteConsistency: ConsistencyOne,
		ColumnCount:      int32(client.cfg.PageSize),
		PageSize:         int32(client.cfg.PageSize),
	}
}

// Name returns the column family name.
func (cf *ColumnFamily) Name() string { return cf.name }

// Get fetches the selected columns of one row. A missing key comes back as
// an empty row.
func (cf *ColumnFamily) Get(ctx context.Context, key []byte, opts *SliceOptions) (Row, error) {
	opts = cf.sliceOptions(opts)
	res, err := cf.client.Call(ctx, OpGetSlice, key, cf.parent(opts), cf.predicate(opts), cf.readCL(opts))
	if err != nil {
		return Row{}, err
	}
	return cf.decode(ctx, &KeySlice{Key: key, Columns: res.([]*ColumnOrSuperColumn)}), nil
}

// GetMultiple fetches the selected columns of several rows in one call.
func (cf *ColumnFamily) GetMultiple(ctx context.Context, keys [][]byte, opts *SliceOptions) (map[string]Row, error) {
	opts = cf.sliceOptions(opts)
	res, err := cf.client.Call(ctx, OpMultigetSlice, keys, cf.parent(opts), cf.predicate(opts), cf.readCL(opts))
	if err != nil {
		return nil, err
	}
	rows := make(map[string]Row)
	for key, cols := range res.(map[string][]*ColumnOrSuperColumn) {
		rows[key] = cf.decode(ctx, &KeySlice{Key: []byte(key), Columns: cols})
	}
	return rows, nil
}

// GetKeyRange scans rows with keys in [startKey, endKey], paging through the
// backend with the iterator. rowLimit of 0 means unbounded.
func (cf *ColumnFamily) GetKeyRange(ctx context.Context, startKey, endKey []byte, rowLimit int32, opts *SliceOptions) *RowIterator {
	opts = cf.sliceOptions(opts)
	parent, predicate, cl := cf.parent(opts), cf.predicate(opts), cf.readCL(opts)

	fetch := func(cursor []byte, count int32) ([]*KeySlice, error) {
		res, err := cf.client.Call(ctx, OpGetRangeSlices, parent, predicate, KeyRange{
			StartKey: cursor,
			EndKey:   endKey,
			Count:    count,
		}, cl)
		if err != nil {
			return nil, err
		}
		return res.([]*KeySlice), nil
	}
	return newRowIterator(fetch, cf.decoder(ctx), startKey, cf.PageSize, rowLimit)
}

// GetWhere scans rows matching the secondary-index expressions, paging like
// GetKeyRange. The first expression must be an equality on an indexed
// column; the backend enforces this.
func (cf *ColumnFamily) GetWhere(ctx context.Context, exprs []IndexExpr, rowLimit int32, opts *SliceOptions) (*RowIterator, error) {
	opts = cf.sliceOptions(opts)
	packed, err := cf.packExprs(ctx, exprs)
	if err != nil {
		return nil, err
	}
	parent, predicate, cl := cf.parent(opts), cf.predicate(opts), cf.readCL(opts)

	fetch := func(cursor []byte, count int32) ([]*KeySlice, error) {
		res, err := cf.client.Call(ctx, OpGetIndexedSlices, parent, IndexClause{
			Expressions: packed,
			StartKey:    cursor,
			Count:       count,
		}, predicate, cl)
		if err != nil {
			return nil, err
		}
		return res.([]*KeySlice), nil
	}
	return newRowIterator(fetch, cf.decoder(ctx), nil, cf.PageSize, rowLimit), nil
}

// Insert writes the row's columns with a microsecond timestamp taken once
// for the whole batch.
func (cf *ColumnFamily) Insert(ctx context.Context, key []byte, row Row) error {
	ts := time.Now().UnixMicro()
	var mutations []*Mutation

	switch {
	case row.Columns != nil:
		for name, value := range row.Columns {
			mutations = append(mutations, &Mutation{ColumnOrSuperColumn: &ColumnOrSuperColumn{
				Column: &Column{Name: []byte(name), Value: value, Timestamp: ts},
			}})
		}
	case row.SuperColumns != nil:
		for superName, sub := range row.SuperColumns {
			sc := &SuperColumn{Name: []byte(superName)}
			for name, value := range sub {
				sc.Columns = append(sc.Columns, &Column{Name: []byte(name), Value: value, Timestamp: ts})
			}
			mutations = append(mutations, &Mutation{ColumnOrSuperColumn: &ColumnOrSuperColumn{SuperColumn: sc}})
		}
	default:
		return invalidRequestf("insert into %s: row has no columns", cf.name)
	}

	_, err := cf.client.Call(ctx, OpBatchMutate, MutationMap{
		string(key): {cf.name: mutations},
	}, cf.WriteConsistency)
	return err
}

// Remove deletes the named columns of a row, or the whole row when columns
// is nil.
func (cf *ColumnFamily) Remove(ctx context.Context, key []byte, columns [][]byte) error {
	ts := time.Now().UnixMicro()

	if columns == nil {
		_, err := cf.client.Call(ctx, OpRemove, key, ColumnPath{ColumnFamily: cf.name}, ts, cf.WriteConsistency)
		return err
	}

	_, err := cf.client.Call(ctx, OpBatchMutate, MutationMap{
		string(key): {cf.name: {{Deletion: &Deletion{
			Timestamp: ts,
			Predicate: &SlicePredicate{ColumnNames: columns},
		}}}},
	}, cf.WriteConsistency)
	return err
}

func (cf *ColumnFamily) sliceOptions(opts *SliceOptions) *SliceOptions {
	if opts == nil {
		opts = &SliceOptions{}
	}
	if opts.Count == 0 {
		opts.Count = cf.ColumnCount
	}
	return opts
}

func (cf *ColumnFamily) parent(opts *SliceOptions) ColumnParent {
	return ColumnParent{ColumnFamily: cf.name, SuperColumn: opts.SuperColumn}
}

func (cf *ColumnFamily) predicate(opts *SliceOptions) SlicePredicate {
	if opts.Columns != nil {
		return SlicePredicate{ColumnNames: opts.Columns}
	}
	return SlicePredicate{SliceRange: &SliceRange{
		Start:    opts.Start,
		Finish:   opts.Finish,
		Reversed: opts.Reversed,
		Count:    opts.Count,
	}}
}

func (cf *ColumnFamily) readCL(opts *SliceOptions) ConsistencyLevel {
	if opts.Consistency != 0 {
		return opts.Consistency
	}
	return cf.ReadConsistency
}

// isSuper consults the schema when available, falling back to the flag.
func (cf *ColumnFamily) isSuper(ctx context.Context) bool {
	if cf.Schema != nil {
		if super, err := cf.Schema.IsSuper(ctx, cf.name, true); err == nil {
			return super
		}
	}
	return cf.Super
}

func (cf *ColumnFamily) decode(ctx context.Context, ks *KeySlice) Row {
	if cf.isSuper(ctx) {
		return decodeSuper(ks)
	}
	return decodeStandard(ks)
}

func (cf *ColumnFamily) decoder(ctx context.Context) func(*KeySlice) Row {
	if cf.isSuper(ctx) {
		return decodeSuper
	}
	return decodeStandard
}

// packExprs packs expression values with the column's validation class.
func (cf *ColumnFamily) packExprs(ctx context.Context, exprs []IndexExpr) ([]*IndexExpression, error) {
	if len(exprs) == 0 {
		return nil, invalidRequestf("index query on %s: no expressions", cf.name)
	}
	packed := make([]*IndexExpression, 0, len(exprs))
	for _, e := range exprs {
		tag := marshal.BytesType
		if cf.Schema != nil {
			t, err := cf.Schema.ColumnValueType(ctx, cf.name, e.Column, true)
			if err != nil {
				return nil, errors.Wrapf(err, "resolving type of %s.%s", cf.name, e.Column)
			}
			tag = t
		}
		value, err := marshal.Pack(e.Value, tag)
		if err != nil {
			return nil, errors.Wrapf(err, "packing value for %s.%s", cf.name, e.Column)
		}
		packed = append(packed, &IndexExpression{
			ColumnName: []byte(e.Column),
			Op:         e.Op,
			Value:      value,
		})
	}
	return packed, nil
}
