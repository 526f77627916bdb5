package cassandra

import (
	"fmt"
	"strings"
)

// ConsistencyLevel is passed through to the backend on every data operation;
// this layer does not interpret it.
type ConsistencyLevel int32

const (
	ConsistencyOne         ConsistencyLevel = 1
	ConsistencyQuorum      ConsistencyLevel = 2
	ConsistencyLocalQuorum ConsistencyLevel = 3
	ConsistencyEachQuorum  ConsistencyLevel = 4
	ConsistencyAll         ConsistencyLevel = 5
	ConsistencyAny         ConsistencyLevel = 6
	ConsistencyTwo         ConsistencyLevel = 7
	ConsistencyThree       ConsistencyLevel = 8
)

func (cl ConsistencyLevel) String() string {
	switch cl {
	case ConsistencyOne:
		return "ONE"
	case ConsistencyQuorum:
		return "QUORUM"
	case ConsistencyLocalQuorum:
		return "LOCAL_QUORUM"
	case ConsistencyEachQuorum:
		return "EACH_QUORUM"
	case ConsistencyAll:
		return "ALL"
	case ConsistencyAny:
		return "ANY"
	case ConsistencyTwo:
		return "TWO"
	case ConsistencyThree:
		return "THREE"
	}
	return fmt.Sprintf("ConsistencyLevel(%d)", int32(cl))
}

// ParseConsistency converts a config string such as "QUORUM" into a
// ConsistencyLevel.
func ParseConsistency(s string) (ConsistencyLevel, error) {
	for _, cl := range []ConsistencyLevel{
		ConsistencyOne, ConsistencyQuorum, ConsistencyLocalQuorum,
		ConsistencyEachQuorum, ConsistencyAll, ConsistencyAny,
		ConsistencyTwo, ConsistencyThree,
	} {
		if strings.EqualFold(s, cl.String()) {
			return cl, nil
		}
	}
	return 0, fmt.Errorf("unknown consistency level %q", s)
}

// Column is a single named cell.
type Column struct {
	Name      []byte
	Value     []byte
	Timestamp int64
	TTL       int32
}

// SuperColumn groups sub-columns under one name.
type SuperColumn struct {
	Name    []byte
	Columns []*Column
}

// ColumnOrSuperColumn holds exactly one of its members, mirroring the union
// the RPC API returns.
type ColumnOrSuperColumn struct {
	Column      *Column
	SuperColumn *SuperColumn
}

// ColumnParent addresses a column family, optionally narrowed to one super
// column.
type ColumnParent struct {
	ColumnFamily string
	SuperColumn  []byte
}

// ColumnPath addresses a single column or super column for removal.
type ColumnPath struct {
	ColumnFamily string
	SuperColumn  []byte
	Column       []byte
}

// SliceRange selects columns of a row by name range.
type SliceRange struct {
	Start    []byte
	Finish   []byte
	Reversed bool
	Count    int32
}

// SlicePredicate selects columns either by explicit names or by range.
type SlicePredicate struct {
	ColumnNames [][]byte
	SliceRange  *SliceRange
}

// KeyRange bounds a range scan. Either key bounds or token bounds are used.
type KeyRange struct {
	StartKey   []byte
	EndKey     []byte
	StartToken string
	EndToken   string
	Count      int32
}

// KeySlice is one row of a paged result: a key plus its selected columns. An
// empty Columns slice marks a range tombstone the server still reports.
type KeySlice struct {
	Key     []byte
	Columns []*ColumnOrSuperColumn
}

// IndexOperator compares an indexed column against a packed value.
type IndexOperator int32

const (
	IndexOpEQ  IndexOperator = 0
	IndexOpGTE IndexOperator = 1
	IndexOpGT  IndexOperator = 2
	IndexOpLTE IndexOperator = 3
	IndexOpLT  IndexOperator = 4
)

// IndexExpression is one clause of a secondary-index query.
type IndexExpression struct {
	ColumnName []byte
	Op         IndexOperator
	Value      []byte
}

// IndexClause carries the expressions plus the paging cursor for
// get_indexed_slices.
type IndexClause struct {
	Expressions []*IndexExpression
	StartKey    []byte
	Count       int32
}

// Deletion removes columns selected by Predicate, or the whole super column.
type Deletion struct {
	Timestamp   int64
	SuperColumn []byte
	Predicate   *SlicePredicate
}

// Mutation holds exactly one of an insertion or a deletion.
type Mutation struct {
	ColumnOrSuperColumn *ColumnOrSuperColumn
	Deletion            *Deletion
}

// MutationMap is keyed by row key, then column family.
type MutationMap map[string]map[string][]*Mutation

// ColumnDef describes one column of a column family, including any secondary
// index on it.
type ColumnDef struct {
	Name            []byte
	ValidationClass string
	IndexName       string
	Indexed         bool
}

// CfDef is the column family schema as returned by describe_keyspace.
type CfDef struct {
	Keyspace               string
	Name                   string
	ColumnType             string // "Standard" or "Super"
	ComparatorType         string
	SubcomparatorType      string
	Comment                string
	KeyValidationClass     string
	DefaultValidationClass string
	ColumnMetadata         []*ColumnDef
}

// IsSuper reports whether rows of this family hold super columns.
func (cf *CfDef) IsSuper() bool {
	return strings.EqualFold(cf.ColumnType, "Super")
}

// KsDef is the keyspace schema.
type KsDef struct {
	Name              string
	StrategyClass     string
	StrategyOptions   map[string]string
	ReplicationFactor int32
	CfDefs            []*CfDef
	DurableWrites     bool
}

// ColumnFamilyDef returns the definition of the named family, or nil.
func (ks *KsDef) ColumnFamilyDef(name string) *CfDef {
	for _, cf := range ks.CfDefs {
		if cf.Name == name {
			return cf
		}
	}
	return nil
}

// TokenRange is one arc of the ring with the endpoints serving it.
type TokenRange struct {
	StartToken string
	EndToken   string
	Endpoints  []string
}
