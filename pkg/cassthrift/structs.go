package cassthrift

// Wire encoding of the API structs. Field ids follow the published
// cassandra.thrift interface definition for the 0.8 API generation; unknown
// fields read from newer servers are skipped.

import (
	"github.com/apache/thrift/lib/go/thrift"

	"github.com/kallaspriit/cassandra-go-client/pkg/cassandra"
)

func writeColumn(w *writer, c *cassandra.Column) {
	w.structBegin("Column")
	w.field("name", thrift.STRING, 1, func() { w.binary(c.Name) })
	w.field("value", thrift.STRING, 2, func() { w.binary(c.Value) })
	w.field("timestamp", thrift.I64, 3, func() { w.i64(c.Timestamp) })
	if c.TTL > 0 {
		w.field("ttl", thrift.I32, 4, func() { w.i32(c.TTL) })
	}
	w.structEnd()
}

func readColumn(r *reader) *cassandra.Column {
	c := &cassandra.Column{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			c.Name = r.binary()
		case 2:
			c.Value = r.binary()
		case 3:
			c.Timestamp = r.i64()
		case 4:
			c.TTL = r.i32()
		default:
			return false
		}
		return true
	})
	return c
}

func writeSuperColumn(w *writer, sc *cassandra.SuperColumn) {
	w.structBegin("SuperColumn")
	w.field("name", thrift.STRING, 1, func() { w.binary(sc.Name) })
	w.field("columns", thrift.LIST, 2, func() {
		w.listBegin(thrift.STRUCT, len(sc.Columns))
		for _, c := range sc.Columns {
			writeColumn(w, c)
		}
		w.listEnd()
	})
	w.structEnd()
}

func readSuperColumn(r *reader) *cassandra.SuperColumn {
	sc := &cassandra.SuperColumn{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			sc.Name = r.binary()
		case 2:
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				sc.Columns = append(sc.Columns, readColumn(r))
			}
			r.listEnd()
		default:
			return false
		}
		return true
	})
	return sc
}

func writeColumnOrSuperColumn(w *writer, cosc *cassandra.ColumnOrSuperColumn) {
	w.structBegin("ColumnOrSuperColumn")
	if cosc.Column != nil {
		w.field("column", thrift.STRUCT, 1, func() { writeColumn(w, cosc.Column) })
	}
	if cosc.SuperColumn != nil {
		w.field("super_column", thrift.STRUCT, 2, func() { writeSuperColumn(w, cosc.SuperColumn) })
	}
	w.structEnd()
}

func readColumnOrSuperColumn(r *reader) *cassandra.ColumnOrSuperColumn {
	cosc := &cassandra.ColumnOrSuperColumn{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			cosc.Column = readColumn(r)
		case 2:
			cosc.SuperColumn = readSuperColumn(r)
		default:
			return false
		}
		return true
	})
	return cosc
}

func readColumnOrSuperColumnList(r *reader) []*cassandra.ColumnOrSuperColumn {
	n := r.list()
	out := make([]*cassandra.ColumnOrSuperColumn, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, readColumnOrSuperColumn(r))
	}
	r.listEnd()
	return out
}

func writeColumnParent(w *writer, p cassandra.ColumnParent) {
	w.structBegin("ColumnParent")
	w.field("column_family", thrift.STRING, 3, func() { w.str(p.ColumnFamily) })
	if p.SuperColumn != nil {
		w.field("super_column", thrift.STRING, 4, func() { w.binary(p.SuperColumn) })
	}
	w.structEnd()
}

func writeColumnPath(w *writer, p cassandra.ColumnPath) {
	w.structBegin("ColumnPath")
	w.field("column_family", thrift.STRING, 3, func() { w.str(p.ColumnFamily) })
	if p.SuperColumn != nil {
		w.field("super_column", thrift.STRING, 4, func() { w.binary(p.SuperColumn) })
	}
	if p.Column != nil {
		w.field("column", thrift.STRING, 5, func() { w.binary(p.Column) })
	}
	w.structEnd()
}

func writeSlicePredicate(w *writer, p cassandra.SlicePredicate) {
	w.structBegin("SlicePredicate")
	if p.ColumnNames != nil {
		w.field("column_names", thrift.LIST, 1, func() {
			w.listBegin(thrift.STRING, len(p.ColumnNames))
			for _, name := range p.ColumnNames {
				w.binary(name)
			}
			w.listEnd()
		})
	}
	if p.SliceRange != nil {
		w.field("slice_range", thrift.STRUCT, 2, func() {
			sr := p.SliceRange
			w.structBegin("SliceRange")
			w.field("start", thrift.STRING, 1, func() { w.binary(sr.Start) })
			w.field("finish", thrift.STRING, 2, func() { w.binary(sr.Finish) })
			w.field("reversed", thrift.BOOL, 3, func() { w.boolean(sr.Reversed) })
			w.field("count", thrift.I32, 4, func() { w.i32(sr.Count) })
			w.structEnd()
		})
	}
	w.structEnd()
}

func writeKeyRange(w *writer, kr cassandra.KeyRange) {
	w.structBegin("KeyRange")
	if kr.StartToken != "" || kr.EndToken != "" {
		w.field("start_token", thrift.STRING, 3, func() { w.str(kr.StartToken) })
		w.field("end_token", thrift.STRING, 4, func() { w.str(kr.EndToken) })
	} else {
		w.field("start_key", thrift.STRING, 1, func() { w.binary(kr.StartKey) })
		w.field("end_key", thrift.STRING, 2, func() { w.binary(kr.EndKey) })
	}
	w.field("count", thrift.I32, 5, func() { w.i32(kr.Count) })
	w.structEnd()
}

func writeIndexClause(w *writer, ic cassandra.IndexClause) {
	w.structBegin("IndexClause")
	w.field("expressions", thrift.LIST, 1, func() {
		w.listBegin(thrift.STRUCT, len(ic.Expressions))
		for _, e := range ic.Expressions {
			w.structBegin("IndexExpression")
			w.field("column_name", thrift.STRING, 1, func() { w.binary(e.ColumnName) })
			w.field("op", thrift.I32, 2, func() { w.i32(int32(e.Op)) })
			w.field("value", thrift.STRING, 3, func() { w.binary(e.Value) })
			w.structEnd()
		}
		w.listEnd()
	})
	w.field("start_key", thrift.STRING, 2, func() { w.binary(ic.StartKey) })
	w.field("count", thrift.I32, 3, func() { w.i32(ic.Count) })
	w.structEnd()
}

func readKeySlice(r *reader) *cassandra.KeySlice {
	ks := &cassandra.KeySlice{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			ks.Key = r.binary()
		case 2:
			ks.Columns = readColumnOrSuperColumnList(r)
		default:
			return false
		}
		return true
	})
	return ks
}

func readKeySliceList(r *reader) []*cassandra.KeySlice {
	n := r.list()
	out := make([]*cassandra.KeySlice, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, readKeySlice(r))
	}
	r.listEnd()
	return out
}

func writeDeletion(w *writer, d *cassandra.Deletion) {
	w.structBegin("Deletion")
	w.field("timestamp", thrift.I64, 1, func() { w.i64(d.Timestamp) })
	if d.SuperColumn != nil {
		w.field("super_column", thrift.STRING, 2, func() { w.binary(d.SuperColumn) })
	}
	if d.Predicate != nil {
		w.field("predicate", thrift.STRUCT, 3, func() { writeSlicePredicate(w, *d.Predicate) })
	}
	w.structEnd()
}

func writeMutation(w *writer, m *cassandra.Mutation) {
	w.structBegin("Mutation")
	if m.ColumnOrSuperColumn != nil {
		w.field("column_or_supercolumn", thrift.STRUCT, 1, func() { writeColumnOrSuperColumn(w, m.ColumnOrSuperColumn) })
	}
	if m.Deletion != nil {
		w.field("deletion", thrift.STRUCT, 2, func() { writeDeletion(w, m.Deletion) })
	}
	w.structEnd()
}

func writeMutationMap(w *writer, mm cassandra.MutationMap) {
	w.mapBegin(thrift.STRING, thrift.MAP, len(mm))
	for key, families := range mm {
		w.binary([]byte(key))
		w.mapBegin(thrift.STRING, thrift.LIST, len(families))
		for family, mutations := range families {
			w.str(family)
			w.listBegin(thrift.STRUCT, len(mutations))
			for _, m := range mutations {
				writeMutation(w, m)
			}
			w.listEnd()
		}
		w.mapEnd()
	}
	w.mapEnd()
}

func readTokenRange(r *reader) *cassandra.TokenRange {
	tr := &cassandra.TokenRange{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			tr.StartToken = r.str()
		case 2:
			tr.EndToken = r.str()
		case 3:
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				tr.Endpoints = append(tr.Endpoints, r.str())
			}
			r.listEnd()
		default:
			return false
		}
		return true
	})
	return tr
}

func writeColumnDef(w *writer, cd *cassandra.ColumnDef) {
	w.structBegin("ColumnDef")
	w.field("name", thrift.STRING, 1, func() { w.binary(cd.Name) })
	w.field("validation_class", thrift.STRING, 2, func() { w.str(cd.ValidationClass) })
	if cd.Indexed {
		// KEYS is the only index type in this API generation.
		w.field("index_type", thrift.I32, 3, func() { w.i32(0) })
		if cd.IndexName != "" {
			w.field("index_name", thrift.STRING, 4, func() { w.str(cd.IndexName) })
		}
	}
	w.structEnd()
}

func readColumnDef(r *reader) *cassandra.ColumnDef {
	cd := &cassandra.ColumnDef{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			cd.Name = r.binary()
		case 2:
			cd.ValidationClass = r.str()
		case 3:
			r.i32()
			cd.Indexed = true
		case 4:
			cd.IndexName = r.str()
		default:
			return false
		}
		return true
	})
	return cd
}

func writeCfDef(w *writer, cf *cassandra.CfDef) {
	w.structBegin("CfDef")
	w.field("keyspace", thrift.STRING, 1, func() { w.str(cf.Keyspace) })
	w.field("name", thrift.STRING, 2, func() { w.str(cf.Name) })
	if cf.ColumnType != "" {
		w.field("column_type", thrift.STRING, 3, func() { w.str(cf.ColumnType) })
	}
	if cf.ComparatorType != "" {
		w.field("comparator_type", thrift.STRING, 5, func() { w.str(cf.ComparatorType) })
	}
	if cf.SubcomparatorType != "" {
		w.field("subcomparator_type", thrift.STRING, 6, func() { w.str(cf.SubcomparatorType) })
	}
	if cf.Comment != "" {
		w.field("comment", thrift.STRING, 8, func() { w.str(cf.Comment) })
	}
	if len(cf.ColumnMetadata) > 0 {
		w.field("column_metadata", thrift.LIST, 13, func() {
			w.listBegin(thrift.STRUCT, len(cf.ColumnMetadata))
			for _, cd := range cf.ColumnMetadata {
				writeColumnDef(w, cd)
			}
			w.listEnd()
		})
	}
	if cf.DefaultValidationClass != "" {
		w.field("default_validation_class", thrift.STRING, 15, func() { w.str(cf.DefaultValidationClass) })
	}
	if cf.KeyValidationClass != "" {
		w.field("key_validation_class", thrift.STRING, 26, func() { w.str(cf.KeyValidationClass) })
	}
	w.structEnd()
}

func readCfDef(r *reader) *cassandra.CfDef {
	cf := &cassandra.CfDef{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			cf.Keyspace = r.str()
		case 2:
			cf.Name = r.str()
		case 3:
			cf.ColumnType = r.str()
		case 5:
			cf.ComparatorType = r.str()
		case 6:
			cf.SubcomparatorType = r.str()
		case 8:
			cf.Comment = r.str()
		case 13:
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				cf.ColumnMetadata = append(cf.ColumnMetadata, readColumnDef(r))
			}
			r.listEnd()
		case 15:
			cf.DefaultValidationClass = r.str()
		case 26:
			cf.KeyValidationClass = r.str()
		default:
			return false
		}
		return true
	})
	return cf
}

func writeKsDef(w *writer, ks *cassandra.KsDef) {
	w.structBegin("KsDef")
	w.field("name", thrift.STRING, 1, func() { w.str(ks.Name) })
	w.field("strategy_class", thrift.STRING, 2, func() { w.str(ks.StrategyClass) })
	if len(ks.StrategyOptions) > 0 {
		w.field("strategy_options", thrift.MAP, 3, func() {
			w.mapBegin(thrift.STRING, thrift.STRING, len(ks.StrategyOptions))
			for k, v := range ks.StrategyOptions {
				w.str(k)
				w.str(v)
			}
			w.mapEnd()
		})
	}
	if ks.ReplicationFactor > 0 {
		w.field("replication_factor", thrift.I32, 4, func() { w.i32(ks.ReplicationFactor) })
	}
	w.field("cf_defs", thrift.LIST, 5, func() {
		w.listBegin(thrift.STRUCT, len(ks.CfDefs))
		for _, cf := range ks.CfDefs {
			writeCfDef(w, cf)
		}
		w.listEnd()
	})
	w.field("durable_writes", thrift.BOOL, 6, func() { w.boolean(ks.DurableWrites) })
	w.structEnd()
}

func readKsDef(r *reader) *cassandra.KsDef {
	ks := &cassandra.KsDef{}
	r.fields(func(typ thrift.TType, id int16) bool {
		switch id {
		case 1:
			ks.Name = r.str()
		case 2:
			ks.StrategyClass = r.str()
		case 3:
			n := r.mapHeader()
			ks.StrategyOptions = make(map[string]string, n)
			for i := 0; i < n && r.err == nil; i++ {
				k := r.str()
				ks.StrategyOptions[k] = r.str()
			}
			r.mapEnd()
		case 4:
			ks.ReplicationFactor = r.i32()
		case 5:
			n := r.list()
			for i := 0; i < n && r.err == nil; i++ {
				ks.CfDefs = append(ks.CfDefs, readCfDef(r))
			}
			r.listEnd()
		case 6:
			ks.DurableWrites = r.boolean()
		default:
			return false
		}
		return true
	})
	return ks
}
