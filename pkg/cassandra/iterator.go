package cassandra

import (
	"bytes"
)

// Columns maps column name to value for one row of a standard family.
type Columns map[string][]byte

// SuperColumns maps super column name to its sub-columns.
type SuperColumns map[string]Columns

// Row is the data of one key. Exactly one of the two members is non-nil,
// decided by the column family definition rather than inferred per value.
type Row struct {
	Columns      Columns
	SuperColumns SuperColumns
}

// Empty reports whether the row carries no columns at all, which is how the
// backend represents a tombstoned key inside a range.
func (r Row) Empty() bool {
	return len(r.Columns) == 0 && len(r.SuperColumns) == 0
}

// Entry is one (key, row) pair in iteration order.
type Entry struct {
	Key []byte
	Row Row
}

// fetchFunc retrieves one page of rows starting at the inclusive start key.
// The two concrete strategies re-issue either an indexed-clause scan or a
// key-range scan; nothing else differs between them.
type fetchFunc func(startKey []byte, count int32) ([]*KeySlice, error)

const (
	iterUnstarted = iota
	iterActive
	iterExhausted
)

// RowIterator walks a server-paginated result set one row at a time,
// fetching pages on demand. The server only supports inclusive range
// starts, so each page after the first begins with a repeat of the last row
// already seen; the iterator drops that boundary row and skips tombstones,
// yielding each logical row exactly once.
//
// Usage follows the scanner pattern:
//
//	for it.Next() {
//	    key, row := it.At()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
//
// A RowIterator is single-pass and not safe for concurrent use. After Err
// reports a fetch failure the iterator stays exhausted; it never resumes
// mid-scan.
type RowIterator struct {
	fetch    fetchFunc
	decode   func(*KeySlice) Row
	startKey []byte
	pageSize int32
	rowLimit int32 // 0 means no cap

	state    int
	page     []Entry
	cursor   []byte // last raw key of the previous fetch, next inclusive start
	pageFull bool   // previous fetch returned as many rows as requested
	first    bool
	seen     int32
	cur      Entry
	err      error
}

func newRowIterator(fetch fetchFunc, decode func(*KeySlice) Row, startKey []byte, pageSize, rowLimit int32) *RowIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	it := &RowIterator{
		fetch:    fetch,
		decode:   decode,
		startKey: startKey,
		pageSize: pageSize,
		rowLimit: rowLimit,
	}
	it.Rewind()
	return it
}

// Rewind resets the iterator to the initial start key, discarding any error
// and buffered page.
func (it *RowIterator) Rewind() {
	it.state = iterUnstarted
	it.page = nil
	it.cursor = it.startKey
	it.pageFull = false
	it.first = true
	it.seen = 0
	it.cur = Entry{}
	it.err = nil
}

// Next advances to the next row, fetching a new page when the buffered one
// is spent. It returns false at end of data or on error; check Err.
func (it *RowIterator) Next() bool {
	if it.err != nil || it.state == iterExhausted {
		return false
	}
	if it.state == iterUnstarted {
		it.state = iterActive
		if !it.fetchPage() {
			it.state = iterExhausted
			return false
		}
	}

	for {
		if it.rowLimit > 0 && it.seen >= it.rowLimit {
			it.state = iterExhausted
			return false
		}
		if len(it.page) == 0 {
			// A short page is the unambiguous end-of-data signal. A full
			// page that yielded nothing after dropping the boundary row can
			// only repeat itself, so it ends iteration too instead of
			// refetching forever.
			if !it.pageFull || !it.fetchPage() || len(it.page) == 0 {
				it.state = iterExhausted
				return false
			}
		}

		e := it.page[0]
		it.page = it.page[1:]
		if e.Row.Empty() {
			continue // tombstone, never yielded
		}
		it.cur = e
		it.seen++
		return true
	}
}

// At returns the current row. Only valid after Next returned true.
func (it *RowIterator) At() ([]byte, Row) {
	return it.cur.Key, it.cur.Row
}

// Err returns the first fetch error, if any.
func (it *RowIterator) Err() error {
	return it.err
}

// GetAll rewinds and drains the whole result set into an ordered slice. Use
// only when the result is known to be small; large scans should iterate.
func (it *RowIterator) GetAll() ([]Entry, error) {
	it.Rewind()
	var all []Entry
	for it.Next() {
		key, row := it.At()
		all = append(all, Entry{Key: key, Row: row})
	}
	return all, it.Err()
}

// fetchPage retrieves the next page into the buffer. Reports false on fetch
// error; the error is latched in it.err.
func (it *RowIterator) fetchPage() bool {
	count := it.pageSize
	if it.rowLimit > 0 {
		// The +1 leaves room for the repeated boundary row.
		if remaining := it.rowLimit - it.seen + 1; remaining < count {
			count = remaining
		}
	}

	raw, err := it.fetch(it.cursor, count)
	if err != nil {
		it.err = err
		return false
	}
	it.pageFull = int32(len(raw)) == count

	entries := make([]Entry, 0, len(raw))
	for i, ks := range raw {
		if i == 0 && !it.first && bytes.Equal(ks.Key, it.cursor) {
			continue // inclusive-start overlap with the previous page
		}
		entries = append(entries, Entry{Key: ks.Key, Row: it.decode(ks)})
	}
	if len(raw) > 0 {
		it.cursor = raw[len(raw)-1].Key
	}
	it.first = false
	it.page = entries
	return true
}

// decodeStandard converts a raw slice into a standard row. Sub-entries that
// are not plain columns are ignored rather than guessed at.
func decodeStandard(ks *KeySlice) Row {
	cols := make(Columns, len(ks.Columns))
	for _, cosc := range ks.Columns {
		if cosc.Column != nil {
			cols[string(cosc.Column.Name)] = cosc.Column.Value
		}
	}
	return Row{Columns: cols}
}

// decodeSuper converts a raw slice into a super-column row.
func decodeSuper(ks *KeySlice) Row {
	super := make(SuperColumns, len(ks.Columns))
	for _, cosc := range ks.Columns {
		if cosc.SuperColumn == nil {
			continue
		}
		sub := make(Columns, len(cosc.SuperColumn.Columns))
		for _, col := range cosc.SuperColumn.Columns {
			sub[string(col.Name)] = col.Value
		}
		super[string(cosc.SuperColumn.Name)] = sub
	}
	return Row{SuperColumns: super}
}
