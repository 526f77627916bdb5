package cassthrift

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// writer wraps a TProtocol with a sticky error so struct encoders read as a
// flat sequence of field writes.
type writer struct {
	ctx context.Context
	p   thrift.TProtocol
	err error
}

func (w *writer) structBegin(name string) {
	if w.err == nil {
		w.err = w.p.WriteStructBegin(w.ctx, name)
	}
}

func (w *writer) structEnd() {
	if w.err == nil {
		w.err = w.p.WriteFieldStop(w.ctx)
	}
	if w.err == nil {
		w.err = w.p.WriteStructEnd(w.ctx)
	}
}

func (w *writer) fieldBegin(name string, typ thrift.TType, id int16) {
	if w.err == nil {
		w.err = w.p.WriteFieldBegin(w.ctx, name, typ, id)
	}
}

func (w *writer) fieldEnd() {
	if w.err == nil {
		w.err = w.p.WriteFieldEnd(w.ctx)
	}
}

func (w *writer) binary(v []byte) {
	if w.err == nil {
		w.err = w.p.WriteBinary(w.ctx, v)
	}
}

func (w *writer) str(v string) {
	if w.err == nil {
		w.err = w.p.WriteString(w.ctx, v)
	}
}

func (w *writer) i32(v int32) {
	if w.err == nil {
		w.err = w.p.WriteI32(w.ctx, v)
	}
}

func (w *writer) i64(v int64) {
	if w.err == nil {
		w.err = w.p.WriteI64(w.ctx, v)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.p.WriteBool(w.ctx, v)
	}
}

func (w *writer) listBegin(elem thrift.TType, size int) {
	if w.err == nil {
		w.err = w.p.WriteListBegin(w.ctx, elem, size)
	}
}

func (w *writer) listEnd() {
	if w.err == nil {
		w.err = w.p.WriteListEnd(w.ctx)
	}
}

func (w *writer) mapBegin(key, value thrift.TType, size int) {
	if w.err == nil {
		w.err = w.p.WriteMapBegin(w.ctx, key, value, size)
	}
}

func (w *writer) mapEnd() {
	if w.err == nil {
		w.err = w.p.WriteMapEnd(w.ctx)
	}
}

// field writes one optional-style field: begin, body, end.
func (w *writer) field(name string, typ thrift.TType, id int16, body func()) {
	w.fieldBegin(name, typ, id)
	body()
	w.fieldEnd()
}

// reader wraps a TProtocol for struct decoding. Decoders drive the field
// loop themselves via fields().
type reader struct {
	ctx context.Context
	p   thrift.TProtocol
	err error
}

// fields iterates a struct's fields, invoking the callback for each; the
// callback returns false to have the field skipped.
func (r *reader) fields(decode func(typ thrift.TType, id int16) bool) {
	if r.err != nil {
		return
	}
	if _, r.err = r.p.ReadStructBegin(r.ctx); r.err != nil {
		return
	}
	for {
		_, typ, id, err := r.p.ReadFieldBegin(r.ctx)
		if err != nil {
			r.err = err
			return
		}
		if typ == thrift.STOP {
			break
		}
		if !decode(typ, id) {
			r.skip(typ)
		}
		if r.err != nil {
			return
		}
		if r.err = r.p.ReadFieldEnd(r.ctx); r.err != nil {
			return
		}
	}
	r.err = r.p.ReadStructEnd(r.ctx)
}

func (r *reader) skip(typ thrift.TType) {
	if r.err == nil {
		r.err = r.p.Skip(r.ctx, typ)
	}
}

func (r *reader) binary() []byte {
	if r.err != nil {
		return nil
	}
	v, err := r.p.ReadBinary(r.ctx)
	r.err = err
	return v
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.p.ReadString(r.ctx)
	r.err = err
	return v
}

func (r *reader) i32() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.ReadI32(r.ctx)
	r.err = err
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.ReadI64(r.ctx)
	r.err = err
	return v
}

func (r *reader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.p.ReadBool(r.ctx)
	r.err = err
	return v
}

func (r *reader) list() int {
	if r.err != nil {
		return 0
	}
	_, size, err := r.p.ReadListBegin(r.ctx)
	r.err = err
	return size
}

func (r *reader) listEnd() {
	if r.err == nil {
		r.err = r.p.ReadListEnd(r.ctx)
	}
}

func (r *reader) mapHeader() int {
	if r.err != nil {
		return 0
	}
	_, _, size, err := r.p.ReadMapBegin(r.ctx)
	r.err = err
	return size
}

func (r *reader) mapEnd() {
	if r.err == nil {
		r.err = r.p.ReadMapEnd(r.ctx)
	}
}
