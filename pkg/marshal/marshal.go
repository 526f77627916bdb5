// Package marshal converts between Go values and the binary representation
// Cassandra comparator/validator classes expect. It is pure and stateless;
// type information is carried as a TypeTag resolved from the column family
// schema.
package marshal

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TypeTag names a Cassandra marshal class, without the Java package prefix.
type TypeTag string

const (
	BytesType       TypeTag = "BytesType"
	AsciiType       TypeTag = "AsciiType"
	UTF8Type        TypeTag = "UTF8Type"
	LongType        TypeTag = "LongType"
	IntegerType     TypeTag = "IntegerType"
	BooleanType     TypeTag = "BooleanType"
	FloatType       TypeTag = "FloatType"
	DoubleType      TypeTag = "DoubleType"
	DateType        TypeTag = "DateType"
	UUIDType        TypeTag = "UUIDType"
	TimeUUIDType    TypeTag = "TimeUUIDType"
	LexicalUUIDType TypeTag = "LexicalUUIDType"
)

const classPrefix = "org.apache.cassandra.db.marshal."

// Normalize maps a fully qualified validation class name, as returned by
// describe_keyspace, to a TypeTag. Unknown classes degrade to BytesType so
// values still round-trip as raw bytes.
func Normalize(validationClass string) TypeTag {
	name := strings.TrimPrefix(validationClass, classPrefix)
	// Parameterized types such as ReversedType(LongType) keep their inner tag.
	if i := strings.IndexByte(name, '('); i >= 0 {
		inner := strings.TrimSuffix(name[i+1:], ")")
		return Normalize(inner)
	}
	switch TypeTag(name) {
	case AsciiType, UTF8Type, LongType, IntegerType, BooleanType,
		FloatType, DoubleType, DateType, UUIDType, TimeUUIDType, LexicalUUIDType:
		return TypeTag(name)
	}
	return BytesType
}

// Pack encodes a Go value for the given comparator type.
func Pack(v interface{}, t TypeTag) ([]byte, error) {
	switch t {
	case BytesType:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
		return nil, errors.Errorf("marshal: cannot pack %T as %s", v, t)

	case AsciiType, UTF8Type:
		switch x := v.(type) {
		case string:
			return []byte(x), nil
		case []byte:
			return x, nil
		}
		return nil, errors.Errorf("marshal: cannot pack %T as %s", v, t)

	case LongType:
		n, err := toInt64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal: packing %s", t)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return buf, nil

	case IntegerType:
		n, err := toInt64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal: packing %s", t)
		}
		return packVarint(n), nil

	case BooleanType:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.Errorf("marshal: cannot pack %T as %s", v, t)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case FloatType:
		f, err := toFloat64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal: packing %s", t)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(f)))
		return buf, nil

	case DoubleType:
		f, err := toFloat64(v)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal: packing %s", t)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil

	case DateType:
		ts, ok := v.(time.Time)
		if !ok {
			return nil, errors.Errorf("marshal: cannot pack %T as %s", v, t)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(ts.UnixMilli()))
		return buf, nil

	case UUIDType, TimeUUIDType, LexicalUUIDType:
		switch x := v.(type) {
		case uuid.UUID:
			b := x // copy
			return b[:], nil
		case string:
			u, err := uuid.Parse(x)
			if err != nil {
				return nil, errors.Wrap(err, "marshal: packing uuid")
			}
			return u[:], nil
		case []byte:
			if len(x) != 16 {
				return nil, errors.Errorf("marshal: uuid must be 16 bytes, got %d", len(x))
			}
			return x, nil
		}
		return nil, errors.Errorf("marshal: cannot pack %T as %s", v, t)
	}
	return nil, errors.Errorf("marshal: unknown type tag %q", t)
}

// Unpack decodes bytes produced for the given comparator type.
func Unpack(b []byte, t TypeTag) (interface{}, error) {
	switch t {
	case BytesType:
		return b, nil

	case AsciiType, UTF8Type:
		return string(b), nil

	case LongType:
		if len(b) != 8 {
			return nil, errors.Errorf("marshal: %s needs 8 bytes, got %d", t, len(b))
		}
		return int64(binary.BigEndian.Uint64(b)), nil

	case IntegerType:
		return unpackVarint(b)

	case BooleanType:
		if len(b) != 1 {
			return nil, errors.Errorf("marshal: %s needs 1 byte, got %d", t, len(b))
		}
		return b[0] != 0, nil

	case FloatType:
		if len(b) != 4 {
			return nil, errors.Errorf("marshal: %s needs 4 bytes, got %d", t, len(b))
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil

	case DoubleType:
		if len(b) != 8 {
			return nil, errors.Errorf("marshal: %s needs 8 bytes, got %d", t, len(b))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil

	case DateType:
		if len(b) != 8 {
			return nil, errors.Errorf("marshal: %s needs 8 bytes, got %d", t, len(b))
		}
		return time.UnixMilli(int64(binary.BigEndian.Uint64(b))).UTC(), nil

	case UUIDType, TimeUUIDType, LexicalUUIDType:
		u, err := uuid.FromBytes(b)
		if err != nil {
			return nil, errors.Wrap(err, "marshal: unpacking uuid")
		}
		return u, nil
	}
	return nil, errors.Errorf("marshal: unknown type tag %q", t)
}

// NewTimeUUID returns a version 1 UUID for TimeUUIDType columns.
func NewTimeUUID() (uuid.UUID, error) {
	u, err := uuid.NewUUID()
	return u, errors.Wrap(err, "marshal: generating time uuid")
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", v)
}

// packVarint encodes a two's-complement big-endian integer using the fewest
// bytes that preserve the sign, matching IntegerType.
func packVarint(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	// Strip redundant leading bytes: 0x00 before a clear sign bit, 0xff
	// before a set one.
	i := 0
	for i < 7 {
		if buf[i] == 0x00 && buf[i+1]&0x80 == 0 {
			i++
			continue
		}
		if buf[i] == 0xff && buf[i+1]&0x80 != 0 {
			i++
			continue
		}
		break
	}
	return buf[i:]
}

func unpackVarint(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("marshal: empty IntegerType value")
	}
	if len(b) > 8 {
		return 0, errors.Errorf("marshal: IntegerType value of %d bytes overflows int64", len(b))
	}
	var n int64
	if b[0]&0x80 != 0 {
		n = -1
	}
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n, nil
}
