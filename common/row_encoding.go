package common

import (
	"github.com/squareup/lazyrows/errors"
)

// EncodeRow appends row to buffer as a column count followed by one type tagged cell per column.
func EncodeRow(row *Row, buffer []byte) []byte {
	buffer = AppendUint32ToBufferLE(buffer, uint32(row.ColCount()))
	for _, v := range row.vals {
		buffer = append(buffer, byte(TypeOf(v)))
		switch tv := v.(type) {
		case nil:
		case int64:
			buffer = AppendUint64ToBufferLE(buffer, uint64(tv))
		case float64:
			buffer = AppendFloat64ToBufferLE(buffer, tv)
		case string:
			buffer = AppendBytesToBufferLE(buffer, []byte(tv))
		case []byte:
			buffer = AppendBytesToBufferLE(buffer, tv)
		}
	}
	return buffer
}

func DecodeRow(buffer []byte) (row Row, err error) {
	defer func() {
		// a truncated buffer panics in the readers below
		if r := recover(); r != nil {
			err = errors.Errorf("corrupt row encoding: %v", r)
		}
	}()
	numCols, offset := ReadUint32FromBufferLE(buffer, 0)
	vals := make([]interface{}, numCols)
	for i := range vals {
		t := Type(buffer[offset])
		offset++
		switch t {
		case TypeNull:
			vals[i] = nil
		case TypeBigInt:
			var u uint64
			u, offset = ReadUint64FromBufferLE(buffer, offset)
			vals[i] = int64(u)
		case TypeDouble:
			vals[i], offset = ReadFloat64FromBufferLE(buffer, offset)
		case TypeVarchar:
			var b []byte
			b, offset = ReadBytesFromBufferLE(buffer, offset)
			vals[i] = string(b)
		case TypeBlob:
			vals[i], offset = ReadBytesFromBufferLE(buffer, offset)
		default:
			return Row{}, errors.Errorf("unexpected cell type %d", t)
		}
	}
	if offset != len(buffer) {
		return Row{}, errors.Errorf("trailing %d bytes after row", len(buffer)-offset)
	}
	return Row{vals: vals}, nil
}
