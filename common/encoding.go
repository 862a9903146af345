package common

import (
	"encoding/binary"
	"math"
)

var littleEndian = binary.LittleEndian
var bigEndian = binary.BigEndian

func AppendUint32ToBufferLE(buffer []byte, v uint32) []byte {
	return append(buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func AppendUint64ToBufferLE(buffer []byte, v uint64) []byte {
	return append(buffer, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), byte(v>>32),
		byte(v>>40), byte(v>>48), byte(v>>56))
}

func AppendUint64ToBufferBE(buffer []byte, v uint64) []byte {
	return append(buffer, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func AppendFloat64ToBufferLE(buffer []byte, value float64) []byte {
	return AppendUint64ToBufferLE(buffer, math.Float64bits(value))
}

func AppendBytesToBufferLE(buffer []byte, value []byte) []byte {
	buffer = AppendUint32ToBufferLE(buffer, uint32(len(value)))
	return append(buffer, value...)
}

func ReadUint32FromBufferLE(buffer []byte, offset int) (uint32, int) {
	return littleEndian.Uint32(buffer[offset:]), offset + 4
}

func ReadUint64FromBufferLE(buffer []byte, offset int) (uint64, int) {
	return littleEndian.Uint64(buffer[offset:]), offset + 8
}

func ReadUint64FromBufferBE(buffer []byte, offset int) (uint64, int) {
	return bigEndian.Uint64(buffer[offset:]), offset + 8
}

func ReadFloat64FromBufferLE(buffer []byte, offset int) (float64, int) {
	u, off := ReadUint64FromBufferLE(buffer, offset)
	return math.Float64frombits(u), off
}

// ReadBytesFromBufferLE returns a copy of a length prefixed byte string.
func ReadBytesFromBufferLE(buffer []byte, offset int) ([]byte, int) {
	l, offset := ReadUint32FromBufferLE(buffer, offset)
	end := offset + int(l)
	res := make([]byte, l)
	copy(res, buffer[offset:end])
	return res, end
}
