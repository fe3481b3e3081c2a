package common

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrShortBuffer = errors.New("short buffer")
	ErrOverflow    = errors.New("varint overflows 64 bits")
)

// MaxVarintLen is the longest a 64-bit varint can be.
const MaxVarintLen = 10

// WriteVarUint appends a varint to buf.
func WriteVarUint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
func ReadVarUint(b []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == MaxVarintLen {
			return 0, 0, ErrOverflow
		}
		if i == MaxVarintLen-1 && c > 1 {
			return 0, 0, ErrOverflow
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1, nil
		}
		s += 7
	}
	return 0, 0, ErrShortBuffer
}

// Zigzag keeps small negative numbers small on the wire.
func Zigzag(v int64) uint64 { return uint64(v<<1) ^ uint64(v>>63) }

func Unzigzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

func WriteVarInt(buf []byte, v int64) []byte {
	return WriteVarUint(buf, Zigzag(v))
}

func ReadVarInt(b []byte) (int64, int, error) {
	u, n, err := ReadVarUint(b)
	if err != nil {
		return 0, 0, err
	}
	return Unzigzag(u), n, nil
}

// WriteFloat64 appends v as 8 little-endian bytes.
func WriteFloat64(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
}

// WriteFloat32 narrows v and appends it as 4 little-endian bytes.
func WriteFloat32(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
}

func ReadFloat64(b []byte) (float64, error) {
	if len(b) < 8 {
		return 0, ErrShortBuffer
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func ReadFloat32(b []byte) (float64, error) {
	if len(b) < 4 {
		return 0, ErrShortBuffer
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
}

// PackBools writes vs as a bitmap, least significant bit first.
func PackBools(buf []byte, vs []bool) []byte {
	var cur byte
	for i, v := range vs {
		if v {
			cur |= 1 << (i % 8)
		}
		if i%8 == 7 {
			buf = append(buf, cur)
			cur = 0
		}
	}
	if len(vs)%8 != 0 {
		buf = append(buf, cur)
	}
	return buf
}

// UnpackBools reads n bits written by PackBools.
func UnpackBools(b []byte, n int) ([]bool, int, error) {
	size := PackedSize(n)
	if len(b) < size {
		return nil, 0, ErrShortBuffer
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = b[i/8]&(1<<(i%8)) != 0
	}
	return out, size, nil
}

func PackedSize(n int) int { return (n + 7) / 8 }
