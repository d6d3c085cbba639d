package fitscan

import (
	"encoding/binary"
	"math"
)

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

var baseSizes = map[baseType]int{
	baseEnum:    1,
	baseSint8:   1,
	baseUint8:   1,
	baseSint16:  2,
	baseUint16:  2,
	baseSint32:  4,
	baseUint32:  4,
	baseString:  1,
	baseFloat32: 4,
	baseFloat64: 8,
	baseUint8z:  1,
	baseUint16z: 2,
	baseUint32z: 4,
	baseByte:    1,
	baseSint64:  8,
	baseUint64:  8,
	baseUint64z: 8,
}

// decompressBaseType maps the low five bits of a base type byte to the
// canonical endian-flagged value.
func decompressBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

// decodeNumber decodes one element and reports whether it holds the
// base type's invalid sentinel.
func decodeNumber(raw []byte, bt baseType, arch binary.ByteOrder) (float64, bool) {
	switch bt {
	case baseEnum, baseUint8, baseByte:
		return float64(raw[0]), raw[0] == 0xFF
	case baseSint8:
		v := int8(raw[0])
		return float64(v), v == int8(0x7F)
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return float64(v), v == int16(0x7FFF)
	case baseUint16:
		v := arch.Uint16(raw)
		return float64(v), v == 0xFFFF
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return float64(v), v == int32(0x7FFFFFFF)
	case baseUint32:
		v := arch.Uint32(raw)
		return float64(v), v == 0xFFFFFFFF
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits == 0xFFFFFFFF
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits == 0xFFFFFFFFFFFFFFFF
	case baseUint8z:
		return float64(raw[0]), raw[0] == 0x00
	case baseUint16z:
		v := arch.Uint16(raw)
		return float64(v), v == 0
	case baseUint32z:
		v := arch.Uint32(raw)
		return float64(v), v == 0
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return float64(v), v == int64(0x7FFFFFFFFFFFFFFF)
	case baseUint64:
		v := arch.Uint64(raw)
		return float64(v), v == 0xFFFFFFFFFFFFFFFF
	case baseUint64z:
		v := arch.Uint64(raw)
		return float64(v), v == 0
	default:
		return 0, true
	}
}

func decodeNullTerminatedString(raw []byte) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] == 0x00 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
