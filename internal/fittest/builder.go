// Package fittest assembles small FIT files byte by byte, including
// developer fields and compressed timestamp headers. It is only intended for
// use in tests.
package fittest

import (
	"bytes"
	"encoding/binary"

	"github.com/tormoder/fit/dyncrc16"
)

// FIT base type bytes.
const (
	Enum    byte = 0x00
	Sint8   byte = 0x01
	Uint8   byte = 0x02
	Sint16  byte = 0x83
	Uint16  byte = 0x84
	Sint32  byte = 0x85
	Uint32  byte = 0x86
	String  byte = 0x07
	Float32 byte = 0x88
)

// FieldDef is a standard field definition.
type FieldDef struct {
	Num  byte
	Size byte
	Base byte
}

// DevFieldDef is a developer field definition.
type DevFieldDef struct {
	Num      byte
	Size     byte
	DevIndex byte
}

// Builder accumulates little-endian FIT messages.
type Builder struct {
	data bytes.Buffer
}

// Define writes a definition message for a local message type.
func (b *Builder) Define(local byte, global uint16, fields []FieldDef, dev []DevFieldDef) {
	header := 0x40 | (local & 0x0F)
	if len(dev) > 0 {
		header |= 0x20
	}
	b.data.WriteByte(header)
	b.data.WriteByte(0) // reserved
	b.data.WriteByte(0) // little endian
	b.data.Write(U16(global))
	b.data.WriteByte(byte(len(fields)))
	for _, f := range fields {
		b.data.Write([]byte{f.Num, f.Size, f.Base})
	}
	if len(dev) > 0 {
		b.data.WriteByte(byte(len(dev)))
		for _, d := range dev {
			b.data.Write([]byte{d.Num, d.Size, d.DevIndex})
		}
	}
}

// Data writes a normal-header data message.
func (b *Builder) Data(local byte, values ...[]byte) {
	b.data.WriteByte(local & 0x0F)
	for _, v := range values {
		b.data.Write(v)
	}
}

// Compressed writes a compressed-timestamp data message.
func (b *Builder) Compressed(local byte, offset byte, values ...[]byte) {
	b.data.WriteByte(0x80 | (local&0x03)<<5 | (offset & 0x1F))
	for _, v := range values {
		b.data.Write(v)
	}
}

// Bytes returns the complete file: 14-byte header, messages, file CRC.
func (b *Builder) Bytes() []byte {
	body := b.data.Bytes()
	header := make([]byte, 14)
	header[0] = 14
	header[1] = 0x20
	binary.LittleEndian.PutUint16(header[2:4], 2132)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))
	copy(header[8:12], ".FIT")
	binary.LittleEndian.PutUint16(header[12:14], dyncrc16.Checksum(header[:12]))

	out := make([]byte, 0, len(header)+len(body)+2)
	out = append(out, header...)
	out = append(out, body...)
	return append(out, U16(dyncrc16.Checksum(out))...)
}

// U8 encodes a uint8.
func U8(v uint8) []byte { return []byte{v} }

// S8 encodes an int8.
func S8(v int8) []byte { return []byte{byte(v)} }

// U16 encodes a little-endian uint16.
func U16(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

// S16 encodes a little-endian int16.
func S16(v int16) []byte { return U16(uint16(v)) }

// U32 encodes a little-endian uint32.
func U32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

// Str encodes s as a null-padded string field of the given size.
func Str(s string, size int) []byte {
	out := make([]byte, size)
	copy(out, s)
	return out
}
