// Package fitscan walks the definition and data messages of a FIT file and
// exposes raw field values, including developer (Connect IQ) fields that
// typed decoders drop.
package fitscan

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tormoder/fit/dyncrc16"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14

	fieldNumTimestamp = 253
)

// Global message numbers used by this package and its callers.
const (
	MesgNumLap              uint16 = 19
	MesgNumRecord           uint16 = 20
	MesgNumSession          uint16 = 18
	MesgNumFieldDescription uint16 = 206
	MesgNumDeveloperDataID  uint16 = 207
)

// Field is one raw standard field of a data message.
type Field struct {
	Num  uint8
	Raw  []byte
	base baseType
	arch binary.ByteOrder
}

// Float decodes the first element of the field. ok is false for invalid
// sentinels, strings and undecodable sizes.
func (f Field) Float() (float64, bool) {
	return decodeRaw(f.Raw, f.base, f.arch)
}

// String decodes a string field.
func (f Field) String() string {
	return decodeNullTerminatedString(f.Raw)
}

// DevField is one raw developer field of a data message.
type DevField struct {
	Num      uint8
	DevIndex uint8
	Raw      []byte
	arch     binary.ByteOrder
}

// Message is one decoded data message.
type Message struct {
	Global uint16
	// Timestamp is the raw FIT timestamp (seconds since 1989-12-31 UTC),
	// taken from field 253 or reconstructed from a compressed header.
	Timestamp uint32
	Fields    map[uint8]Field
	DevFields []DevField
}

// Time converts the raw timestamp to UTC. ok is false when the message has none.
func (m Message) Time() (time.Time, bool) {
	if m.Timestamp == 0 {
		return time.Time{}, false
	}
	return TimestampToUTC(m.Timestamp), true
}

// Float returns the first element of a standard field.
func (m Message) Float(num uint8) (float64, bool) {
	f, ok := m.Fields[num]
	if !ok {
		return 0, false
	}
	return f.Float()
}

// Scaled returns a standard field divided by scale.
func (m Message) Scaled(num uint8, scale float64) (float64, bool) {
	v, ok := m.Float(num)
	if !ok || scale == 0 {
		return 0, false
	}
	return v / scale, true
}

// File is the scan result of a FIT file.
type File struct {
	ProtocolVersion uint8
	ProfileVersion  uint16
	FileCRCValid    bool
	Messages        []Message
}

// ByGlobal returns every data message with the given global number, in file order.
func (f *File) ByGlobal(global uint16) []Message {
	out := make([]Message, 0)
	for _, m := range f.Messages {
		if m.Global == global {
			out = append(out, m)
		}
	}
	return out
}

type fieldDef struct {
	num  uint8
	size uint8
	base baseType
}

type devFieldDef struct {
	num      uint8
	size     uint8
	devIndex uint8
}

type localDefinition struct {
	global    uint16
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []devFieldDef
}

type scanState struct {
	data           []byte
	definitions    map[uint8]localDefinition
	lastTimestamp  uint32
	lastTimeOffset int32
	messages       []Message
}

// Scan parses a complete FIT file held in memory. Chained FIT files are
// not followed; bytes after the first file's CRC are ignored.
func Scan(data []byte) (*File, error) {
	if len(data) < headerSizeNoCRC+2 {
		return nil, fmt.Errorf("fit file too short: %d bytes", len(data))
	}

	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return nil, fmt.Errorf("invalid fit header size: %d", size)
	}
	if len(data) < int(size) {
		return nil, fmt.Errorf("truncated fit header: need %d bytes", size)
	}
	if string(data[8:12]) != ".FIT" {
		return nil, fmt.Errorf("invalid fit data type in header: %q", string(data[8:12]))
	}
	dataSize := int(binary.LittleEndian.Uint32(data[4:8]))

	dataStart := int(size)
	required := dataStart + dataSize + 2
	if len(data) < required {
		return nil, fmt.Errorf("fit file truncated: have %d bytes, need at least %d", len(data), required)
	}

	stored := binary.LittleEndian.Uint16(data[dataStart+dataSize : required])
	out := &File{
		ProtocolVersion: data[1],
		ProfileVersion:  binary.LittleEndian.Uint16(data[2:4]),
		FileCRCValid:    stored == dyncrc16.Checksum(data[:dataStart+dataSize]),
	}

	st := &scanState{
		data:        data[dataStart : dataStart+dataSize],
		definitions: make(map[uint8]localDefinition),
	}
	if err := st.scan(); err != nil {
		return nil, err
	}
	out.Messages = st.messages
	return out, nil
}

func (st *scanState) scan() error {
	pos := 0
	index := 0
	for pos < len(st.data) {
		index++
		header := st.data[pos]
		pos++

		var err error
		switch {
		case header&compressedHeaderMask == compressedHeaderMask:
			local := (header & compressedLocalMesgNumMask) >> 5
			def, ok := st.definitions[local]
			if !ok {
				return fmt.Errorf("missing definition for compressed data message local=%d record=%d", local, index)
			}
			st.advanceCompressed(header & compressedTimeMask)
			pos, err = st.readData(pos, def, true)
		case header&mesgDefinitionMask == mesgDefinitionMask:
			pos, err = st.readDefinition(pos, header)
		default:
			local := header & localMesgNumMask
			def, ok := st.definitions[local]
			if !ok {
				return fmt.Errorf("missing definition for data message local=%d record=%d", local, index)
			}
			pos, err = st.readData(pos, def, false)
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", index, err)
		}
	}
	return nil
}

func (st *scanState) advanceCompressed(offset uint8) {
	if st.lastTimestamp == 0 {
		return
	}
	timeOffset := int32(offset)
	st.lastTimestamp += uint32((timeOffset - st.lastTimeOffset) & int32(compressedTimeMask))
	st.lastTimeOffset = timeOffset
}

func (st *scanState) take(pos, n int) ([]byte, int, error) {
	if pos+n > len(st.data) {
		return nil, pos, fmt.Errorf("message truncated at byte %d", pos)
	}
	return st.data[pos : pos+n], pos + n, nil
}

func (st *scanState) readDefinition(pos int, header uint8) (int, error) {
	fixed, pos, err := st.take(pos, 5)
	if err != nil {
		return pos, err
	}
	var arch binary.ByteOrder
	switch fixed[1] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return pos, fmt.Errorf("invalid architecture byte %d", fixed[1])
	}

	def := localDefinition{
		global: arch.Uint16(fixed[2:4]),
		arch:   arch,
		fields: make([]fieldDef, 0, fixed[4]),
	}
	for i := 0; i < int(fixed[4]); i++ {
		var raw []byte
		raw, pos, err = st.take(pos, 3)
		if err != nil {
			return pos, err
		}
		def.fields = append(def.fields, fieldDef{num: raw[0], size: raw[1], base: decompressBaseType(raw[2])})
	}

	if header&devDataMask == devDataMask {
		var count []byte
		count, pos, err = st.take(pos, 1)
		if err != nil {
			return pos, err
		}
		def.devFields = make([]devFieldDef, 0, count[0])
		for i := 0; i < int(count[0]); i++ {
			var raw []byte
			raw, pos, err = st.take(pos, 3)
			if err != nil {
				return pos, err
			}
			def.devFields = append(def.devFields, devFieldDef{num: raw[0], size: raw[1], devIndex: raw[2]})
		}
	}

	st.definitions[header&localMesgNumMask] = def
	return pos, nil
}

func (st *scanState) readData(pos int, def localDefinition, compressed bool) (int, error) {
	msg := Message{
		Global: def.global,
		Fields: make(map[uint8]Field, len(def.fields)),
	}
	if compressed {
		msg.Timestamp = st.lastTimestamp
	}

	for _, fd := range def.fields {
		raw, next, err := st.take(pos, int(fd.size))
		if err != nil {
			return next, err
		}
		pos = next
		field := Field{Num: fd.num, Raw: raw, base: fd.base, arch: def.arch}
		msg.Fields[fd.num] = field

		if fd.num == fieldNumTimestamp {
			if v, ok := field.Float(); ok && fd.base == baseUint32 {
				ts := uint32(v)
				st.lastTimestamp = ts
				st.lastTimeOffset = int32(ts & compressedTimeMask)
				msg.Timestamp = ts
			}
		}
	}

	for _, dd := range def.devFields {
		raw, next, err := st.take(pos, int(dd.size))
		if err != nil {
			return next, err
		}
		pos = next
		msg.DevFields = append(msg.DevFields, DevField{Num: dd.num, DevIndex: dd.devIndex, Raw: raw, arch: def.arch})
	}

	st.messages = append(st.messages, msg)
	return pos, nil
}

func decodeRaw(raw []byte, bt baseType, arch binary.ByteOrder) (float64, bool) {
	if bt == baseString {
		return 0, false
	}
	size, ok := baseSizes[bt]
	if !ok || size == 0 || len(raw) < size || len(raw)%size != 0 {
		return 0, false
	}
	v, invalid := decodeNumber(raw[:size], bt, arch)
	if invalid {
		return 0, false
	}
	return v, true
}

// TimestampToUTC converts a raw FIT timestamp to UTC.
func TimestampToUTC(ts uint32) time.Time {
	base := time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(ts) * time.Second)
}
