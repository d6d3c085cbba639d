package fitscan

import (
	"strings"
)

// FieldDescription is a developer field definition from a field_description message.
type FieldDescription struct {
	DevIndex uint8
	Num      uint8
	Name     string
	Units    string
	Scale    float64
	Offset   float64
	base     baseType
}

type devKey struct {
	devIndex uint8
	num      uint8
}

// Developer resolves developer field values to named numbers.
type Developer struct {
	descriptions map[devKey]FieldDescription
}

// NewDeveloper collects every field_description message of f. Later
// descriptions for the same (developer index, field number) replace earlier ones.
func NewDeveloper(f *File) *Developer {
	d := &Developer{descriptions: make(map[devKey]FieldDescription)}
	for _, m := range f.ByGlobal(MesgNumFieldDescription) {
		devIdx, ok := m.Float(0)
		if !ok {
			continue
		}
		num, ok := m.Float(1)
		if !ok {
			continue
		}
		baseID, ok := m.Float(2)
		if !ok {
			continue
		}
		name := ""
		if nameField, ok := m.Fields[3]; ok {
			name = strings.TrimSpace(nameField.String())
		}
		if name == "" {
			continue
		}
		desc := FieldDescription{
			DevIndex: uint8(devIdx),
			Num:      uint8(num),
			Name:     name,
			Scale:    1,
			base:     decompressBaseType(byte(baseID)),
		}
		if scale, ok := m.Float(6); ok && scale > 0 {
			desc.Scale = scale
		}
		if offset, ok := m.Float(7); ok {
			desc.Offset = offset
		}
		if units, ok := m.Fields[8]; ok {
			desc.Units = strings.TrimSpace(units.String())
		}
		d.descriptions[devKey{devIndex: desc.DevIndex, num: desc.Num}] = desc
	}
	return d
}

// Descriptions returns every known developer field description.
func (d *Developer) Descriptions() []FieldDescription {
	out := make([]FieldDescription, 0, len(d.descriptions))
	for _, desc := range d.descriptions {
		out = append(out, desc)
	}
	return out
}

// Values returns the numeric developer fields of m keyed by their
// described name, with scale and offset applied. Fields without a
// description, strings and invalid values are skipped.
func (d *Developer) Values(m Message) map[string]float64 {
	if len(m.DevFields) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m.DevFields))
	for _, df := range m.DevFields {
		desc, ok := d.descriptions[devKey{devIndex: df.DevIndex, num: df.Num}]
		if !ok {
			continue
		}
		v, ok := decodeRaw(df.Raw, desc.base, df.arch)
		if !ok {
			continue
		}
		out[desc.Name] = v/desc.Scale - desc.Offset
	}
	return out
}
