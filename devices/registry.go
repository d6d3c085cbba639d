// Package devices holds the device-specific developer field catalog and the
// unit normalization tables used when decoding activity files.
package devices

import (
	"fmt"
	"strings"
)

// FieldMapping describes one device field.
type FieldMapping struct {
	FieldName          string
	DisplayLabel       string
	Unit               string
	Description        string
	Category           string
	StorageUnit        string
	DisplayUnit        string
	RequiresConversion bool
	Precision          int
}

// DeviceConfig is the catalog entry for a single device family.
type DeviceConfig struct {
	DeviceID      string
	DeviceName    string
	FieldPrefix   string
	DisplayPrefix string
	Fields        []FieldMapping
	Aliases       map[string]string
}

// Registry is an immutable lookup table of device configs. Build it once
// with NewRegistry and share it by reference; it has no mutating methods.
type Registry struct {
	devices []DeviceConfig
	fields  map[string]map[string]FieldMapping
}

// NewRegistry builds a registry from configs. Prefix lookups scan configs in
// the given order. Empty storage/display units default to Unit and a zero
// precision defaults to 2.
func NewRegistry(configs ...DeviceConfig) (*Registry, error) {
	r := &Registry{
		devices: make([]DeviceConfig, 0, len(configs)),
		fields:  make(map[string]map[string]FieldMapping, len(configs)),
	}
	for _, cfg := range configs {
		if strings.TrimSpace(cfg.DeviceID) == "" {
			return nil, fmt.Errorf("device id is required")
		}
		if strings.TrimSpace(cfg.FieldPrefix) == "" {
			return nil, fmt.Errorf("device %s: field prefix is required", cfg.DeviceID)
		}
		if _, dup := r.fields[cfg.DeviceID]; dup {
			return nil, fmt.Errorf("device %s registered twice", cfg.DeviceID)
		}

		fields := make([]FieldMapping, len(cfg.Fields))
		byName := make(map[string]FieldMapping, len(cfg.Fields))
		for i, f := range cfg.Fields {
			if f.StorageUnit == "" {
				f.StorageUnit = f.Unit
			}
			if f.DisplayUnit == "" {
				f.DisplayUnit = f.Unit
			}
			if f.Precision == 0 {
				f.Precision = 2
			}
			fields[i] = f
			byName[f.FieldName] = f
		}
		aliases := make(map[string]string, len(cfg.Aliases))
		for k, v := range cfg.Aliases {
			aliases[k] = v
		}
		cfg.Fields = fields
		cfg.Aliases = aliases

		r.devices = append(r.devices, cfg)
		r.fields[cfg.DeviceID] = byName
	}
	return r, nil
}

// DefaultRegistry returns a registry holding every built-in device.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DragonRun())
	if err != nil {
		panic(err)
	}
	return r
}

// DeviceByPrefix returns the first device whose field prefix starts name.
func (r *Registry) DeviceByPrefix(name string) (DeviceConfig, bool) {
	if r == nil {
		return DeviceConfig{}, false
	}
	for _, d := range r.devices {
		if strings.HasPrefix(name, d.FieldPrefix) {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// NormalizeFieldName maps alias spellings to the canonical field name.
// Names without a known device prefix are returned unchanged.
func (r *Registry) NormalizeFieldName(raw string) string {
	d, ok := r.DeviceByPrefix(raw)
	if !ok {
		return raw
	}
	if canonical, ok := d.Aliases[raw]; ok {
		return canonical
	}
	return raw
}

// Field returns the mapping for a canonical field name.
func (r *Registry) Field(name string) (FieldMapping, bool) {
	d, ok := r.DeviceByPrefix(name)
	if !ok {
		return FieldMapping{}, false
	}
	f, ok := r.fields[d.DeviceID][name]
	return f, ok
}

// DisplayLabel renders "<display prefix><label> (<unit>)" for known fields
// and returns name unchanged otherwise.
func (r *Registry) DisplayLabel(name string) string {
	d, ok := r.DeviceByPrefix(name)
	if !ok {
		return name
	}
	f, ok := r.fields[d.DeviceID][name]
	if !ok {
		return name
	}
	return fullLabel(d, f)
}

func fullLabel(d DeviceConfig, f FieldMapping) string {
	return fmt.Sprintf("%s%s (%s)", d.DisplayPrefix, f.DisplayLabel, f.Unit)
}

// FieldExport is the serialized form of a FieldMapping.
type FieldExport struct {
	FieldName          string `json:"field_name"`
	DisplayLabel       string `json:"display_label"`
	Unit               string `json:"unit"`
	FullLabel          string `json:"full_label"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	StorageUnit        string `json:"storage_unit,omitempty"`
	DisplayUnit        string `json:"display_unit,omitempty"`
	RequiresConversion bool   `json:"requires_conversion"`
	Precision          int    `json:"precision"`
}

// DeviceExport is the serialized form of a DeviceConfig.
type DeviceExport struct {
	DeviceName    string        `json:"device_name"`
	FieldPrefix   string        `json:"field_prefix"`
	DisplayPrefix string        `json:"display_prefix"`
	Fields        []FieldExport `json:"fields"`
}

// Export returns every device keyed by device id, fields in catalog order.
func (r *Registry) Export() map[string]DeviceExport {
	out := make(map[string]DeviceExport, len(r.devices))
	for _, d := range r.devices {
		de := DeviceExport{
			DeviceName:    d.DeviceName,
			FieldPrefix:   d.FieldPrefix,
			DisplayPrefix: d.DisplayPrefix,
			Fields:        make([]FieldExport, 0, len(d.Fields)),
		}
		for _, f := range d.Fields {
			de.Fields = append(de.Fields, FieldExport{
				FieldName:          f.FieldName,
				DisplayLabel:       f.DisplayLabel,
				Unit:               f.Unit,
				FullLabel:          fullLabel(d, f),
				Description:        f.Description,
				Category:           f.Category,
				StorageUnit:        f.StorageUnit,
				DisplayUnit:        f.DisplayUnit,
				RequiresConversion: f.RequiresConversion,
				Precision:          f.Precision,
			})
		}
		out[d.DeviceID] = de
	}
	return out
}
