package hrmerge

import (
	"regexp"
	"strings"
)

const defaultDeviceKey = "default"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SanitizeDeviceName turns a free-text device name into an identifier
// token: lowercased, non-alphanumeric runs collapsed to "_", edges
// trimmed. Empty names map to "default".
//
//	"Polar H10"       -> "polar_h10"
//	"Garmin HRM-Dual" -> "garmin_hrm_dual"
func SanitizeDeviceName(name string) string {
	if name == "" {
		return defaultDeviceKey
	}
	cleaned := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if cleaned == "" {
		return defaultDeviceKey
	}
	return cleaned
}

// FieldName returns the IQ field that receives heart rate merged from the
// named device.
func FieldName(deviceName *string) string {
	name := ""
	if deviceName != nil {
		name = *deviceName
	}
	return "imported_" + SanitizeDeviceName(name) + "_hr"
}
