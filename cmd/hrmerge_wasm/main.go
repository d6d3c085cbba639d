//go:build js && wasm

package main

import (
	"fmt"
	"sort"
	"syscall/js"

	"github.com/ttu-dot/fitanalysis/export"
	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/pipeline"
)

func main() {
	js.Global().Set("mergeHeartRate", js.FuncOf(mergeHeartRate))
	select {}
}

func mergeHeartRate(_ js.Value, args []js.Value) any {
	if len(args) < 3 {
		return map[string]any{
			"ok":    false,
			"error": "expected arguments: fitBytes(Uint8Array), csvBytes(Uint8Array), options(object)",
		}
	}
	fitBytes, err := bytesArg(args[0], "fit")
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	csvBytes, err := bytesArg(args[1], "csv")
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	optsArg := args[2]

	result, err := pipeline.RunBytes(pipeline.BytesOptions{
		SourceFileName: getString(optsArg, "source_file_name", "input.fit"),
		FitData:        fitBytes,
		CSVFileName:    getString(optsArg, "csv_file_name", "hr.csv"),
		CSVData:        csvBytes,
		Format:         pipeline.FormatCSV,
		CopySource:     true,
		Merge: &hrmerge.Options{
			MaxShiftSec:          getFloat(optsArg, "auto_align_max_shift_sec"),
			MatchToleranceSec:    getFloat(optsArg, "auto_align_match_tolerance_sec"),
			MinMatchRatio:        getFloat(optsArg, "auto_align_min_match_ratio"),
			InterpolateMaxGapSec: getFloat(optsArg, "interpolate_max_gap_sec"),
			AllowExtrapolation:   getBool(optsArg, "allow_extrapolation"),
		},
	})
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": err.Error(),
		}
	}

	zipBytes, err := export.Zip(result.Files)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": fmt.Sprintf("create zip: %v", err),
		}
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":          true,
		"zip":         payload,
		"files":       stringsToAny(fileNames),
		"method":      result.Manifest.Merge.Method,
		"offset_sec":  result.Manifest.Merge.OffsetSec,
		"match_ratio": result.Manifest.Merge.MatchRatio,
	}
}

func bytesArg(v js.Value, what string) ([]byte, error) {
	if v.IsUndefined() || v.IsNull() || v.Get("length").Int() == 0 {
		return nil, fmt.Errorf("%s file bytes are required", what)
	}
	out := make([]byte, v.Get("length").Int())
	if n := js.CopyBytesToGo(out, v); n == 0 {
		return nil, fmt.Errorf("failed to read %s bytes from JS input", what)
	}
	return out, nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getFloat(v js.Value, key string) *float64 {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return nil
	}
	f := out.Float()
	return &f
}

func getBool(v js.Value, key string) *bool {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	out := v.Get(key)
	if out.Type() != js.TypeBoolean {
		return nil
	}
	b := out.Bool()
	return &b
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
