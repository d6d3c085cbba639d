// Package pipeline merges an offline heart-rate CSV into a FIT activity and
// renders the merged activity as a self-contained bundle: the activity
// document, records as Parquet or CSV, lap and session tables, notes and
// merge provenance.
package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/config"
	"github.com/ttu-dot/fitanalysis/devices"
	"github.com/ttu-dot/fitanalysis/export"
	"github.com/ttu-dot/fitanalysis/hrmerge"
)

const toolName = "hrmerge"

// Run reads the FIT and CSV files, merges them and writes the bundle to
// opts.OutDir.
func Run(opts Options) (*Result, error) {
	if strings.TrimSpace(opts.FitPath) == "" {
		return nil, fmt.Errorf("fit path is required")
	}
	if strings.TrimSpace(opts.CSVPath) == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	fitData, err := os.ReadFile(opts.FitPath)
	if err != nil {
		return nil, fmt.Errorf("read FIT file: %w", err)
	}
	csvData, err := os.ReadFile(opts.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("read CSV file: %w", err)
	}

	m, err := merge(BytesOptions{
		SourceFileName: filepath.Base(opts.FitPath),
		FitData:        fitData,
		CSVFileName:    filepath.Base(opts.CSVPath),
		CSVData:        csvData,
		Format:         format,
		CopySource:     opts.CopySource,
		Defaults:       opts.Defaults,
		Merge:          opts.Merge,
		Local:          opts.Local,
		Now:            opts.Now,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}
	files, err := m.render(false)
	if err != nil {
		return nil, err
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(opts.OutDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	res := &Result{
		OutputDir:      opts.OutDir,
		ManifestPath:   filepath.Join(opts.OutDir, ManifestFile),
		ActivityPath:   filepath.Join(opts.OutDir, ActivityFile),
		RecordsPath:    filepath.Join(opts.OutDir, recordsStem+format),
		LapsPath:       filepath.Join(opts.OutDir, LapsFile),
		SessionPath:    filepath.Join(opts.OutDir, SessionFile),
		NotesPath:      filepath.Join(opts.OutDir, NotesFile),
		ProvenancePath: filepath.Join(opts.OutDir, ProvenanceFile),
	}
	switch format {
	case FormatParquet:
		if err := export.WriteRecordsParquet(res.RecordsPath, m.activity, m.result.FieldName); err != nil {
			return nil, fmt.Errorf("write records parquet: %w", err)
		}
	case FormatCSV:
		data, err := export.RecordsCSV(m.activity, nil)
		if err != nil {
			return nil, fmt.Errorf("render records csv: %w", err)
		}
		if err := os.WriteFile(res.RecordsPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("write records csv: %w", err)
		}
	}

	if opts.CopySource {
		res.SourceCopyPath = filepath.Join(opts.OutDir, m.manifest.SourceFile)
		if err := copyFile(opts.FitPath, res.SourceCopyPath); err != nil {
			return nil, fmt.Errorf("copy source: %w", err)
		}
	}

	if err := writeJSON(res.ManifestPath, m.manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestFile, err)
	}
	return res, nil
}

// RunBytes merges in memory and returns every bundle file, the manifest
// included.
func RunBytes(opts BytesOptions) (*BytesResult, error) {
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	m, err := merge(opts)
	if err != nil {
		return nil, err
	}
	files, err := m.render(true)
	if err != nil {
		return nil, err
	}
	if opts.CopySource {
		files[m.manifest.SourceFile] = append([]byte(nil), opts.FitData...)
	}
	manifest, err := marshalJSON(m.manifest)
	if err != nil {
		return nil, err
	}
	files[ManifestFile] = manifest
	return &BytesResult{Files: files, Manifest: m.manifest}, nil
}

type merged struct {
	activity *fitanalysis.Activity
	result   *hrmerge.Result
	manifest Manifest
	format   string
	registry *devices.Registry
}

func merge(opts BytesOptions) (*merged, error) {
	if len(opts.FitData) == 0 {
		return nil, fmt.Errorf("fit data is required")
	}
	if len(opts.CSVData) == 0 {
		return nil, fmt.Errorf("csv data is required")
	}
	sourceName := opts.SourceFileName
	if sourceName == "" {
		sourceName = "input.fit"
	}

	sum := sha256.Sum256(opts.FitData)
	sha := hex.EncodeToString(sum[:])
	registry := devices.DefaultRegistry()

	a, err := fitanalysis.DecodeBytes(opts.FitData, fitanalysis.DecodeOptions{
		ID:       sha[:16],
		FileName: sourceName,
		Registry: registry,
		Now:      opts.Now,
	})
	if err != nil {
		return nil, err
	}

	var csvName *string
	if opts.CSVFileName != "" {
		csvName = &opts.CSVFileName
	}
	engine := hrmerge.New(hrmerge.Config{Defaults: opts.Defaults, Local: opts.Local})
	res, err := engine.Merge(a, opts.CSVData, csvName, opts.Merge)
	if err != nil {
		return nil, fmt.Errorf("merge heart rate: %w", err)
	}

	m := &merged{
		activity: a,
		result:   res,
		format:   opts.Format,
		registry: registry,
		manifest: Manifest{
			Tool:         toolName,
			Version:      config.Version,
			SourceFile:   sourceName,
			SourceSHA256: sha,
			SourceSize:   int64(len(opts.FitData)),
			FileID:       projectFileID(opts.FitData),
			HRSourceFile: opts.CSVFileName,
			RecordFormat: opts.Format,
			Merge: MergeInfo{
				FieldName:    res.FieldName,
				DeviceKey:    res.DeviceKey,
				Method:       res.Method,
				OffsetSec:    res.OffsetSec,
				MatchRatio:   res.MatchRatio,
				Records:      res.Records,
				Written:      res.Written,
				Interpolated: res.Interpolated,
				Dropped:      res.Dropped,
				Samples:      res.Samples,
				SkippedRows:  res.SkippedRows,
			},
		},
	}
	return m, nil
}

// render builds every bundle file except the manifest. The records table
// is included only when withRecords is set.
func (m *merged) render(withRecords bool) (map[string][]byte, error) {
	files := make(map[string][]byte)

	var err error
	if files[ActivityFile], err = marshalJSON(m.activity); err != nil {
		return nil, fmt.Errorf("render %s: %w", ActivityFile, err)
	}
	if files[ProvenanceFile], err = marshalJSON(m.activity.MergeProvenance); err != nil {
		return nil, fmt.Errorf("render %s: %w", ProvenanceFile, err)
	}
	if files[LapsFile], err = export.LapsCSV(m.activity); err != nil {
		return nil, fmt.Errorf("render %s: %w", LapsFile, err)
	}
	if files[SessionFile], err = export.SessionCSV(m.activity); err != nil {
		return nil, fmt.Errorf("render %s: %w", SessionFile, err)
	}
	files[NotesFile] = []byte(fitanalysis.BuildActivityNotes(m.activity, m.registry) + "\n")

	recordsName := recordsStem + m.format
	if withRecords {
		switch m.format {
		case FormatParquet:
			files[recordsName], err = export.MarshalRecordsParquet(m.activity, m.result.FieldName)
		case FormatCSV:
			files[recordsName], err = export.RecordsCSV(m.activity, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", recordsName, err)
		}
	}

	outputs := []string{ManifestFile, recordsName}
	for name := range files {
		if name != recordsName {
			outputs = append(outputs, name)
		}
	}
	slices.Sort(outputs)
	m.manifest.Outputs = outputs
	return files, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatParquet
	}
	if format != FormatParquet && format != FormatCSV {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func projectFileID(data []byte) *FileIDInfo {
	_, id, err := fit.DecodeHeaderAndFileID(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	info := &FileIDInfo{
		Type:         fmt.Sprint(id.Type),
		Manufacturer: fmt.Sprint(id.Manufacturer),
		Product:      fmt.Sprint(id.GetProduct()),
		SerialNumber: id.SerialNumber,
	}
	if !id.TimeCreated.IsZero() {
		info.TimeCreated = id.TimeCreated.UTC().Format(time.RFC3339)
	}
	return info
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

// marshalJSON renders indented JSON with a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func writeJSON(path string, v any) error {
	data, err := marshalJSON(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
