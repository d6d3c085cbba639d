package pipeline

import (
	"time"

	"github.com/ttu-dot/fitanalysis/hrmerge"
)

// Output formats for the records table.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Bundle file names.
const (
	ManifestFile   = "manifest.json"
	ActivityFile   = "activity.json"
	ProvenanceFile = "merge_provenance.json"
	LapsFile       = "laps.csv"
	SessionFile    = "session.csv"
	NotesFile      = "notes.txt"
	recordsStem    = "records."
)

// Options configures a file-to-file merge run.
type Options struct {
	FitPath string
	CSVPath string
	OutDir  string
	// Format is parquet or csv; empty means parquet.
	Format     string
	Overwrite  bool
	CopySource bool
	Defaults   hrmerge.Criteria
	Merge      *hrmerge.Options
	// Local is the zone drifting naive CSV times are re-read in. Nil means time.Local.
	Local *time.Location
	Now   func() time.Time
}

// BytesOptions configures an in-memory merge run.
type BytesOptions struct {
	SourceFileName string
	FitData        []byte
	CSVFileName    string
	CSVData        []byte
	Format         string
	CopySource     bool
	Defaults       hrmerge.Criteria
	Merge          *hrmerge.Options
	Local          *time.Location
	Now            func() time.Time
}

// Result returns generated output paths.
type Result struct {
	OutputDir      string `json:"output_dir"`
	ManifestPath   string `json:"manifest_path"`
	ActivityPath   string `json:"activity_path"`
	RecordsPath    string `json:"records_path"`
	LapsPath       string `json:"laps_path"`
	SessionPath    string `json:"session_path"`
	NotesPath      string `json:"notes_path"`
	ProvenancePath string `json:"provenance_path"`
	SourceCopyPath string `json:"source_copy_path,omitempty"`
}

// BytesResult holds an in-memory bundle keyed by file name.
type BytesResult struct {
	Files    map[string][]byte
	Manifest Manifest
}

// Manifest describes one merge bundle.
type Manifest struct {
	Tool         string      `json:"tool"`
	Version      string      `json:"version"`
	SourceFile   string      `json:"source_file"`
	SourceSHA256 string      `json:"source_sha256"`
	SourceSize   int64       `json:"source_size_bytes"`
	FileID       *FileIDInfo `json:"file_id,omitempty"`
	HRSourceFile string      `json:"hr_source_file"`
	RecordFormat string      `json:"record_format"`
	Merge        MergeInfo   `json:"merge"`
	Outputs      []string    `json:"outputs"`
}

// FileIDInfo projects the FIT file_id message.
type FileIDInfo struct {
	Type         string `json:"type"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	SerialNumber uint32 `json:"serial_number"`
	TimeCreated  string `json:"time_created,omitempty"`
}

// MergeInfo summarizes the merge outcome.
type MergeInfo struct {
	FieldName    string  `json:"field_name"`
	DeviceKey    string  `json:"device_key"`
	Method       string  `json:"method"`
	OffsetSec    float64 `json:"offset_sec"`
	MatchRatio   float64 `json:"match_ratio"`
	Records      int     `json:"records"`
	Written      int     `json:"written"`
	Interpolated int     `json:"interpolated"`
	Dropped      int     `json:"dropped"`
	Samples      int     `json:"samples"`
	SkippedRows  int     `json:"skipped_rows"`
}
