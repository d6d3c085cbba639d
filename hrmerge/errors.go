package hrmerge

import (
	"errors"
	"fmt"
)

// ErrFormat marks fatal CSV format errors. Messages wrapping it are meant
// to be shown to the user verbatim.
var ErrFormat = errors.New("CSV format error")

var (
	// ErrMissingHeader is returned when no Time,Second,HR data header row exists.
	ErrMissingHeader = fmt.Errorf("%w: data header row (Time,Second,HR (bpm)) not found", ErrFormat)
	// ErrNoSamples is returned when the data section has no parseable rows.
	ErrNoSamples = fmt.Errorf("%w: no valid heart-rate samples in data section; check the Time/Second/HR columns", ErrFormat)
)

// ErrNoBaseTimestamp is returned when the target activity has neither a
// session start time nor any timestamped record.
var ErrNoBaseTimestamp = errors.New("activity lacks a usable start timestamp for alignment")
