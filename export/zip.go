package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/ttu-dot/fitanalysis"
)

// CategorizedZIP packs records.csv, laps.csv and session.csv.
func CategorizedZIP(a *fitanalysis.Activity) ([]byte, error) {
	records, err := RecordsCSV(a, nil)
	if err != nil {
		return nil, fmt.Errorf("records csv: %w", err)
	}
	laps, err := LapsCSV(a)
	if err != nil {
		return nil, fmt.Errorf("laps csv: %w", err)
	}
	session, err := SessionCSV(a)
	if err != nil {
		return nil, fmt.Errorf("session csv: %w", err)
	}
	return Zip(map[string][]byte{
		"records.csv": records,
		"laps.csv":    laps,
		"session.csv": session,
	})
}

// Zip deflates files into an archive with sorted names and a fixed
// modification time, so equal input gives equal bytes.
func Zip(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.Modified = fixedTime
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
