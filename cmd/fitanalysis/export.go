package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ttu-dot/fitanalysis"
	"github.com/ttu-dot/fitanalysis/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <activity-id>",
	Short: "Export a stored activity as CSV, ZIP, Parquet or notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var (
	exportFormat string
	exportFields string
	exportMerged string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "records", "Output: records|laps|session|zip|parquet|notes")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "Comma-separated record columns (records only)")
	exportCmd.Flags().StringVar(&exportMerged, "merged-field", "", "IQ field copied into merged_hr_bpm (parquet only; defaults to the merged field)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (defaults to activity_<name>.<ext>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	act, err := a.store.Get(cmd.Context(), args[0])
	if err != nil {
		return exitError(1, err)
	}

	var (
		data []byte
		name string
	)
	switch exportFormat {
	case "records":
		var include []string
		for _, f := range strings.Split(exportFields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				include = append(include, f)
			}
		}
		data, err = export.RecordsCSV(act, include)
		data, name = export.WithBOM(data), fmt.Sprintf("activity_%s_records.csv", act.Name)
	case "laps":
		data, err = export.LapsCSV(act)
		data, name = export.WithBOM(data), fmt.Sprintf("activity_%s_laps.csv", act.Name)
	case "session":
		data, err = export.SessionCSV(act)
		data, name = export.WithBOM(data), fmt.Sprintf("activity_%s_session.csv", act.Name)
	case "zip":
		data, err = export.CategorizedZIP(act)
		name = fmt.Sprintf("activity_%s.zip", act.Name)
	case "parquet":
		name = fmt.Sprintf("activity_%s_records.parquet", act.Name)
		path := outputPath(name)
		if err := export.WriteRecordsParquet(path, act, mergedField(act)); err != nil {
			return exitError(1, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	case "notes":
		data = []byte(fitanalysis.BuildActivityNotes(act, a.svc.Registry()) + "\n")
		name = fmt.Sprintf("activity_%s_notes.txt", act.Name)
	default:
		return exitError(2, fmt.Errorf("unknown format %q", exportFormat))
	}
	if err != nil {
		return exitError(1, err)
	}

	path := outputPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return exitError(1, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func outputPath(defaultName string) string {
	if exportOut != "" {
		return exportOut
	}
	return filepath.Clean(strings.ReplaceAll(defaultName, string(filepath.Separator), "_"))
}

// mergedField picks the IQ field for the Parquet merged column: the flag,
// else the last imported_*_hr field listed on a merged activity.
func mergedField(a *fitanalysis.Activity) string {
	if exportMerged != "" {
		return strings.TrimPrefix(exportMerged, fitanalysis.IQFieldPrefix)
	}
	if a.MergeProvenance == nil {
		return ""
	}
	for i := len(a.AvailableIQFields) - 1; i >= 0; i-- {
		if f := a.AvailableIQFields[i]; strings.HasPrefix(f, "imported_") && strings.HasSuffix(f, "_hr") {
			return f
		}
	}
	return ""
}
