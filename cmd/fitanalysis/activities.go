package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file.fit>...",
	Short: "Import FIT activities into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var mergeCmd = &cobra.Command{
	Use:   "merge <activity-id> <hr.csv>",
	Short: "Merge an offline heart-rate CSV into a copy of a stored activity",
	Long: `Merge an offline heart-rate CSV into a stored activity.

The stored activity is left untouched. The merged result is saved as a new
activity whose name carries the "[HR merge] " prefix.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored activities",
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [activity-id]...",
	Short: "Delete stored activities",
	RunE:  runDelete,
}

var (
	importName string

	mergeMaxShift       float64
	mergeMatchTolerance float64
	mergeMinMatchRatio  float64
	mergeMaxGap         float64
	mergeExtrapolate    bool

	listSort   string
	listOrder  string
	listSport  string
	listSearch string
	listPage   int
	listLimit  int
	listJSON   bool

	deleteAll bool
)

func init() {
	rootCmd.AddCommand(importCmd, mergeCmd, listCmd, deleteCmd)

	importCmd.Flags().StringVar(&importName, "name", "", "Activity name (single file only; defaults to the file name)")

	mergeCmd.Flags().Float64Var(&mergeMaxShift, "max-shift", 0, "Override auto_align_max_shift_sec")
	mergeCmd.Flags().Float64Var(&mergeMatchTolerance, "match-tolerance", 0, "Override auto_align_match_tolerance_sec")
	mergeCmd.Flags().Float64Var(&mergeMinMatchRatio, "min-match-ratio", 0, "Override auto_align_min_match_ratio")
	mergeCmd.Flags().Float64Var(&mergeMaxGap, "max-gap", 0, "Override interpolate_max_gap_sec")
	mergeCmd.Flags().BoolVar(&mergeExtrapolate, "extrapolate", false, "Override allow_extrapolation")

	listCmd.Flags().StringVar(&listSort, "sort", store.SortDate, "Sort key: date|distance|duration|avg_pace|avg_heart_rate|avg_cadence|avg_power")
	listCmd.Flags().StringVar(&listOrder, "order", "desc", "Sort order: asc|desc")
	listCmd.Flags().StringVar(&listSport, "sport", "", "Filter by sport")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive name search (ignores other filters)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Page size")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON")

	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every stored activity")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importName != "" && len(args) > 1 {
		return exitError(2, errors.New("--name requires a single file"))
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return exitError(1, fmt.Errorf("read %s: %w", path, err))
		}
		act, meta, err := a.svc.Import(cmd.Context(), data, filepath.Base(path), importName)
		if err != nil {
			return exitError(1, fmt.Errorf("import %s: %w", path, err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2f km\t%d records\n", act.ID, act.Name, meta.DistanceKm, len(act.Records))
	}
	return nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	opts := &hrmerge.Options{}
	flags := cmd.Flags()
	if flags.Changed("max-shift") {
		opts.MaxShiftSec = &mergeMaxShift
	}
	if flags.Changed("match-tolerance") {
		opts.MatchToleranceSec = &mergeMatchTolerance
	}
	if flags.Changed("min-match-ratio") {
		opts.MinMatchRatio = &mergeMinMatchRatio
	}
	if flags.Changed("max-gap") {
		opts.InterpolateMaxGapSec = &mergeMaxGap
	}
	if flags.Changed("extrapolate") {
		opts.AllowExtrapolation = &mergeExtrapolate
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[1])
	if err != nil {
		return exitError(1, fmt.Errorf("read %s: %w", args[1], err))
	}
	merged, res, err := a.svc.MergeHRCSV(cmd.Context(), args[0], data, filepath.Base(args[1]), opts)
	if err != nil {
		return exitError(1, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "new activity:  %s (%s)\n", merged.ID, merged.Name)
	fmt.Fprintf(out, "field:         %s\n", res.FieldName)
	fmt.Fprintf(out, "method:        %s\n", res.Method)
	fmt.Fprintf(out, "offset:        %+.1f s\n", res.OffsetSec)
	fmt.Fprintf(out, "match ratio:   %.3f\n", res.MatchRatio)
	fmt.Fprintf(out, "written:       %d of %d records (%d dropped)\n", res.Written, res.Records, res.Dropped)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	if !store.ValidSortKey(listSort) {
		return exitError(2, fmt.Errorf("unknown sort key %q", listSort))
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var metas []store.Meta
	total := 0
	if listSearch != "" {
		metas, err = a.store.Search(cmd.Context(), listSearch)
		total = len(metas)
	} else {
		metas, total, err = a.store.List(cmd.Context(), store.ListOptions{
			SortBy: listSort,
			Order:  listOrder,
			Sport:  listSport,
			Page:   listPage,
			Limit:  listLimit,
		})
	}
	if err != nil {
		return exitError(1, err)
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"activities": metas, "total": total})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tNAME\tSPORT\tKM\tDURATION\tPACE\tHR")
	for _, m := range metas {
		date := "-"
		if m.Date != nil {
			date = m.Date.Format(time.DateOnly)
		}
		hr := "-"
		if m.AvgHeartRate != nil {
			hr = fmt.Sprint(*m.AvgHeartRate)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			m.ID, date, m.Name, m.Sport, m.DistanceKm,
			time.Duration(m.DurationSec*float64(time.Second)).Round(time.Second), m.AvgPace, hr)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d activities\n", len(metas), total)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if deleteAll == (len(args) > 0) {
		return exitError(2, errors.New("pass activity ids or --all"))
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if deleteAll {
		n, err := a.store.DeleteAll(cmd.Context())
		if err != nil {
			return exitError(1, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d activities\n", n)
		return nil
	}
	for _, id := range args {
		if err := a.store.Delete(cmd.Context(), id); err != nil {
			return exitError(1, fmt.Errorf("delete %s: %w", id, err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	}
	return nil
}
