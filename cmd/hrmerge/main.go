package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ttu-dot/fitanalysis/config"
	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/pipeline"
)

func main() {
	var (
		fitPath    = flag.String("fit", "", "Path to input .fit file")
		csvPath    = flag.String("csv", "", "Path to offline heart-rate .csv file")
		outDir     = flag.String("out", "", "Output directory")
		format     = flag.String("format", "parquet", "Records format: parquet|csv")
		overwrite  = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
		configPath = flag.String("config", "", "Optional YAML config file")
		opts       = &hrmerge.Options{}
	)
	floatOpt := func(name, usage string, dst **float64) {
		flag.Func(name, usage, func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*dst = &v
			return nil
		})
	}
	floatOpt("max-shift", "Override auto_align_max_shift_sec", &opts.MaxShiftSec)
	floatOpt("match-tolerance", "Override auto_align_match_tolerance_sec", &opts.MatchToleranceSec)
	floatOpt("min-match-ratio", "Override auto_align_min_match_ratio", &opts.MinMatchRatio)
	floatOpt("max-gap", "Override interpolate_max_gap_sec", &opts.InterpolateMaxGapSec)
	flag.Func("extrapolate", "Override allow_extrapolation (true|false)", func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		opts.AllowExtrapolation = &v
		return nil
	})
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --fit input.fit --csv hr.csv --out outdir [--format parquet|csv] [--max-shift 8]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*fitPath) == "" || strings.TrimSpace(*csvPath) == "" || strings.TrimSpace(*outDir) == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hrmerge failed: %v\n", err)
		os.Exit(1)
	}

	result, err := pipeline.Run(pipeline.Options{
		FitPath:    *fitPath,
		CSVPath:    *csvPath,
		OutDir:     *outDir,
		Format:     *format,
		Overwrite:  *overwrite,
		CopySource: true,
		Defaults:   cfg.HRMerge.Criteria(),
		Merge:      opts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hrmerge failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("hrmerge complete\n")
	fmt.Printf("Output dir:          %s\n", result.OutputDir)
	fmt.Printf("manifest.json:       %s\n", result.ManifestPath)
	fmt.Printf("activity:            %s\n", result.ActivityPath)
	fmt.Printf("records:             %s\n", result.RecordsPath)
	fmt.Printf("laps:                %s\n", result.LapsPath)
	fmt.Printf("session:             %s\n", result.SessionPath)
	fmt.Printf("notes:               %s\n", result.NotesPath)
	fmt.Printf("merge provenance:    %s\n", result.ProvenancePath)
	if result.SourceCopyPath != "" {
		fmt.Printf("source copy:         %s\n", result.SourceCopyPath)
	}
}
