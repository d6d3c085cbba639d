//go:build !js

package export

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/ttu-dot/fitanalysis"
)

type recordParquetRow struct {
	Timestamp     string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ElapsedS      float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	DistanceM     float64 `parquet:"name=distance_m, type=DOUBLE"`
	HeartRateBPM  float64 `parquet:"name=heart_rate_bpm, type=DOUBLE"`
	SpeedMPS      float64 `parquet:"name=speed_mps, type=DOUBLE"`
	CadenceSPM    float64 `parquet:"name=cadence_spm, type=DOUBLE"`
	PowerW        float64 `parquet:"name=power_w, type=DOUBLE"`
	AltitudeM     float64 `parquet:"name=altitude_m, type=DOUBLE"`
	Latitude      float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude     float64 `parquet:"name=longitude, type=DOUBLE"`
	GradePct      float64 `parquet:"name=grade_pct, type=DOUBLE"`
	TemperatureC  float64 `parquet:"name=temperature_c, type=DOUBLE"`
	VerticalOscCM float64 `parquet:"name=vertical_oscillation_cm, type=DOUBLE"`
	StanceTimeMS  float64 `parquet:"name=stance_time_ms, type=DOUBLE"`
	StepLengthM   float64 `parquet:"name=step_length_m, type=DOUBLE"`
	MergedHRBPM   float64 `parquet:"name=merged_hr_bpm, type=DOUBLE"`
	ValidHR       bool    `parquet:"name=valid_hr, type=BOOLEAN"`
	ValidMergedHR bool    `parquet:"name=valid_merged_hr, type=BOOLEAN"`
	RecordIndex   int64   `parquet:"name=record_index, type=INT64"`
}

// MarshalRecordsParquet encodes the records of a as SNAPPY-compressed
// Parquet. mergedField names the developer field copied into merged_hr_bpm;
// missing values are NaN with the matching valid_ flag cleared.
func MarshalRecordsParquet(a *fitanalysis.Activity, mergedField string) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeRecordsParquet(fw, a, mergedField); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteRecordsParquet writes the records of a to path.
func WriteRecordsParquet(path string, a *fitanalysis.Activity, mergedField string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	return writeRecordsParquet(fw, a, mergedField)
}

func writeRecordsParquet(fw source.ParquetFile, a *fitanalysis.Activity, mergedField string) error {
	pw, err := writer.NewParquetWriter(fw, new(recordParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i, rec := range a.Records {
		if err := pw.Write(parquetRow(i, rec, mergedField)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func parquetRow(i int, rec fitanalysis.Record, mergedField string) recordParquetRow {
	row := recordParquetRow{
		Timestamp:     timeCell(rec.Timestamp),
		ElapsedS:      valueOrNaN(rec.ElapsedTime),
		DistanceM:     valueOrNaN(rec.Distance),
		HeartRateBPM:  intOrNaN(rec.HeartRate),
		SpeedMPS:      valueOrNaN(rec.Speed),
		CadenceSPM:    intOrNaN(rec.Cadence),
		PowerW:        intOrNaN(rec.Power),
		AltitudeM:     valueOrNaN(rec.Altitude),
		Latitude:      valueOrNaN(rec.PositionLat),
		Longitude:     valueOrNaN(rec.PositionLong),
		GradePct:      valueOrNaN(rec.Grade),
		TemperatureC:  intOrNaN(rec.Temperature),
		VerticalOscCM: valueOrNaN(rec.VerticalOscillation),
		StanceTimeMS:  valueOrNaN(rec.StanceTime),
		StepLengthM:   valueOrNaN(rec.StepLength),
		MergedHRBPM:   math.NaN(),
		ValidHR:       rec.HeartRate != nil,
		RecordIndex:   int64(i),
	}
	if v, ok := rec.IQFields[mergedField]; ok && mergedField != "" {
		row.MergedHRBPM = v
		row.ValidMergedHR = true
	}
	return row
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intOrNaN(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}
