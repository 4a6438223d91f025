package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

// columnsKey is the footer metadata key holding the feature column names.
const columnsKey = "keiba_edge.columns"

// featureRecord is one feature row on disk. Feature values are stored as a
// repeated column in table column order; NaN marks a missing value.
type featureRecord struct {
	RaceID      string    `parquet:"name=race_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	HorseNumber int32     `parquet:"name=horse_number, type=INT32"`
	Date        int64     `parquet:"name=date, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Label       *int32    `parquet:"name=label, type=INT32, repetitiontype=OPTIONAL"`
	Values      []float64 `parquet:"name=values, type=DOUBLE, repetitiontype=REPEATED"`
}

// ParquetOptions holds Parquet-specific configuration
type ParquetOptions struct {
	Compression string
	Parallelism int64
}

// DefaultParquetOptions returns sensible defaults
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		Parallelism: 4,
	}
}

// WriteFeatureTable writes table to path as a parquet file
func WriteFeatureTable(path string, table *features.FeatureTable, opts ParquetOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(featureRecord), parallelism(opts))
	if err != nil {
		return fmt.Errorf("new parquet writer: %w", err)
	}

	switch strings.ToLower(opts.Compression) {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}
	value := string(columns)
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{Key: columnsKey, Value: &value})

	for _, row := range table.Rows {
		if len(row.Values) != len(table.Columns) {
			pw.WriteStop()
			return fmt.Errorf("%w: row %s/%d has %d values for %d columns",
				models.ErrSchemaMismatch, row.RaceID, row.HorseNumber, len(row.Values), len(table.Columns))
		}
		if err := pw.Write(toRecord(row)); err != nil {
			pw.WriteStop()
			return fmt.Errorf("write feature record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize feature parquet: %w", err)
	}
	return nil
}

// ReadFeatureTable reads a table written by WriteFeatureTable
func ReadFeatureTable(path string, opts ParquetOptions) (*features.FeatureTable, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(featureRecord), parallelism(opts))
	if err != nil {
		return nil, fmt.Errorf("new parquet reader: %w", err)
	}
	defer pr.ReadStop()

	table := &features.FeatureTable{}
	found := false
	for _, kv := range pr.Footer.KeyValueMetadata {
		if kv.Key != columnsKey || kv.Value == nil {
			continue
		}
		if err := json.Unmarshal([]byte(*kv.Value), &table.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode columns: %w", err)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: %s has no column metadata", models.ErrSchemaMismatch, path)
	}

	n := int(pr.GetNumRows())
	records := make([]featureRecord, n)
	if n > 0 {
		if err := pr.Read(&records); err != nil {
			return nil, fmt.Errorf("read feature records: %w", err)
		}
	}
	table.Rows = make([]features.FeatureRow, len(records))
	for i, record := range records {
		row := fromRecord(record)
		if len(row.Values) != len(table.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns",
				models.ErrSchemaMismatch, i, len(row.Values), len(table.Columns))
		}
		table.Rows[i] = row
	}
	return table, nil
}

func toRecord(row features.FeatureRow) featureRecord {
	record := featureRecord{
		RaceID:      row.RaceID,
		HorseNumber: int32(row.HorseNumber),
		Date:        row.Date.UnixMilli(),
		Values:      row.Values,
	}
	if row.Label != nil {
		label := int32(*row.Label)
		record.Label = &label
	}
	return record
}

func fromRecord(record featureRecord) features.FeatureRow {
	row := features.FeatureRow{
		RaceID:      record.RaceID,
		HorseNumber: int(record.HorseNumber),
		Date:        time.UnixMilli(record.Date).UTC(),
		Values:      record.Values,
	}
	if row.Values == nil {
		row.Values = []float64{}
	}
	if record.Label != nil {
		label := int(*record.Label)
		row.Label = &label
	}
	return row
}

func parallelism(opts ParquetOptions) int64 {
	if opts.Parallelism <= 0 {
		return 1
	}
	return opts.Parallelism
}
