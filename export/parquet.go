package export

import (
	"os"

	"github.com/estesp/pplot/monitor"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// WriteParquetFile writes the samples of run to a snappy-compressed Parquet
// file at path
func WriteParquetFile(path string, run *monitor.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}

	w := parquet.NewGenericWriter[sampleRecord](f, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(toRecords(run)); err != nil {
		w.Close()
		f.Close()
		return errors.Wrap(err, "failed to write parquet rows")
	}
	if err := w.Close(); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to close parquet writer")
	}
	return errors.Wrapf(f.Close(), "failed to close %q", path)
}

// ReadParquetFile reads samples written by WriteParquetFile
func ReadParquetFile(path string) (*monitor.RunResult, error) {
	records, err := parquet.ReadFile[sampleRecord](path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read parquet file %q", path)
	}
	return fromRecords(records)
}
