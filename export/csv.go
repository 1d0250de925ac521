package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/pkg/errors"
)

func csvHeader() []string {
	header := make([]string, len(SampleColumns))
	for i, c := range SampleColumns {
		header[i] = c.Name
	}
	return header
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteCSV writes the samples of run as CSV with a header row
func WriteCSV(w io.Writer, run *monitor.RunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader()); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, rec := range toRecords(run) {
		row := []string{
			strconv.FormatInt(rec.Tick, 10),
			time.Unix(0, rec.WallTime).UTC().Format(time.RFC3339Nano),
			rec.Type,
			strconv.FormatInt(int64(rec.PID), 10),
			time.UnixMilli(rec.CreateTime).UTC().Format(time.RFC3339Nano),
			strconv.FormatBool(rec.Present),
			formatFloat(rec.ElapsedSecs),
			formatFloat(rec.CPUTimeUser),
			formatFloat(rec.CPUTimeSys),
			formatFloat(rec.CPUPercent),
			strconv.FormatInt(int64(rec.Threads), 10),
			strconv.FormatInt(rec.RSS, 10),
			strconv.FormatInt(rec.VMS, 10),
			strconv.FormatInt(int64(rec.Files), 10),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write csv row for tick %d", rec.Tick)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// WriteCSVFile writes the samples of run to a CSV file at path
func WriteCSVFile(path string, run *monitor.RunResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	if err := WriteCSV(f, run); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %q", path)
}

// ReadCSV reads samples written by WriteCSV back into a RunResult. Only the
// sample-derived fields (root, start/end time, samples) are filled in.
func ReadCSV(r io.Reader) (*monitor.RunResult, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, c := range SampleColumns {
		if _, ok := index[c.Name]; !ok {
			return nil, errors.Errorf("csv is missing column %q", c.Name)
		}
	}

	var records []sampleRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read csv line %d", line)
		}
		p := fieldParser{row: row, index: index}
		rec := sampleRecord{
			Tick:        p.integer("tick"),
			WallTime:    p.timestamp("wall_time").UnixNano(),
			Type:        p.field("type"),
			PID:         int32(p.integer("pid")),
			CreateTime:  p.timestamp("create_time").UnixMilli(),
			Present:     p.flag("present"),
			ElapsedSecs: p.number("elapsed_secs"),
			CPUTimeUser: p.number("cpu_time_user_secs"),
			CPUTimeSys:  p.number("cpu_time_sys_secs"),
			CPUPercent:  p.number("cpu_percent"),
			Threads:     int32(p.integer("threads_num")),
			RSS:         p.integer("memory_rss_bytes"),
			VMS:         p.integer("memory_vms_bytes"),
			Files:       int32(p.integer("files_num")),
		}
		if p.err != nil {
			return nil, errors.Wrapf(p.err, "csv line %d", line)
		}
		records = append(records, rec)
	}
	return fromRecords(records)
}

// ReadCSVFile reads a CSV sample file from path
func ReadCSVFile(path string) (*monitor.RunResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

// fieldParser parses named fields of a row, keeping the first error
type fieldParser struct {
	row   []string
	index map[string]int
	err   error
}

func (p *fieldParser) field(name string) string {
	return p.row[p.index[name]]
}

func (p *fieldParser) integer(name string) int64 {
	v, err := strconv.ParseInt(p.field(name), 10, 64)
	p.keep(name, err)
	return v
}

func (p *fieldParser) number(name string) float64 {
	v, err := strconv.ParseFloat(p.field(name), 64)
	p.keep(name, err)
	return v
}

func (p *fieldParser) flag(name string) bool {
	v, err := strconv.ParseBool(p.field(name))
	p.keep(name, err)
	return v
}

func (p *fieldParser) timestamp(name string) time.Time {
	v, err := time.Parse(time.RFC3339Nano, p.field(name))
	p.keep(name, err)
	return v
}

func (p *fieldParser) keep(name string, err error) {
	if err != nil && p.err == nil {
		p.err = errors.Wrapf(err, "column %q", name)
	}
}
