package series

import (
	"strings"

	"github.com/estesp/pplot/stats"
	"github.com/pkg/errors"
)

const bytesInMiB = 1024 * 1024

// Column is a plottable metric with its axis label and display scale
type Column struct {
	Name   string
	Metric stats.Metric
	Label  string
	Scale  float64
}

// Columns lists every plottable column
var Columns = []Column{
	{Name: "memory_rss", Metric: stats.MemoryRSS, Label: "RSS Memory (MB)", Scale: 1.0 / bytesInMiB},
	{Name: "memory_vms", Metric: stats.MemoryVMS, Label: "VMS Memory (MB)", Scale: 1.0 / bytesInMiB},
	{Name: "cpu_percent", Metric: stats.CPUPercent, Label: "CPU Usage (%)", Scale: 1},
	{Name: "cpu_time_user", Metric: stats.CPUTimeUser, Label: "CPU Time, user (s)", Scale: 1},
	{Name: "cpu_time_sys", Metric: stats.CPUTimeSys, Label: "CPU Time, system (s)", Scale: 1},
	{Name: "threads_num", Metric: stats.ThreadsNum, Label: "# threads", Scale: 1},
	{Name: "files_num", Metric: stats.FilesNum, Label: "# files", Scale: 1},
}

// DefaultColumns are plotted when no columns are requested
var DefaultColumns = []string{"memory_rss", "cpu_percent"}

// LookupColumn finds a column by name
func LookupColumn(name string) (Column, error) {
	for _, c := range Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, errors.Errorf("unknown column %q", name)
}

// ParseColumns resolves column names, accepting comma-delimited entries
func ParseColumns(names []string) ([]Column, error) {
	var out []Column
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			c, err := LookupColumn(name)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no columns selected")
	}
	return out, nil
}

// Values returns the scaled values of the column for the series key
func (c Column) Values(t *Table, key string) []float64 {
	return c.scale(t.Values(key, c.Metric))
}

// Totals returns the scaled column summed over all series
func (c Column) Totals(t *Table) []float64 {
	return c.scale(t.Totals(c.Metric))
}

func (c Column) scale(values []float64) []float64 {
	for i := range values {
		values[i] *= c.Scale
	}
	return values
}
