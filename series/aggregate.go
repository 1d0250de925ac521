package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/stats"
)

// Mode selects how per-process samples are combined
type Mode int

const (
	// Summed adds all present processes into one series
	Summed Mode = iota
	// Stacked keeps one series per process
	Stacked
)

func (m Mode) String() string {
	if m == Stacked {
		return "stacked"
	}
	return "summed"
}

// SummedKey is the only series key of a Summed table
const SummedKey = "total"

// Series describes one series of a Table
type Series struct {
	Key      string
	Label    string
	Identity stats.Identity
	Main     bool
}

// Row holds the values of every series at one tick
type Row struct {
	Tick     int
	WallTime time.Time
	// Elapsed is seconds since the start of the run
	Elapsed float64
	Values  map[string]stats.ProcMetrics
}

// Table is the time series handed to plotting
type Table struct {
	Mode   Mode
	Series []Series
	Rows   []Row
}

// Aggregate turns the samples of a run into a Table. It does not modify run
// and returns equal tables for equal inputs.
func Aggregate(run *monitor.RunResult, stackProcesses bool) *Table {
	ticks := groupByTick(run.Samples)

	if !stackProcesses {
		t := &Table{
			Mode:   Summed,
			Series: []Series{{Key: SummedKey, Label: "Total"}},
			Rows:   make([]Row, 0, len(ticks)),
		}
		for _, tk := range ticks {
			var sum stats.ProcMetrics
			for _, s := range tk.samples {
				if s.Present {
					sum = sum.Add(s.Metrics)
				}
			}
			t.Rows = append(t.Rows, newRow(run, tk, map[string]stats.ProcMetrics{SummedKey: sum}))
		}
		return t
	}

	t := &Table{
		Mode:   Stacked,
		Series: collectSeries(run),
		Rows:   make([]Row, 0, len(ticks)),
	}
	for _, tk := range ticks {
		values := make(map[string]stats.ProcMetrics, len(t.Series))
		for _, s := range t.Series {
			values[s.Key] = stats.ProcMetrics{}
		}
		for _, s := range tk.samples {
			if s.Present {
				values[s.Identity.Key()] = s.Metrics
			}
		}
		t.Rows = append(t.Rows, newRow(run, tk, values))
	}
	return t
}

type tickSamples struct {
	tick    int
	samples []monitor.Sample
}

// groupByTick buckets samples by tick index in ascending order
func groupByTick(samples []monitor.Sample) []tickSamples {
	byTick := make(map[int][]monitor.Sample)
	var order []int
	for _, s := range samples {
		if _, ok := byTick[s.Tick]; !ok {
			order = append(order, s.Tick)
		}
		byTick[s.Tick] = append(byTick[s.Tick], s)
	}
	sort.Ints(order)

	out := make([]tickSamples, 0, len(order))
	for _, tick := range order {
		out = append(out, tickSamples{tick: tick, samples: byTick[tick]})
	}
	return out
}

func newRow(run *monitor.RunResult, tk tickSamples, values map[string]stats.ProcMetrics) Row {
	wall := tk.samples[0].WallTime
	row := Row{Tick: tk.tick, WallTime: wall, Values: values}
	if !run.StartedAt.IsZero() {
		row.Elapsed = wall.Sub(run.StartedAt).Seconds()
	}
	return row
}

// collectSeries lists every identity seen in the run, root first, then in
// order of first appearance
func collectSeries(run *monitor.RunResult) []Series {
	var (
		out    []Series
		seen   = make(map[string]bool)
		pidUse = make(map[int32]int)
	)
	add := func(id stats.Identity) {
		if seen[id.Key()] {
			return
		}
		seen[id.Key()] = true
		pidUse[id.PID]++

		main := run.IsMain(id)
		kind := "Child"
		if main {
			kind = "Main"
		}
		label := fmt.Sprintf("%s (%d)", kind, id.PID)
		if n := pidUse[id.PID]; n > 1 {
			label = fmt.Sprintf("%s #%d", label, n)
		}
		out = append(out, Series{Key: id.Key(), Label: label, Identity: id, Main: main})
	}

	for _, s := range run.Samples {
		if run.IsMain(s.Identity) {
			add(s.Identity)
			break
		}
	}
	for _, s := range run.Samples {
		add(s.Identity)
	}
	return out
}

// Values returns the raw values of metric for the series key, one per row
func (t *Table) Values(key string, metric stats.Metric) []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Values[key].Value(metric)
	}
	return out
}

// Totals returns metric summed over all series, one value per row
func (t *Table) Totals(metric stats.Metric) []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		for _, s := range t.Series {
			out[i] += row.Values[s.Key].Value(metric)
		}
	}
	return out
}

// Elapsed returns the elapsed seconds of every row
func (t *Table) Elapsed() []float64 {
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Elapsed
	}
	return out
}
