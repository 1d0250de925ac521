package plot

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/estesp/pplot/series"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

const (
	pixelsPerCM   = 96 / 2.54
	defaultWidth  = "100%"
	defaultHeight = "400px"
	xAxisLabel    = "Elapsed Time (s)"
)

// Options controls the rendered page
type Options struct {
	Title   string
	Columns []series.Column
	Grid    bool
	Legend  bool
	// WidthCM and HeightCM size each chart; zero keeps the default size
	WidthCM  float64
	HeightCM float64
}

// Render writes an HTML page with one chart per column of t. It reports false
// without writing anything when the table has no rows.
func Render(w io.Writer, t *series.Table, o Options) (bool, error) {
	if len(t.Rows) == 0 {
		return false, nil
	}
	if len(o.Columns) == 0 {
		return false, errors.New("no columns to plot")
	}

	page := components.NewPage()
	page.PageTitle = o.Title
	if page.PageTitle == "" {
		page.PageTitle = "Process resource usage"
	}

	xLabels := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		xLabels[i] = strconv.FormatFloat(row.Elapsed, 'f', 2, 64)
	}

	for i, col := range o.Columns {
		title := ""
		if i == 0 {
			title = o.Title
		}
		page.AddCharts(newChart(t, col, xLabels, title, o))
	}

	if err := page.Render(w); err != nil {
		return false, errors.Wrap(err, "failed to render charts")
	}
	return true, nil
}

// RenderFile renders t into an HTML file at path
func RenderFile(path string, t *series.Table, o Options) (bool, error) {
	if len(t.Rows) == 0 {
		return false, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return false, errors.Wrapf(err, "failed to create %q", path)
	}
	ok, err := Render(f, t, o)
	if err != nil {
		f.Close()
		return false, err
	}
	return ok, errors.Wrapf(f.Close(), "failed to close %q", path)
}

func newChart(t *series.Table, col series.Column, xLabels []string, title string, o Options) *charts.Line {
	line := charts.NewLine()

	size := opts.Initialization{Width: defaultWidth, Height: defaultHeight}
	if o.WidthCM > 0 {
		size.Width = cmToPixels(o.WidthCM)
	}
	if o.HeightCM > 0 {
		size.Height = cmToPixels(o.HeightCM)
	}

	stacked := t.Mode == series.Stacked
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: col.Label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(o.Legend && stacked), Right: "0"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      xAxisLabel,
			Type:      "category",
			SplitLine: &opts.SplitLine{Show: opts.Bool(o.Grid)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      col.Label,
			Type:      "value",
			SplitLine: &opts.SplitLine{Show: opts.Bool(o.Grid)},
		}),
		charts.WithInitializationOpts(size),
	)
	line.SetXAxis(xLabels)

	if !stacked {
		line.AddSeries(col.Label, lineData(col.Totals(t)),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
		return line
	}

	for _, s := range orderByLastValue(t, col) {
		line.AddSeries(s.Label, lineData(col.Values(t, s.Key)),
			charts.WithLineChartOpts(opts.LineChart{Stack: "processes", ShowSymbol: opts.Bool(false)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.6)}),
		)
	}
	return line
}

// orderByLastValue sorts series by their value in the final row, largest
// first, keeping table order for ties
func orderByLastValue(t *series.Table, col series.Column) []series.Series {
	out := make([]series.Series, len(t.Series))
	copy(out, t.Series)
	last := t.Rows[len(t.Rows)-1]
	sort.SliceStable(out, func(i, j int) bool {
		return last.Values[out[i].Key].Value(col.Metric) > last.Values[out[j].Key].Value(col.Metric)
	})
	return out
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func cmToPixels(cm float64) string {
	return fmt.Sprintf("%.0fpx", cm*pixelsPerCM)
}
