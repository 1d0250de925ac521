// Copyright © 2016 Phil Estes
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"io"

	"github.com/estesp/pplot/plot"
	"github.com/estesp/pplot/series"
	"github.com/estesp/pplot/stats"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// plotSettings holds the plot options shared by the exec and plot commands
type plotSettings struct {
	Columns        []string `yaml:"plot_cols"`
	StackProcesses bool     `yaml:"stack_processes"`
	Title          string   `yaml:"title"`
	Grid           bool     `yaml:"grid"`
	Legend         bool     `yaml:"legend"`
	Width          float64  `yaml:"size_width"`
	Height         float64  `yaml:"size_height"`
}

func defaultPlotSettings() plotSettings {
	return plotSettings{
		Columns: series.DefaultColumns,
		Grid:    true,
	}
}

func addPlotFlags(cmd *cobra.Command, p *plotSettings) {
	flags := cmd.Flags()
	defaults := defaultPlotSettings()
	flags.StringSliceVarP(&p.Columns, "plot-cols", "p", defaults.Columns, "Columns to plot (comma-delimited)")
	flags.BoolVar(&p.StackProcesses, "stack-processes", defaults.StackProcesses, "Stack values per process in plot")
	flags.StringVar(&p.Title, "title", "", "Plot title (defaults to command)")
	flags.BoolVar(&p.Grid, "grid", defaults.Grid, "Add grid to plots")
	flags.Bool("no-grid", false, "Do not add grid to plots")
	flags.BoolVar(&p.Legend, "legend", defaults.Legend, "Add legend to figure")
	flags.Bool("no-legend", false, "Do not add legend to figure")
	flags.Float64VarP(&p.Width, "size-width", "W", 0, "Width of plot in cm")
	flags.Float64VarP(&p.Height, "size-height", "H", 0, "Height of plot in cm")
}

// mergePlotFlags copies explicitly set flags over p, which may have been
// loaded from a config file
func mergePlotFlags(flags *pflag.FlagSet, from plotSettings, p *plotSettings) {
	if flags.Changed("plot-cols") {
		p.Columns = from.Columns
	}
	if flags.Changed("stack-processes") {
		p.StackProcesses = from.StackProcesses
	}
	if flags.Changed("title") {
		p.Title = from.Title
	}
	if flags.Changed("grid") {
		p.Grid = from.Grid
	}
	if noGrid, _ := flags.GetBool("no-grid"); noGrid {
		p.Grid = false
	}
	if flags.Changed("legend") {
		p.Legend = from.Legend
	}
	if noLegend, _ := flags.GetBool("no-legend"); noLegend {
		p.Legend = false
	}
	if flags.Changed("size-width") {
		p.Width = from.Width
	}
	if flags.Changed("size-height") {
		p.Height = from.Height
	}
}

func (p plotSettings) options(defaultTitle string) (plot.Options, error) {
	columns, err := series.ParseColumns(p.Columns)
	if err != nil {
		return plot.Options{}, err
	}
	title := p.Title
	if title == "" {
		title = defaultTitle
	}
	return plot.Options{
		Title:    title,
		Columns:  columns,
		Grid:     p.Grid,
		Legend:   p.Legend,
		WidthCM:  p.Width,
		HeightCM: p.Height,
	}, nil
}

// renderPlot writes the plot of table to path and reports whether there was
// anything to plot
func renderPlot(path string, table *series.Table, o plot.Options) error {
	log.Infof("Plotting results to: %s", path)
	plotted, err := plot.RenderFile(path, table, o)
	if err != nil {
		return err
	}
	if !plotted {
		log.Info("No data to plot")
		return nil
	}
	log.Info("Plot written")
	return nil
}

// outputSummary prints statistics of the combined value of each column
func outputSummary(w io.Writer, table *series.Table, columns []series.Column) {
	fmt.Fprintf(w, "%-22s %10s %10s %10s %10s %10s\n", "", "min", "mean", "median", "p95", "max")
	for _, col := range columns {
		summary, err := stats.Summarize(col.Totals(table))
		if err != nil {
			log.WithError(err).Debugf("no summary for %s", col.Name)
			continue
		}
		fmt.Fprintf(w, "%-22s %10.2f %10.2f %10.2f %10.2f %10.2f\n",
			col.Label, summary.Min, summary.Mean, summary.Median, summary.P95, summary.Max)
	}
	fmt.Fprintln(w)
}
