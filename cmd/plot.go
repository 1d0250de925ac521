// Copyright © 2016 Phil Estes <estesp@gmail.com>
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
	"github.com/estesp/pplot/export"
	"github.com/estesp/pplot/series"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var replotSettings plotSettings

var plotCmd = &cobra.Command{
	Use:   "plot FILE",
	Short: "Plot the samples of a previous run",
	Long: `FILE is a .csv or .parquet sample file written by exec. When the matching
.yaml metadata file sits next to it, the run details (command, exit code, ...)
are restored as well. The plot is written next to FILE with an .html extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyQuiet(quiet)

		settings := defaultPlotSettings()
		mergePlotFlags(cmd.Flags(), replotSettings, &settings)

		run, err := export.ReadSamplesFile(args[0])
		if err != nil {
			return err
		}
		log.WithField("run", run.RunID).Debugf("read %d samples over %d ticks", len(run.Samples), run.Ticks())

		options, err := settings.options(run.Command)
		if err != nil {
			return err
		}
		table := series.Aggregate(run, settings.StackProcesses)
		if !quiet {
			outputSummary(cmd.OutOrStdout(), table, options.Columns)
		}
		return renderPlot(export.SiblingPaths(args[0]).Plot, table, options)
	},
}

func init() {
	RootCmd.AddCommand(plotCmd)
	plotCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print warnings and errors")
	addPlotFlags(plotCmd, &replotSettings)
}
