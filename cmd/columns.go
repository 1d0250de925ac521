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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/estesp/pplot/export"
	"github.com/estesp/pplot/series"
	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the sample and plot columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return outputColumns(cmd.OutOrStdout())
	},
}

func outputColumns(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Sample columns:")
	for _, c := range export.SampleColumns {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Description)
	}
	fmt.Fprintln(tw, "\nPlot columns (--plot-cols):")
	for _, c := range series.Columns {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Label)
	}
	return tw.Flush()
}

func init() {
	RootCmd.AddCommand(columnsCmd)
}
