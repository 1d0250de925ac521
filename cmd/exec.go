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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estesp/pplot/export"
	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/series"
	"github.com/estesp/pplot/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	defaultOutFolder = "pplot_out"
	basenameLayout   = "20060102150405"

	exportCSV     = "csv"
	exportParquet = "parquet"
)

var (
	configFile    string
	interval      float64
	timeout       float64
	child         bool
	noChild       bool
	commandOutput string
	outFolder     string
	basename      string
	exports       []string
	quiet         bool
	execPlot      plotSettings
)

// runProfile is the YAML form of an exec invocation, loaded with --config
type runProfile struct {
	monitor.Config `yaml:",inline"`
	Export         []string     `yaml:"export"`
	Plot           plotSettings `yaml:"plot"`
}

func defaultProfile() runProfile {
	cfg := monitor.DefaultConfig()
	cfg.Output.Dir = defaultOutFolder
	return runProfile{
		Config: cfg,
		Export: []string{exportCSV},
		Plot:   defaultPlotSettings(),
	}
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] COMMAND",
	Short: "Run a command and profile its memory/CPU usage",
	Long: `The COMMAND string is launched and the memory and CPU usage of the process
and its descendants is sampled at a fixed interval until it exits or reaches the
timeout. The samples are written to the output folder and the selected columns
are plotted. Quote COMMAND when it carries its own arguments, for example:

  pplot exec -i 0.5 "python train.py --epochs 3"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyQuiet(quiet)

		profile, err := buildProfile(cmd, args)
		if err != nil {
			return err
		}
		options, err := profile.Plot.options(profile.Command)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		run, err := monitor.NewOrchestrator().Run(ctx, profile.Config)
		if err != nil {
			if monitor.IsLaunchFailure(err) {
				return errors.Wrap(err, "unable to launch command")
			}
			return err
		}
		log.Infof("Total run time: %.3f seconds", time.Since(start).Seconds())
		if run.Interrupted {
			log.Warn("Run was interrupted; writing the samples collected so far")
		}

		paths, err := writeRun(run, profile)
		if err != nil {
			return err
		}

		table := series.Aggregate(run, profile.Plot.StackProcesses)
		if !quiet {
			outputRunDetails(cmd.OutOrStdout(), run)
			outputSummary(cmd.OutOrStdout(), table, options.Columns)
		}
		return renderPlot(paths.Plot, table, options)
	},
}

// buildProfile layers the defaults, the optional --config file and any
// explicitly set flags, in that order
func buildProfile(cmd *cobra.Command, args []string) (runProfile, error) {
	profile := defaultProfile()
	if configFile != "" {
		var err error
		if profile, err = readYaml(configFile); err != nil {
			return profile, errors.Wrapf(err, "error reading config file %q", configFile)
		}
	}

	flags := cmd.Flags()
	if len(args) == 1 {
		profile.Command = args[0]
	}
	if profile.Command == "" {
		return profile, errors.New("no command given; pass COMMAND or set 'command:' in --config")
	}
	if flags.Changed("interval") {
		profile.Interval = utils.SecondsToDuration(interval)
	}
	if flags.Changed("timeout") {
		profile.Timeout = utils.SecondsToDuration(timeout)
	}
	if flags.Changed("child") {
		profile.Children = child
	}
	if noChild {
		profile.Children = false
	}
	if flags.Changed("command-output") {
		mode, err := utils.StringToMode(commandOutput)
		if err != nil {
			return profile, err
		}
		profile.Output.Mode = mode
	}
	if flags.Changed("outfolder") {
		profile.Output.Dir = outFolder
	}
	if flags.Changed("basename") {
		profile.Output.Basename = basename
	}
	if profile.Output.Basename == "" {
		profile.Output.Basename = time.Now().Format(basenameLayout)
	}
	if flags.Changed("export") {
		profile.Export = exports
	}
	for _, e := range profile.Export {
		if e != exportCSV && e != exportParquet {
			return profile, errors.Errorf("unknown export format %q; expected %s or %s", e, exportCSV, exportParquet)
		}
	}
	mergePlotFlags(flags, execPlot, &profile.Plot)
	return profile, nil
}

// writeRun writes the sample exports and the run metadata of run into the
// profile's output folder
func writeRun(run *monitor.RunResult, profile runProfile) (export.Paths, error) {
	paths := export.NewPaths(profile.Output.Dir, profile.Output.Basename)
	if err := os.MkdirAll(profile.Output.Dir, 0o755); err != nil {
		return paths, errors.Wrapf(err, "failed to create output folder %q", profile.Output.Dir)
	}
	for _, e := range profile.Export {
		switch e {
		case exportCSV:
			log.Infof("Writing samples to: %s", paths.CSV)
			if err := export.WriteCSVFile(paths.CSV, run); err != nil {
				return paths, err
			}
		case exportParquet:
			log.Infof("Writing samples to: %s", paths.Parquet)
			if err := export.WriteParquetFile(paths.Parquet, run); err != nil {
				return paths, err
			}
		}
	}
	return paths, export.WriteMetadataFile(paths.Metadata, run)
}

func outputRunDetails(w io.Writer, run *monitor.RunResult) {
	exit := "n/a"
	if run.ExitCode != nil {
		exit = fmt.Sprintf("%d", *run.ExitCode)
	}
	fmt.Fprintf(w, "Run %s\n", run.RunID)
	fmt.Fprintf(w, "  command:   %s\n", run.Command)
	fmt.Fprintf(w, "  root:      %s\n", run.Root)
	fmt.Fprintf(w, "  elapsed:   %.3fs\n", run.Elapsed().Seconds())
	fmt.Fprintf(w, "  ticks:     %d\n", run.Ticks())
	fmt.Fprintf(w, "  exit code: %s\n", exit)
	if run.TimedOut {
		fmt.Fprintf(w, "  timed out, terminated %d process(es)\n", len(run.Terminated))
	}
	fmt.Fprintln(w)
}

func readYaml(filename string) (runProfile, error) {
	profile := defaultProfile()
	data, err := os.ReadFile(filename)
	if err != nil {
		return profile, errors.Wrapf(err, "can't read YAML file %q", filename)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, errors.Wrapf(err, "can't unmarshal YAML file %q", filename)
	}
	return profile, nil
}

func init() {
	RootCmd.AddCommand(execCmd)
	defaults := defaultProfile()
	flags := execCmd.Flags()
	flags.StringVar(&configFile, "config", "", "YAML file with a run profile")
	flags.Float64VarP(&interval, "interval", "i", defaults.Interval.Seconds(), "Sampling interval in seconds")
	flags.Float64VarP(&timeout, "timeout", "t", 0, "Seconds before the process is terminated (0 waits forever)")
	flags.BoolVar(&child, "child", defaults.Children, "Include children processes")
	flags.BoolVar(&noChild, "no-child", false, "Only monitor the main process")
	flags.StringVarP(&commandOutput, "command-output", "c", utils.ModeToString(defaults.Output.Mode), "Output of the command: hide, screen or file")
	flags.StringVarP(&outFolder, "outfolder", "o", defaults.Output.Dir, "Folder where the output files are written")
	flags.StringVarP(&basename, "basename", "n", "", "Basename of the output files (defaults to the start time)")
	flags.StringSliceVar(&exports, "export", defaults.Export, "Sample export formats: csv, parquet")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only print warnings and errors")
	addPlotFlags(execCmd, &execPlot)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
