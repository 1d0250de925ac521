package export

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/estesp/pplot/monitor"
	"github.com/estesp/pplot/stats"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata is the run-level information stored next to the sample files
type Metadata struct {
	RunID          string        `yaml:"run_id"`
	Command        string        `yaml:"command"`
	RootPID        int32         `yaml:"root_pid"`
	RootCreateTime time.Time     `yaml:"root_create_time"`
	Interval       time.Duration `yaml:"interval"`
	StartedAt      time.Time     `yaml:"started_at"`
	EndedAt        time.Time     `yaml:"ended_at"`
	ExitCode       *int          `yaml:"exit_code"`
	TimedOut       bool          `yaml:"timed_out"`
	Interrupted    bool          `yaml:"interrupted"`
	Terminated     []int32       `yaml:"terminated,omitempty"`
	Ticks          int           `yaml:"ticks"`
	Samples        int           `yaml:"samples"`
}

// NewMetadata extracts the run-level fields of run
func NewMetadata(run *monitor.RunResult) Metadata {
	m := Metadata{
		RunID:          run.RunID,
		Command:        run.Command,
		RootPID:        run.Root.PID,
		RootCreateTime: run.Root.CreateTime,
		Interval:       run.Interval,
		StartedAt:      run.StartedAt,
		EndedAt:        run.EndedAt,
		ExitCode:       run.ExitCode,
		TimedOut:       run.TimedOut,
		Interrupted:    run.Interrupted,
		Ticks:          run.Ticks(),
		Samples:        len(run.Samples),
	}
	for _, id := range run.Terminated {
		m.Terminated = append(m.Terminated, id.PID)
	}
	return m
}

// Apply copies the run-level fields onto a run read back from a sample file
func (m Metadata) Apply(run *monitor.RunResult) {
	run.RunID = m.RunID
	run.Command = m.Command
	run.Root = stats.Identity{PID: m.RootPID, CreateTime: m.RootCreateTime}
	run.Interval = m.Interval
	run.StartedAt = m.StartedAt
	run.EndedAt = m.EndedAt
	run.ExitCode = m.ExitCode
	run.TimedOut = m.TimedOut
	run.Interrupted = m.Interrupted
}

// WriteMetadataFile writes the metadata of run as YAML
func WriteMetadataFile(path string, run *monitor.RunResult) error {
	out, err := yaml.Marshal(NewMetadata(run))
	if err != nil {
		return errors.Wrap(err, "failed to marshal run metadata")
	}
	return errors.Wrapf(os.WriteFile(path, out, 0o644), "failed to write %q", path)
}

// ReadMetadataFile reads YAML run metadata
func ReadMetadataFile(path string) (Metadata, error) {
	var m Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return m, errors.Wrapf(err, "can't read metadata file %q", path)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, errors.Wrapf(err, "can't unmarshal metadata file %q", path)
	}
	return m, nil
}

// Paths names the files written for one run
type Paths struct {
	CSV      string
	Parquet  string
	Metadata string
	Plot     string
}

// NewPaths returns the output file paths for basename in dir
func NewPaths(dir, basename string) Paths {
	base := filepath.Join(dir, basename)
	return Paths{
		CSV:      base + ".csv",
		Parquet:  base + ".parquet",
		Metadata: base + ".yaml",
		Plot:     base + ".html",
	}
}

// SiblingPaths returns the paths belonging to an existing sample file
func SiblingPaths(samplePath string) Paths {
	ext := filepath.Ext(samplePath)
	return NewPaths(filepath.Dir(samplePath), strings.TrimSuffix(filepath.Base(samplePath), ext))
}

// ReadSamplesFile reads a .csv or .parquet sample file, applying the sibling
// metadata file when one exists
func ReadSamplesFile(path string) (*monitor.RunResult, error) {
	var (
		run *monitor.RunResult
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		run, err = ReadCSVFile(path)
	case ".parquet":
		run, err = ReadParquetFile(path)
	default:
		return nil, errors.Errorf("unsupported sample file %q; expected .csv or .parquet", path)
	}
	if err != nil {
		return nil, err
	}

	metaPath := SiblingPaths(path).Metadata
	if _, statErr := os.Stat(metaPath); statErr == nil {
		meta, err := ReadMetadataFile(metaPath)
		if err != nil {
			return nil, err
		}
		meta.Apply(run)
	}
	return run, nil
}
