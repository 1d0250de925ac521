package stats

import (
	mstats "github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Summary holds descriptive statistics of one series
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	P95    float64
}

// Summarize computes a Summary over values
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, errors.New("no values to summarize")
	}
	data := mstats.Float64Data(values)

	var (
		s   Summary
		err error
	)
	if s.Min, err = mstats.Min(data); err != nil {
		return Summary{}, errors.Wrap(err, "min")
	}
	if s.Max, err = mstats.Max(data); err != nil {
		return Summary{}, errors.Wrap(err, "max")
	}
	if s.Mean, err = mstats.Mean(data); err != nil {
		return Summary{}, errors.Wrap(err, "mean")
	}
	if s.Median, err = mstats.Median(data); err != nil {
		return Summary{}, errors.Wrap(err, "median")
	}
	if s.P95, err = mstats.Percentile(data, 95); err != nil {
		return Summary{}, errors.Wrap(err, "95th percentile")
	}
	return s, nil
}
