package expfile

import (
	"fmt"
	"io"

	"sigcalc/domain/experiment"
)

// ChannelSummary is the stand-alone background estimate of one control region.
type ChannelSummary struct {
	Index    int     `json:"index"`
	M        float64 `json:"m"`
	Tau      float64 `json:"tau"`
	Estimate float64 `json:"estimate"`
}

// Summary describes an experiment before any fit is run.
type Summary struct {
	N                   float64          `json:"n"`
	S                   float64          `json:"s"`
	Channels            []ChannelSummary `json:"channels"`
	EstimatedBackground float64          `json:"estimated_background"`
}

// Summarize collects the per-channel estimates m/tau and their sum.
func Summarize(exp experiment.Experiment) Summary {
	sum := Summary{
		N:                   exp.N(),
		S:                   exp.S(),
		Channels:            make([]ChannelSummary, exp.NumBck()),
		EstimatedBackground: exp.EstimatedBackground(),
	}
	for i, c := range exp.Channels() {
		sum.Channels[i] = ChannelSummary{Index: i, M: c.M, Tau: c.Tau, Estimate: c.Estimate()}
	}
	return sum
}

// WriteTo prints the summary in the calculator's plain-text layout.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	if err := write("n = %g\ns = %g\n", s.N, s.S); err != nil {
		return total, err
	}
	for _, c := range s.Channels {
		if err := write("m[%d]  = %g,   tau[%d]  = %g\n", c.Index, c.M, c.Index, c.Tau); err != nil {
			return total, err
		}
	}
	if err := write("estimated total background = %g\n", s.EstimatedBackground); err != nil {
		return total, err
	}
	return total, nil
}
