// Package expfile reads the plain-text experiment description:
//
//	# comment lines start with '#' or '!'
//	10        <- n, observed events in the signal region
//	5         <- s, expected signal events for mu = 1
//	20 2      <- m tau, one line per background control region
package expfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"sigcalc/domain/experiment"
	"sigcalc/internal/errors"
)

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (experiment.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return experiment.Experiment{}, errors.IOError(fmt.Sprintf("couldn't open input file %s", path), err)
	}
	defer f.Close()

	exp, err := Read(f)
	if err != nil {
		return experiment.Experiment{}, errors.Wrapf(err, "reading %s", path)
	}
	return exp, nil
}

// Read parses an experiment description. Blank lines are ignored along with
// comments; anything after the expected fields on a line is ignored too.
func Read(r io.Reader) (experiment.Experiment, error) {
	var (
		n, s     float64
		m, tau   []float64
		dataLine int
		lineNum  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		dataLine++

		switch dataLine {
		case 1:
			v, err := parseField(fields[0], lineNum, "n")
			if err != nil {
				return experiment.Experiment{}, err
			}
			n = v
		case 2:
			v, err := parseField(fields[0], lineNum, "s")
			if err != nil {
				return experiment.Experiment{}, err
			}
			s = v
		default:
			if len(fields) < 2 {
				return experiment.Experiment{}, errors.InvalidInput(fmt.Sprintf("line %d: expected \"m tau\", got %q", lineNum, line))
			}
			mi, err := parseField(fields[0], lineNum, "m")
			if err != nil {
				return experiment.Experiment{}, err
			}
			ti, err := parseField(fields[1], lineNum, "tau")
			if err != nil {
				return experiment.Experiment{}, err
			}
			m = append(m, mi)
			tau = append(tau, ti)
		}
	}
	if err := scanner.Err(); err != nil {
		return experiment.Experiment{}, errors.IOError("reading experiment description", err)
	}
	if dataLine < 2 {
		return experiment.Experiment{}, errors.InvalidInput(fmt.Sprintf("expected at least n and s, found %d data lines", dataLine))
	}

	exp, err := experiment.New(n, s, m, tau)
	if err != nil {
		return experiment.Experiment{}, errors.Wrap(err, "invalid experiment")
	}
	return exp, nil
}

func parseField(field string, lineNum int, name string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("line %d: %s: cannot parse %q as a number", lineNum, name, field))
	}
	return v, nil
}

// Write renders exp in the format Read accepts.
func Write(w io.Writer, exp experiment.Experiment) error {
	var b strings.Builder
	b.WriteString("# n\n")
	b.WriteString(strconv.FormatFloat(exp.N(), 'g', -1, 64) + "\n")
	b.WriteString("# s\n")
	b.WriteString(strconv.FormatFloat(exp.S(), 'g', -1, 64) + "\n")
	if exp.NumBck() > 0 {
		b.WriteString("# m tau\n")
	}
	for _, c := range exp.Channels() {
		fmt.Fprintf(&b, "%s %s\n", strconv.FormatFloat(c.M, 'g', -1, 64), strconv.FormatFloat(c.Tau, 'g', -1, 64))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
