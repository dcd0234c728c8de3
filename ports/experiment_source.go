package ports

import (
	"sigcalc/domain/experiment"
)

// ExperimentSource loads an experiment description by name (usually a file path)
type ExperimentSource interface {
	Load(name string) (experiment.Experiment, error)
}

// ExperimentSourceFunc adapts a plain function to ExperimentSource
type ExperimentSourceFunc func(name string) (experiment.Experiment, error)

// Load calls f(name)
func (f ExperimentSourceFunc) Load(name string) (experiment.Experiment, error) {
	return f(name)
}
