package significance

import (
	"math"

	"sigcalc/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// PValue is the one-sided p-value 1 - Phi(z).
func PValue(z float64) float64 {
	return distuv.UnitNormal.Survival(z)
}

// ZFromPValue inverts PValue: Phi^-1(1 - p).
func ZFromPValue(p float64) float64 {
	return -distuv.UnitNormal.Quantile(p)
}

// FromStatistic converts a test statistic q into Z = sqrt(q) and its p-value.
func FromStatistic(q float64) stats.Significance {
	z := math.Sqrt(math.Max(q, 0))
	return stats.Significance{Z: z, PValue: PValue(z)}
}
