package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"abchat/internal/apperr"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// TTest is the result of a two-sample Student t-test with pooled variance.
// Statistic is positive when the second sample has the larger mean.
type TTest struct {
	Statistic float64  `json:"t_statistic"`
	PValue    float64  `json:"p_value"`
	DF        float64  `json:"degrees_of_freedom"`
	MeanDiff  float64  `json:"mean_difference"`
	DiffCI    Interval `json:"mean_difference_ci"`
}

// ChiSquare is the result of a 2x2 contingency test with Yates continuity correction.
type ChiSquare struct {
	Statistic float64 `json:"chi2_statistic"`
	PValue    float64 `json:"p_value"`
	DF        int     `json:"degrees_of_freedom"`
}

// Confidence is the level used for every interval.
const Confidence = 0.95

// Lift returns the relative change of treatment over control in percent.
func Lift(treatment, control float64) (float64, error) {
	if control == 0 {
		return 0, apperr.New(apperr.KindDivisionByZero, "lift undefined: control value is zero")
	}
	return (treatment - control) / control * 100, nil
}

// StudentT compares the means of control and treatment, assuming equal variances.
// Fewer than two observations in either sample, or zero pooled variance, is degenerate.
func StudentT(control, treatment []float64) (TTest, error) {
	n1, n2 := float64(len(control)), float64(len(treatment))
	if len(control) < 2 || len(treatment) < 2 {
		return TTest{}, apperr.Degenerate("insufficient data: t-test needs at least 2 rows per arm")
	}
	m1, v1 := stat.MeanVariance(control, nil)
	m2, v2 := stat.MeanVariance(treatment, nil)
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled <= 0 || math.IsNaN(pooled) {
		return TTest{}, apperr.Degenerate("insufficient data: zero variance in both arms")
	}
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	t := (m2 - m1) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	crit := dist.Quantile(1 - (1-Confidence)/2)
	diff := m2 - m1
	return TTest{
		Statistic: t,
		PValue:    math.Min(1, 2*dist.Survival(math.Abs(t))),
		DF:        df,
		MeanDiff:  diff,
		DiffCI:    Interval{Low: diff - crit*se, High: diff + crit*se},
	}, nil
}

// ChiSquare2x2 tests conversions against non-conversions for the two arms.
// A zero expected cell is degenerate.
func ChiSquare2x2(controlConv, controlUsers, treatConv, treatUsers int) (ChiSquare, error) {
	observed := [2][2]float64{
		{float64(controlConv), float64(controlUsers - controlConv)},
		{float64(treatConv), float64(treatUsers - treatConv)},
	}
	rowSum := [2]float64{observed[0][0] + observed[0][1], observed[1][0] + observed[1][1]}
	colSum := [2]float64{observed[0][0] + observed[1][0], observed[0][1] + observed[1][1]}
	total := rowSum[0] + rowSum[1]
	if total == 0 {
		return ChiSquare{}, apperr.Degenerate("insufficient data: no users in either arm")
	}
	chi2 := 0.0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			expected := rowSum[i] * colSum[j] / total
			if expected == 0 {
				return ChiSquare{}, apperr.Degenerate("insufficient data: zero expected frequency in contingency table")
			}
			diff := math.Abs(observed[i][j] - expected)
			diff -= math.Min(0.5, diff)
			chi2 += diff * diff / expected
		}
	}
	return ChiSquare{
		Statistic: chi2,
		PValue:    distuv.ChiSquared{K: 1}.Survival(chi2),
		DF:        1,
	}, nil
}

// Wilson returns the Wilson score interval for successes out of n trials.
func Wilson(successes, n int) (Interval, bool) {
	if n <= 0 {
		return Interval{}, false
	}
	z := distuv.UnitNormal.Quantile(1 - (1-Confidence)/2)
	fn := float64(n)
	p := float64(successes) / fn
	z2 := z * z
	denom := 1 + z2/fn
	center := (p + z2/(2*fn)) / denom
	half := z * math.Sqrt(p*(1-p)/fn+z2/(4*fn*fn)) / denom
	return Interval{Low: math.Max(0, center-half), High: math.Min(1, center+half)}, true
}
