package analytics

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/stat"

	"abchat/internal/apperr"
	"abchat/internal/domain"
)

// DefaultThreshold is the significance level used when none is configured.
const DefaultThreshold = 0.05

// Aggregate sums a group of rows.
type Aggregate struct {
	Rows        int     `json:"rows"`
	Users       int     `json:"users"`
	Conversions int     `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	// MeanRate averages per-row conversion rates; PooledRate is Conversions/Users.
	MeanRate   float64 `json:"mean_conversion_rate"`
	PooledRate float64 `json:"pooled_conversion_rate"`
}

// ArmStats describes one experiment arm.
type ArmStats struct {
	Aggregate
	Arm                  domain.Arm `json:"arm"`
	MedianRate           float64    `json:"median_conversion_rate"`
	StdRate              float64    `json:"std_conversion_rate"`
	RevenuePerUser       float64    `json:"revenue_per_user"`
	RevenuePerConversion float64    `json:"revenue_per_conversion"`
	ConversionCI         *Interval  `json:"conversion_ci,omitempty"`
}

// Segment is one value of a segmentation dimension.
type Segment struct {
	Aggregate
	Dimension domain.Dimension         `json:"dimension"`
	Value     string                   `json:"value"`
	Arms      map[domain.Arm]Aggregate `json:"arms"`
	Lift      *float64                 `json:"lift,omitempty"`
}

// Result is the full analysis of a row set. Undefined statistics are nil and the reason
// is listed in Issues.
type Result struct {
	Rows           int                            `json:"rows"`
	Control        ArmStats                       `json:"control"`
	Treatment      ArmStats                       `json:"treatment"`
	LiftConversion *float64                       `json:"lift_conversion,omitempty"`
	LiftRevenue    *float64                       `json:"lift_revenue,omitempty"`
	TTest          *TTest                         `json:"t_test,omitempty"`
	RevenueTTest   *TTest                         `json:"revenue_t_test,omitempty"`
	ChiSquare      *ChiSquare                     `json:"chi_square,omitempty"`
	PValue         *float64                       `json:"p_value,omitempty"`
	Significant    bool                           `json:"significant"`
	Threshold      float64                        `json:"threshold"`
	Segments       map[domain.Dimension][]Segment `json:"segments"`
	Issues         []*apperr.Error                `json:"issues,omitempty"`
}

// Analyzer computes experiment statistics. It holds no mutable state.
type Analyzer struct {
	threshold float64
}

// New returns an analyzer; a threshold outside (0,1) falls back to DefaultThreshold.
func New(threshold float64) *Analyzer {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Analyzer{threshold: threshold}
}

// SegmentDimensions are broken down independently in every analysis.
var SegmentDimensions = []domain.Dimension{domain.DimRegion, domain.DimStoreType}

// Analyze compares the arms within rows. comparisons restricts a dimension's breakdown to
// the listed values, in that order.
func (a *Analyzer) Analyze(rows []domain.ExperimentRow, comparisons map[domain.Dimension][]string) *Result {
	res := &Result{
		Rows:      len(rows),
		Threshold: a.threshold,
		Segments:  make(map[domain.Dimension][]Segment, len(SegmentDimensions)),
	}
	control, treatment := splitArms(rows)
	res.Control = armStats(domain.ArmControl, control)
	res.Treatment = armStats(domain.ArmTreatment, treatment)

	if len(control) == 0 || len(treatment) == 0 {
		res.issue(apperr.Degenerate("insufficient data: both arms need rows to compare"))
	} else {
		if lift, err := Lift(res.Treatment.MeanRate, res.Control.MeanRate); err != nil {
			res.issue(err)
		} else {
			res.LiftConversion = &lift
		}
		if lift, err := Lift(res.Treatment.Revenue, res.Control.Revenue); err != nil {
			res.issue(err)
		} else {
			res.LiftRevenue = &lift
		}
	}

	if tt, err := StudentT(rates(control), rates(treatment)); err != nil {
		res.issue(err)
	} else {
		res.TTest = &tt
		p := tt.PValue
		res.PValue = &p
	}
	if len(control) >= 2 && len(treatment) >= 2 {
		if rt, err := StudentT(revenues(control), revenues(treatment)); err == nil {
			res.RevenueTTest = &rt
		}
	}
	if len(control) > 0 && len(treatment) > 0 {
		if chi, err := ChiSquare2x2(res.Control.Conversions, res.Control.Users, res.Treatment.Conversions, res.Treatment.Users); err != nil {
			res.issue(err)
		} else {
			res.ChiSquare = &chi
		}
	}
	res.Significant = res.TTest != nil && res.ChiSquare != nil &&
		res.TTest.PValue < a.threshold && res.ChiSquare.PValue < a.threshold

	for _, d := range SegmentDimensions {
		res.Segments[d] = Segments(rows, d, comparisons[d])
	}
	return res
}

func (r *Result) issue(err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		for _, existing := range r.Issues {
			if existing.Kind == e.Kind && existing.Message == e.Message {
				return
			}
		}
		r.Issues = append(r.Issues, e)
		return
	}
	r.Issues = append(r.Issues, apperr.Wrap(err, apperr.KindInternal, "analysis failed"))
}

// Segments groups rows by d. Without values every canonical value present in rows is
// reported in canonical order; with values exactly those are reported, in that order.
func Segments(rows []domain.ExperimentRow, d domain.Dimension, values []string) []Segment {
	groups := make(map[string][]domain.ExperimentRow)
	for _, r := range rows {
		v := r.Value(d)
		groups[v] = append(groups[v], r)
	}
	if len(values) == 0 {
		for _, v := range d.Values() {
			if _, ok := groups[v]; ok {
				values = append(values, v)
			}
		}
	}
	out := make([]Segment, 0, len(values))
	for _, v := range values {
		g := groups[v]
		seg := Segment{Dimension: d, Value: v, Aggregate: aggregate(g), Arms: make(map[domain.Arm]Aggregate)}
		control, treatment := splitArms(g)
		if len(control) > 0 {
			seg.Arms[domain.ArmControl] = aggregate(control)
		}
		if len(treatment) > 0 {
			seg.Arms[domain.ArmTreatment] = aggregate(treatment)
		}
		if len(control) > 0 && len(treatment) > 0 {
			if lift, err := Lift(seg.Arms[domain.ArmTreatment].MeanRate, seg.Arms[domain.ArmControl].MeanRate); err == nil {
				seg.Lift = &lift
			}
		}
		out = append(out, seg)
	}
	return out
}

func splitArms(rows []domain.ExperimentRow) (control, treatment []domain.ExperimentRow) {
	for _, r := range rows {
		switch r.Arm {
		case domain.ArmControl:
			control = append(control, r)
		case domain.ArmTreatment:
			treatment = append(treatment, r)
		}
	}
	return control, treatment
}

func aggregate(rows []domain.ExperimentRow) Aggregate {
	var a Aggregate
	a.Rows = len(rows)
	for _, r := range rows {
		a.Users += r.Users
		a.Conversions += r.Conversions
		a.Revenue += r.Revenue
	}
	if len(rows) > 0 {
		a.MeanRate = stat.Mean(rates(rows), nil)
	}
	if a.Users > 0 {
		a.PooledRate = float64(a.Conversions) / float64(a.Users)
	}
	return a
}

func armStats(arm domain.Arm, rows []domain.ExperimentRow) ArmStats {
	s := ArmStats{Arm: arm, Aggregate: aggregate(rows)}
	if len(rows) == 0 {
		return s
	}
	rs := rates(rows)
	sort.Float64s(rs)
	s.MedianRate = median(rs)
	if len(rows) > 1 {
		s.StdRate = stat.StdDev(rs, nil)
	}
	if s.Users > 0 {
		s.RevenuePerUser = s.Revenue / float64(s.Users)
	}
	if s.Conversions > 0 {
		s.RevenuePerConversion = s.Revenue / float64(s.Conversions)
	}
	if ci, ok := Wilson(s.Conversions, s.Users); ok {
		s.ConversionCI = &ci
	}
	return s
}

// median of sorted xs; even lengths average the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func rates(rows []domain.ExperimentRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.ConversionRate
	}
	return out
}

func revenues(rows []domain.ExperimentRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Revenue
	}
	return out
}
