package analytics

import (
	"fmt"
	"strings"

	"abchat/internal/apperr"
	"abchat/internal/domain"
)

var segmentTitles = map[domain.Dimension]string{
	domain.DimRegion:    "ANÁLISIS POR REGIÓN",
	domain.DimStoreType: "ANÁLISIS POR TIPO DE TIENDA",
}

// Summary renders the key statistics as plain Spanish text.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "RESUMEN DEL A/B TEST (%d tiendas)\n", r.Rows)
	writeArm(&b, r.Control)
	writeArm(&b, r.Treatment)
	fmt.Fprintf(&b, "• Lift en conversión: %s\n", formatLift(r.LiftConversion))
	fmt.Fprintf(&b, "• Lift en revenue: %s\n", formatLift(r.LiftRevenue))
	if r.TTest != nil {
		fmt.Fprintf(&b, "• t-test (conversion rate): t=%.3f, p-value=%.4f\n", r.TTest.Statistic, r.TTest.PValue)
		fmt.Fprintf(&b, "• Diferencia de medias: %+.2f pp (IC95%% %+.2f a %+.2f pp)\n",
			r.TTest.MeanDiff*100, r.TTest.DiffCI.Low*100, r.TTest.DiffCI.High*100)
	}
	if r.ChiSquare != nil {
		fmt.Fprintf(&b, "• Chi-cuadrado: χ²=%.3f, p-value=%.4f\n", r.ChiSquare.Statistic, r.ChiSquare.PValue)
	}
	if r.RevenueTTest != nil {
		fmt.Fprintf(&b, "• t-test (revenue): t=%.3f, p-value=%.4f\n", r.RevenueTTest.Statistic, r.RevenueTTest.PValue)
	}
	fmt.Fprintf(&b, "• Resultado: %s\n", r.Verdict())
	for _, e := range r.Issues {
		fmt.Fprintf(&b, "• Aviso: %s\n", e.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Verdict states the significance outcome.
func (r *Result) Verdict() string {
	switch {
	case r.TTest == nil || r.ChiSquare == nil:
		return "datos insuficientes para evaluar significancia"
	case r.Significant:
		return fmt.Sprintf("estadísticamente significativo (α=%.2f)", r.Threshold)
	default:
		return fmt.Sprintf("no estadísticamente significativo (α=%.2f)", r.Threshold)
	}
}

// HasIssue reports whether an issue of the given kind was recorded.
func (r *Result) HasIssue(kind apperr.Kind) bool {
	for _, e := range r.Issues {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// SegmentReport renders every segmentation dimension, one line per segment.
func (r *Result) SegmentReport() string {
	var b strings.Builder
	for _, d := range SegmentDimensions {
		segs := r.Segments[d]
		if len(segs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", segmentTitles[d])
		for _, s := range segs {
			b.WriteString("• ")
			b.WriteString(s.Line())
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Line renders a segment on one line.
func (s Segment) Line() string {
	if s.Rows == 0 {
		return fmt.Sprintf("%s: sin datos", s.Value)
	}
	c, hasC := s.Arms[domain.ArmControl]
	t, hasT := s.Arms[domain.ArmTreatment]
	base := fmt.Sprintf("%s: %d tiendas, %d usuarios, %d conversiones, revenue $%.2f, CR %.2f%%",
		s.Value, s.Rows, s.Users, s.Conversions, s.Revenue, s.PooledRate*100)
	if hasC && hasT {
		return fmt.Sprintf("%s | Lift %s (Control: %.2f%% → Experimento: %.2f%%)",
			base, formatLift(s.Lift), c.MeanRate*100, t.MeanRate*100)
	}
	return base + " | sin comparación entre grupos"
}

func writeArm(b *strings.Builder, s ArmStats) {
	if s.Rows == 0 {
		fmt.Fprintf(b, "• %s: sin datos\n", s.Arm)
		return
	}
	fmt.Fprintf(b, "• %s: %d conversiones de %d usuarios en %d tiendas (CR medio %.2f%%, revenue $%.2f",
		s.Arm, s.Conversions, s.Users, s.Rows, s.MeanRate*100, s.Revenue)
	if s.ConversionCI != nil {
		fmt.Fprintf(b, ", IC95%% %.2f%% a %.2f%%", s.ConversionCI.Low*100, s.ConversionCI.High*100)
	}
	b.WriteString(")\n")
}

func formatLift(v *float64) string {
	if v == nil {
		return "no definido"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}
