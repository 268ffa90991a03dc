package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"abchat/internal/analytics"
	"abchat/internal/apperr"
	"abchat/internal/dataset"
	"abchat/internal/domain"
	"abchat/internal/extract"
	"abchat/internal/index"
	"abchat/internal/query"
)

// maxRelated caps the similar rows quoted in the prompt.
const maxRelated = 3

// Request carries everything the answer is built from.
type Request struct {
	Question   string
	Extraction extract.Extraction
	Analysis   *analytics.Result
	Related    []query.Ranked
	Top        []domain.ExperimentRow
	TopMetric  index.Field
}

// Composition is the composed answer.
type Composition struct {
	Text string
	// Degraded is set when the language model failed and Text holds raw statistics.
	Degraded bool
	// Generated is set when Text came from the language model.
	Generated bool
}

// Composer phrases analysis results, through a language model when one is configured.
type Composer struct {
	gen domain.Generator
}

// New returns a composer. A nil generator always answers with the statistics text.
func New(gen domain.Generator) *Composer {
	return &Composer{gen: gen}
}

// Compose never fails: a model error is logged and answered with the statistics text.
func (c *Composer) Compose(ctx context.Context, req Request) Composition {
	if c.gen == nil {
		return Composition{Text: Statistics(req)}
	}
	text, err := c.gen.Generate(ctx, BuildPrompt(req))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(apperr.External(err, "llm")).Msg("language model failed, returning raw statistics")
		return Composition{
			Text:     "No pude generar una respuesta redactada en este momento. Estos son los resultados calculados:\n\n" + Statistics(req),
			Degraded: true,
		}
	}
	return Composition{Text: text, Generated: true}
}

// BuildPrompt renders the structured context sent to the model.
func BuildPrompt(req Request) domain.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "CONSULTA DEL USUARIO: %s\n\n", req.Question)
	writeScope(&b, req)
	if req.Analysis != nil {
		b.WriteString("\n")
		b.WriteString(req.Analysis.Summary())
		b.WriteString("\n")
		if seg := req.Analysis.SegmentReport(); seg != "" {
			b.WriteString("\n")
			b.WriteString(seg)
			b.WriteString("\n")
		}
	}
	if len(req.Related) > 0 {
		b.WriteString("\nDATOS MÁS RELEVANTES:\n")
		for i, r := range req.Related {
			if i == maxRelated {
				break
			}
			fmt.Fprintf(&b, "%d. %s (relevancia: %.3f)\n", i+1, dataset.Describe(r.Row), r.Score)
		}
	}
	if len(req.Top) > 0 {
		fmt.Fprintf(&b, "\nTOP TIENDAS (por %s):\n", req.TopMetric)
		for i, r := range req.Top {
			fmt.Fprintf(&b, "%d. Tienda %s - %s - conversión %.2f%% - revenue $%.2f - usuarios %d\n",
				i+1, r.StoreID, r.Arm, r.ConversionRate*100, r.Revenue, r.Users)
		}
	}
	b.WriteString("\nResponde de manera clara y precisa basándote en estos datos.")
	return domain.Prompt{System: SystemPrompt, User: b.String()}
}

// Statistics is the plain-text answer used without a model.
func Statistics(req Request) string {
	var b strings.Builder
	writeScope(&b, req)
	if req.Analysis != nil {
		b.WriteString("\n")
		b.WriteString(req.Analysis.Summary())
		if seg := req.Analysis.SegmentReport(); seg != "" {
			b.WriteString("\n\n")
			b.WriteString(seg)
		}
	}
	if len(req.Top) > 0 {
		fmt.Fprintf(&b, "\n\nTOP TIENDAS (por %s):", req.TopMetric)
		for i, r := range req.Top {
			fmt.Fprintf(&b, "\n%d. %s (%s): conversión %.2f%%, revenue $%.2f, usuarios %d",
				i+1, r.StoreID, r.Arm, r.ConversionRate*100, r.Revenue, r.Users)
		}
	}
	return strings.TrimSpace(b.String())
}

func writeScope(b *strings.Builder, req Request) {
	fmt.Fprintf(b, "FILTROS APLICADOS: %s\n", req.Extraction.Filters)
	for _, d := range domain.Dimensions {
		if values := req.Extraction.Comparisons[d]; len(values) > 0 {
			fmt.Fprintf(b, "COMPARACIÓN (%s): %s\n", d, strings.Join(values, " vs "))
		}
	}
	if !req.Extraction.Matched {
		b.WriteString("No se reconocieron filtros en la pregunta; se usa el conjunto completo.\n")
	}
}
