package extract

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"abchat/internal/apperr"
	"abchat/internal/domain"
)

// Match is one vocabulary hit in the question.
type Match struct {
	Dimension domain.Dimension `json:"dimension"`
	Value     string           `json:"value"`
	Term      string           `json:"term"`
	Position  int              `json:"position"`
}

// Extraction is the structured reading of a question.
type Extraction struct {
	Filters domain.FilterSet `json:"filters"`
	// Comparisons holds dimensions where two or more values were named, in order of first mention.
	Comparisons map[domain.Dimension][]string `json:"comparisons,omitempty"`
	Matched     bool                          `json:"matched"`
	Terms       []Match                       `json:"terms,omitempty"`
}

// Ambiguity returns a QueryAmbiguity error when nothing in the question was recognised.
func (e Extraction) Ambiguity() error {
	if e.Matched {
		return nil
	}
	return apperr.New(apperr.KindAmbiguity, "no filter terms recognised; falling back to the whole dataset")
}

type phrase struct {
	dim    domain.Dimension
	value  string
	tokens []string
}

// Extractor finds dimension values in free text.
type Extractor struct {
	phrases []phrase
}

// New builds an extractor over the closed vocabulary.
func New() *Extractor {
	x := &Extractor{}
	for _, d := range domain.Dimensions {
		for _, value := range d.Values() {
			for _, term := range vocabulary[d][value] {
				x.phrases = append(x.phrases, phrase{dim: d, value: value, tokens: strings.Fields(term)})
			}
		}
	}
	// longest phrase wins at a position
	sort.SliceStable(x.phrases, func(i, j int) bool {
		return len(x.phrases[i].tokens) > len(x.phrases[j].tokens)
	})
	return x
}

type token struct {
	raw    string
	folded string
	// sentenceStart is set for the first token and for tokens after '.', '?' or '!'.
	sentenceStart bool
	// joined is set when only an underscore separates the token from the previous one.
	joined bool
}

// Extract scans text left to right. A dimension named once becomes a filter; a dimension
// named with several distinct values becomes a comparison and stays unfiltered.
func (x *Extractor) Extract(text string) Extraction {
	toks := tokenize(text)
	var matches []Match
	for i := 0; i < len(toks); {
		p, ok := x.matchAt(toks, i)
		if !ok {
			i++
			continue
		}
		matches = append(matches, Match{
			Dimension: p.dim,
			Value:     p.value,
			Term:      strings.Join(p.tokens, " "),
			Position:  i,
		})
		i += len(p.tokens)
	}

	out := Extraction{Matched: len(matches) > 0, Terms: matches}
	for _, d := range domain.Dimensions {
		var values []string
		seen := map[string]struct{}{}
		for _, m := range matches {
			if m.Dimension != d {
				continue
			}
			if _, dup := seen[m.Value]; dup {
				continue
			}
			seen[m.Value] = struct{}{}
			values = append(values, m.Value)
		}
		switch len(values) {
		case 0:
		case 1:
			out.Filters = out.Filters.With(d, values[0])
		default:
			if out.Comparisons == nil {
				out.Comparisons = make(map[domain.Dimension][]string)
			}
			out.Comparisons[d] = values
		}
	}
	return out
}

func (x *Extractor) matchAt(toks []token, i int) (phrase, bool) {
	for _, p := range x.phrases {
		if i+len(p.tokens) > len(toks) {
			continue
		}
		ok := true
		for k, t := range p.tokens {
			if toks[i+k].folded != t || (len(t) == 1 && !armLetter(toks[i+k])) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if p.dim == domain.DimRegion && p.tokens[0] == "este" && !esteIsRegion(toks, i) {
			continue
		}
		return p, true
	}
	return phrase{}, false
}

// armLetter accepts a single-letter arm label: "A" as written, or the tail of "Experimento_A".
// A lowercase "a" standing alone is the Spanish preposition.
func armLetter(t token) bool {
	if t.joined {
		return true
	}
	r := []rune(t.raw)
	return len(r) == 1 && unicode.IsUpper(r[0])
}

// esteIsRegion disambiguates "este": it names the region after a cue word, or when
// capitalised anywhere but the start of a sentence.
func esteIsRegion(toks []token, i int) bool {
	if i > 0 {
		if _, cue := esteCues[toks[i-1].folded]; cue {
			return true
		}
	}
	if toks[i].sentenceStart {
		return false
	}
	r := []rune(toks[i].raw)
	return unicode.IsUpper(r[0])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// tokenize splits on anything that is not a letter or digit. Underscores separate too,
// so "Experimento_A" reads as two tokens. Each token remembers what separated it from the
// previous one.
func tokenize(text string) []token {
	var out []token
	var word, gap []rune
	flush := func() {
		if len(word) == 0 {
			return
		}
		raw := string(word)
		out = append(out, token{
			raw:           raw,
			folded:        Fold(raw),
			sentenceStart: len(out) == 0 || strings.ContainsAny(string(gap), ".?!"),
			joined:        len(out) > 0 && string(gap) == "_",
		})
		word, gap = word[:0], gap[:0]
	}
	for _, r := range text {
		if isWordRune(r) {
			word = append(word, r)
			continue
		}
		flush()
		gap = append(gap, r)
	}
	flush()
	return out
}

// Fold lowercases s and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
