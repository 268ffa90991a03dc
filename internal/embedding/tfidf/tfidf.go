package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"

	"abchat/internal/extract"
)

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder implements a TF-IDF vectorizer over the row descriptions.
// Tokens are accent-folded, so "región" and "region" share a term. Term frequency is
// sublinear (1 + ln count) because descriptions repeat the arm and location.
// After Prepare the embedder is read-only and safe for concurrent Embed calls.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	stopwords  map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and smoothed IDF values from corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := e.documentFrequencies(corpus)
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	e.vocabulary, e.idf = vocab, idf
	return nil
}

// Dimension returns the vocabulary size, 0 before Prepare.
func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed computes the L2-normalised TF-IDF vector for text. Unknown terms are ignored,
// so text sharing no vocabulary yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.vocabulary == nil {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, len(e.idf))
	var sq float64
	for idx, count := range e.termCounts(text) {
		w := (1 + math.Log(float64(count))) * e.idf[idx]
		vec[idx] = w
		sq += w * w
	}
	if sq == 0 {
		return vec, nil
	}
	inv := 1 / math.Sqrt(sq)
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func (e *Embedder) documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				df[tok]++
			}
		}
	}
	return df
}

// termCounts counts in-vocabulary tokens of text by vocabulary index.
func (e *Embedder) termCounts(text string) map[int]int {
	counts := make(map[int]int)
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	return counts
}

func (e *Embedder) tokenize(text string) []string {
	raw := tokenRe.FindAllString(extract.Fold(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := e.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		// es, folded
		"el", "la", "los", "las", "un", "una", "unos", "unas", "de", "del", "al", "a", "en", "y", "o", "que",
		"por", "para", "con", "sin", "se", "su", "sus", "es", "son", "fue", "fueron", "como", "cual", "cuales",
		"hay", "mas", "menos", "muy", "lo", "le", "les", "me", "mi", "tu", "entre", "sobre", "pero", "si", "ya",
		"esta", "estos", "estas", "ese", "esa",
		// en
		"an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with",
		"as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those", "from", "how",
		"what", "which", "did", "do", "does", "vs",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
