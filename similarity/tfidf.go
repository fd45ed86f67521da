// Package similarity implements vector-space text comparison: a TF-IDF
// model over a document set with pairwise cosine similarity scores.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"veritext/config"
	"veritext/types"
)

// Result holds the documents that entered the comparison and all
// pairwise scores, sorted descending.
type Result struct {
	Docs  []types.Document       `json:"docs"`
	Pairs []types.SimilarityPair `json:"pairs"`
}

// Engine computes TF-IDF cosine similarities. The vocabulary is bounded
// to the top-weighted terms of each document so dimensionality stays
// tractable regardless of corpus size.
type Engine struct {
	topTermsPerDoc int
}

// NewEngine returns an engine with the default vocabulary bound.
func NewEngine() *Engine {
	return &Engine{topTermsPerDoc: config.TopTermsPerDoc}
}

// NewEngineWithTopTerms overrides the per-document vocabulary bound.
func NewEngineWithTopTerms(k int) *Engine {
	if k <= 0 {
		k = config.TopTermsPerDoc
	}
	return &Engine{topTermsPerDoc: k}
}

var wordRe = regexp.MustCompile(`[a-z0-9']+`)

// Tokenize lowercases text and splits it into word tokens.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// Compare builds a TF-IDF model over the given documents and returns
// every pairwise cosine similarity. Fewer than two documents with
// non-empty text yields an empty pair list: no comparison is meaningful.
func (e *Engine) Compare(docs []types.Document) Result {
	result := Result{Docs: docs, Pairs: []types.SimilarityPair{}}

	tokens := make([][]string, len(docs))
	nonEmpty := 0
	for i, doc := range docs {
		tokens[i] = Tokenize(doc.Text)
		if len(tokens[i]) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return result
	}

	weights := e.tfidfWeights(tokens)
	vocab := e.sharedVocabulary(weights)

	vectors := make([][]float64, len(docs))
	for i := range docs {
		vec := make([]float64, len(vocab))
		for term, idx := range vocab {
			vec[idx] = weights[i][term]
		}
		vectors[i] = vec
	}

	// Documents with no extracted text enter no pairs: a comparison
	// against nothing says nothing.
	for i := 0; i < len(docs); i++ {
		if len(tokens[i]) == 0 {
			continue
		}
		for j := i + 1; j < len(docs); j++ {
			if len(tokens[j]) == 0 {
				continue
			}
			score := cosine(vectors[i], vectors[j])
			result.Pairs = append(result.Pairs, types.SimilarityPair{
				DocA:  docs[i].ID,
				DocB:  docs[j].ID,
				Score: round4(score),
			})
		}
	}

	sort.SliceStable(result.Pairs, func(a, b int) bool {
		return result.Pairs[a].Score > result.Pairs[b].Score
	})
	return result
}

// tfidfWeights returns one term→weight map per document. IDF uses
// ln(1 + N/df) so terms present in every document keep a small positive
// weight instead of vanishing or going negative.
func (e *Engine) tfidfWeights(tokens [][]string) []map[string]float64 {
	n := len(tokens)

	df := make(map[string]int)
	termFreqs := make([]map[string]float64, n)
	for i, toks := range tokens {
		tf := make(map[string]float64, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for term := range tf {
			tf[term] /= float64(len(toks))
			df[term]++
		}
		termFreqs[i] = tf
	}

	weights := make([]map[string]float64, n)
	for i, tf := range termFreqs {
		w := make(map[string]float64, len(tf))
		for term, freq := range tf {
			idf := math.Log(1 + float64(n)/float64(df[term]))
			w[term] = freq * idf
		}
		weights[i] = w
	}
	return weights
}

// sharedVocabulary unions each document's top-K weighted terms into one
// term→index mapping.
func (e *Engine) sharedVocabulary(weights []map[string]float64) map[string]int {
	type termWeight struct {
		term   string
		weight float64
	}

	vocab := make(map[string]int)
	for _, w := range weights {
		terms := make([]termWeight, 0, len(w))
		for term, weight := range w {
			terms = append(terms, termWeight{term, weight})
		}
		sort.Slice(terms, func(a, b int) bool {
			if terms[a].weight != terms[b].weight {
				return terms[a].weight > terms[b].weight
			}
			return terms[a].term < terms[b].term
		})
		if len(terms) > e.topTermsPerDoc {
			terms = terms[:e.topTermsPerDoc]
		}
		for _, tw := range terms {
			if _, ok := vocab[tw.term]; !ok {
				vocab[tw.term] = len(vocab)
			}
		}
	}
	return vocab
}

// cosine returns dot(u,v)/(|u||v|), or 0 when either norm is zero.
func cosine(u, v []float64) float64 {
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 0
	}
	return dot / (math.Sqrt(nu) * math.Sqrt(nv))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
