// Package ranker scores documents against query terms with a field-weighted
// BM25 (BM25F-style) model.
package ranker

import (
	"math"
	"sort"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/indexer/index"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
	// MinIDF keeps terms that occur in every document from scoring zero.
	MinIDF = 1e-3
)

// DefaultFieldWeights makes title and generic-name matches outweigh matches
// in descriptive fields.
var DefaultFieldWeights = map[document.Field]float64{
	document.FieldTitle:             3.0,
	document.FieldGenericName:       2.5,
	document.FieldCategory:          1.5,
	document.FieldSymptom:           1.5,
	document.FieldSideEffects:       1.2,
	document.FieldUsage:             1.0,
	document.FieldContraindications: 1.0,
	document.FieldManufacturer:      0.5,
	document.FieldDosage:            0.5,
	document.FieldAvailability:      0.3,
}

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RankParams carries the collection statistics and tuning used for one
// ranking call. Zero K1/B and nil FieldWeights fall back to the defaults; a
// nil QueryTermFreq counts every term once.
type RankParams struct {
	TotalDocs      int64
	AvgFieldLength map[document.Field]float64
	FieldWeights   map[document.Field]float64
	K1             float64
	B              float64
	QueryTermFreq  map[string]int
}

// DocInfo is the per-document length data needed for normalisation.
type DocInfo struct {
	FieldLengths map[document.Field]int
}

// Rank scores every document appearing in postingsPerTerm, sorts by score
// descending then id ascending, and truncates to limit when limit > 0.
// Terms with no postings contribute nothing.
func Rank(
	postingsPerTerm map[string]index.PostingList,
	params RankParams,
	getDocInfo func(docID string) DocInfo,
	limit int,
) []ScoredDoc {
	params = params.withDefaults()

	// Fixed term order keeps floating-point sums identical between runs.
	terms := make([]string, 0, len(postingsPerTerm))
	for term, postings := range postingsPerTerm {
		if len(postings) > 0 {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	infos := make(map[string]DocInfo)
	scores := make(map[string]float64)
	for _, term := range terms {
		postings := postingsPerTerm[term]
		idf := ComputeIDF(params.TotalDocs, int64(len(postings)))
		qtf := 1.0
		if n, ok := params.QueryTermFreq[term]; ok && n > 0 {
			qtf = float64(n)
		}
		for _, posting := range postings {
			info, ok := infos[posting.DocID]
			if !ok {
				info = getDocInfo(posting.DocID)
				infos[posting.DocID] = info
			}
			scores[posting.DocID] += qtf * idf * params.fieldScore(posting, info)
		}
	}

	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	SortScored(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// SortScored orders by score descending, ties broken by ascending id.
func SortScored(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}

func (p RankParams) fieldScore(posting index.Posting, info DocInfo) float64 {
	var sum float64
	for _, f := range document.SearchableFields {
		tf := posting.FieldFreqs[f]
		if tf == 0 {
			continue
		}
		w := p.FieldWeights[f]
		if w == 0 {
			continue
		}
		sum += w * computeTFNorm(float64(tf), float64(info.FieldLengths[f]), p.AvgFieldLength[f], p.K1, p.B)
	}
	return sum
}

func (p RankParams) withDefaults() RankParams {
	if p.K1 <= 0 {
		p.K1 = DefaultK1
	}
	if p.B < 0 || p.B > 1 {
		p.B = DefaultB
	}
	if p.FieldWeights == nil {
		p.FieldWeights = DefaultFieldWeights
	}
	return p
}

// ComputeIDF is the non-negative BM25 idf ln(1 + (N-df+0.5)/(df+0.5)),
// floored at MinIDF.
func ComputeIDF(totalDocs int64, docFreq int64) float64 {
	if docFreq > totalDocs {
		totalDocs = docFreq
	}
	numerator := float64(totalDocs) - float64(docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Max(math.Log(1+numerator/denominator), MinIDF)
}

func computeTFNorm(termFreq, fieldLength, avgFieldLength, k1, b float64) float64 {
	lengthRatio := 1.0
	if avgFieldLength > 0 {
		lengthRatio = fieldLength / avgFieldLength
	}
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}

// FieldWeights merges per-field overrides keyed by field name into the
// defaults. Names that are not searchable fields are returned as unknown.
func FieldWeights(overrides map[string]float64) (weights map[document.Field]float64, unknown []string) {
	weights = make(map[document.Field]float64, len(DefaultFieldWeights))
	for f, w := range DefaultFieldWeights {
		weights[f] = w
	}
	for name, w := range overrides {
		f, ok := document.ParseField(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		weights[f] = w
	}
	sort.Strings(unknown)
	return weights, unknown
}
