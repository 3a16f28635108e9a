// Package parser turns a raw query string into a QueryPlan. Uppercase AND,
// OR and NOT are operators; every other word is normalised by the same
// tokenizer the index uses.
package parser

import (
	"sort"
	"strings"

	"github.com/medir/amharic-medsearch/internal/indexer/tokenizer"
)

type QueryType int

const (
	// QueryOR ranks every document matching at least one term.
	QueryOR QueryType = iota
	// QueryAND keeps only documents matching every term.
	QueryAND
)

func (q QueryType) String() string {
	if q == QueryAND {
		return "AND"
	}
	return "OR"
}

// QueryPlan is the parsed form of a query. Terms keeps repeated terms so the
// ranker can weight them by query-term frequency.
type QueryPlan struct {
	Terms        []string
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// IsEmpty reports whether the plan has no positive terms and can match
// nothing.
func (p *QueryPlan) IsEmpty() bool {
	return len(p.Terms) == 0
}

// TermFrequencies counts each positive term.
func (p *QueryPlan) TermFrequencies() map[string]int {
	freqs := make(map[string]int, len(p.Terms))
	for _, t := range p.Terms {
		freqs[t]++
	}
	return freqs
}

// UniqueTerms returns the distinct positive terms in sorted order.
func (p *QueryPlan) UniqueTerms() []string {
	return uniqueSorted(p.Terms)
}

// UniqueExcludes returns the distinct excluded terms in sorted order.
func (p *QueryPlan) UniqueExcludes() []string {
	return uniqueSorted(p.ExcludeTerms)
}

// Parse uses the default tokenizer.
func Parse(query string) *QueryPlan {
	return ParseWith(tokenizer.Default(), query)
}

// ParseWith parses query with tok. The last operator between words decides
// the plan type; NOT excludes every term of the word that follows it.
func ParseWith(tok *tokenizer.Tokenizer, query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryOR,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch word {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		terms := tok.Terms(word)
		if len(terms) == 0 {
			continue
		}
		if excludeNext {
			plan.ExcludeTerms = append(plan.ExcludeTerms, terms...)
			excludeNext = false
		} else {
			plan.Terms = append(plan.Terms, terms...)
		}
	}
	return plan
}

func uniqueSorted(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
