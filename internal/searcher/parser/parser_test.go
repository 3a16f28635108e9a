package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		terms    []string
		excludes []string
		typ      QueryType
	}{
		{"empty", "", []string{}, []string{}, QueryOR},
		{"whitespace", "  \t ", []string{}, []string{}, QueryOR},
		{"default or", "ራስ ምታት", []string{"ራስ", "ምታት"}, []string{}, QueryOR},
		{"and", "ህመም AND Julphar", []string{"ህመም", "julphar"}, []string{}, QueryAND},
		{"not", "ህመም NOT ትኩሳት", []string{"ህመም"}, []string{"ትኩሳት"}, QueryOR},
		{"lowercase operators are words", "ህመም and ትኩሳት", []string{"ህመም", "ትኩሳት"}, []string{}, QueryOR},
		{"stop words only", "እና ነው", []string{}, []string{}, QueryOR},
		{"punctuated word", "ራስ።ምታት", []string{"ራስ", "ምታት"}, []string{}, QueryOR},
		{"duplicates kept", "ህመም ህመም", []string{"ህመም", "ህመም"}, []string{}, QueryOR},
		{"dangling not", "ህመም NOT", []string{"ህመም"}, []string{}, QueryOR},
		{"last operator wins", "a1 AND b1 OR c1", []string{"a1", "b1", "c1"}, []string{}, QueryOR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			assert.Equal(t, tt.terms, plan.Terms)
			assert.Equal(t, tt.excludes, plan.ExcludeTerms)
			assert.Equal(t, tt.typ, plan.Type)
			assert.Equal(t, tt.query, plan.RawQuery)
			assert.Equal(t, len(tt.terms) == 0, plan.IsEmpty())
		})
	}
}

func TestPlanHelpers(t *testing.T) {
	plan := Parse("ህመም ትኩሳት ህመም NOT ተኩስ NOT ተኩስ")
	assert.Equal(t, map[string]int{"ህመም": 2, "ትኩሳት": 1}, plan.TermFrequencies())
	assert.Equal(t, []string{"ህመም", "ትኩሳት"}, plan.UniqueTerms())
	assert.Equal(t, []string{"ተኩስ"}, plan.UniqueExcludes())
	assert.Equal(t, "AND", QueryAND.String())
}

func BenchmarkParse(b *testing.B) {
	queries := map[string]string{
		"simple":  "ራስ ምታት",
		"boolean": "ህመም AND ከመብላት NOT ትኩሳት",
		"mixed":   "Paracetamol ፓራሲታሞል 5ml Julphar",
		"long":    "የስኳር መድሃኒት ኢንፌክሽን በቀን 2 ጊዜ ተኩስ የደም ግፊት ችግኝ 5ml Julphar ተገኝቷል",
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Parse(q)
			}
		})
	}
}
