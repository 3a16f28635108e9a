package executor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/document/source"
	"github.com/medir/amharic-medsearch/internal/indexer"
	"github.com/medir/amharic-medsearch/pkg/metrics"
)

func sampleExecutor(t testing.TB, opts ...Option) *Executor {
	t.Helper()
	docs, err := source.Sample().Load(context.Background())
	require.NoError(t, err)
	engine := indexer.NewEngine()
	_, err = engine.Initialize(context.Background(), docs)
	require.NoError(t, err)
	return New(engine, opts...)
}

func assertWellFormed(t *testing.T, res *SearchResult, limit int) {
	t.Helper()
	require.NotNil(t, res.Results)
	assert.LessOrEqual(t, len(res.Results), limit)
	assert.LessOrEqual(t, len(res.Results), res.TotalHits)
	for i, h := range res.Results {
		assert.Equal(t, i+1, h.Rank)
		assert.Positive(t, h.Score)
		if i == 0 {
			continue
		}
		prev := res.Results[i-1]
		assert.True(t, prev.Score > h.Score || (prev.Score == h.Score && prev.ID < h.ID),
			"results %d and %d out of order", i-1, i)
	}
}

func TestSearchHeadacheFindsParacetamol(t *testing.T) {
	ex := sampleExecutor(t)
	res, err := ex.Search(context.Background(), "ራስ ምታት", 5)
	require.NoError(t, err)
	assertWellFormed(t, res, 5)

	require.NotEmpty(t, res.Results)
	top := res.Results[0]
	assert.Equal(t, "doc-2", top.ID)
	assert.Equal(t, "ፓራሲታሞል", top.Title)
	assert.Equal(t, "አናልጀዝክ", top.Category)
	assert.Contains(t, top.Content, "ራስ ምታት")
	for _, h := range res.Results[1:] {
		assert.Greater(t, top.Score, h.Score)
	}
	assert.Equal(t, map[string]int{"ራስ": 1, "ምታት": 1}, res.TermStats)
}

func TestSearchTitle(t *testing.T) {
	ex := sampleExecutor(t)
	for id, title := range map[string]string{"doc-3": "አሞክሲሲሊን", "doc-10": "አዚትሮማይሲን", "doc-1": "ቪታሚን"} {
		res, err := ex.Search(context.Background(), title, 10)
		require.NoError(t, err)
		require.NotEmpty(t, res.Results, title)
		assert.Equal(t, id, res.Results[0].ID, title)
	}
}

func TestSearchEqualScoresSortByID(t *testing.T) {
	ex := sampleExecutor(t)
	res, err := ex.Search(context.Background(), "ተኩስ", 10)
	require.NoError(t, err)
	assertWellFormed(t, res, 10)
	assert.Equal(t, []string{"doc-1", "doc-10", "doc-5", "doc-6"}, res.IDs())
	assert.Equal(t, res.Results[0].Score, res.Results[3].Score)
}

func TestSearchEmptyQueries(t *testing.T) {
	ex := sampleExecutor(t)
	for _, q := range []string{"", "   ", "እና ነው", "።", "NOT"} {
		res, err := ex.Search(context.Background(), q, 10)
		require.NoError(t, err, q)
		assert.NotNil(t, res.Results, q)
		assert.Empty(t, res.Results, q)
		assert.Zero(t, res.TotalHits, q)
	}
}

func TestSearchOutOfVocabulary(t *testing.T) {
	ex := sampleExecutor(t)
	res, err := ex.Search(context.Background(), "ዝንጀሮ", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, 0, res.TermStats["ዝንጀሮ"])

	res, err = ex.Search(context.Background(), "ዝንጀሮ ትኩሳት", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-10"}, res.IDs())
}

func TestSearchLimits(t *testing.T) {
	ex := sampleExecutor(t)
	ctx := context.Background()

	res, err := ex.Search(ctx, "ከመብላት", 2)
	require.NoError(t, err)
	assertWellFormed(t, res, 2)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, 7, res.TotalHits)

	for _, limit := range []int{0, -3} {
		res, err = ex.Search(ctx, "ከመብላት", limit)
		require.NoError(t, err)
		assert.Len(t, res.Results, 7)
	}

	assert.Equal(t, 100, ex.NormalizeLimit(1000))
	assert.Equal(t, 10, ex.NormalizeLimit(0))

	narrow := sampleExecutor(t, WithLimits(3, 5))
	assert.Equal(t, 3, narrow.NormalizeLimit(0))
	assert.Equal(t, 5, narrow.NormalizeLimit(50))
}

func TestSearchBooleanOperators(t *testing.T) {
	ex := sampleExecutor(t)
	ctx := context.Background()

	res, err := ex.Search(ctx, "ህመም AND Julphar", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doc-2", "doc-4"}, res.IDs())

	res, err = ex.Search(ctx, "ህመም AND Cadila", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	res, err = ex.Search(ctx, "ህመም AND ዝንጀሮ", 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)

	res, err = ex.Search(ctx, "ህመም NOT ራስ", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-4"}, res.IDs())
}

func TestSearchNormalisesVariants(t *testing.T) {
	ex := sampleExecutor(t)
	a, err := ex.Search(context.Background(), "የስኳር መድሃኒት", 10)
	require.NoError(t, err)
	b, err := ex.Search(context.Background(), "ስኳር መድኃኒቶች", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Results)
	assert.Equal(t, a.IDs(), b.IDs())
}

func TestFieldWeightsChangeRanking(t *testing.T) {
	engine := indexer.NewEngine()
	_, err := engine.Initialize(context.Background(), []document.Document{
		{ID: "a", Title: "ፓራሲታሞል"},
		{ID: "b", Title: "ሌላ", Usage: "ፓራሲታሞል"},
	})
	require.NoError(t, err)

	res, err := New(engine).Search(context.Background(), "ፓራሲታሞል", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.IDs())

	weights := map[document.Field]float64{document.FieldTitle: 0.1, document.FieldUsage: 5}
	res, err = New(engine, WithFieldWeights(weights)).Search(context.Background(), "ፓራሲታሞል", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, res.IDs())
}

func TestExecuteCancelled(t *testing.T) {
	ex := sampleExecutor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ex.Search(ctx, "ህመም", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutorMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ex := sampleExecutor(t, WithMetrics(m))
	ctx := context.Background()
	_, _ = ex.Search(ctx, "ህመም", 10)
	_, _ = ex.Search(ctx, "ዝንጀሮ", 10)
	_, _ = ex.Search(ctx, "", 10)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("empty")))
}

func BenchmarkSearch(b *testing.B) {
	ex := sampleExecutor(b)
	ctx := context.Background()
	queries := []string{"ራስ ምታት", "ህመም AND Julphar", "የስኳር መድሃኒት", "ከመብላት NOT በፊት"}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ex.Search(ctx, queries[i%len(queries)], 10)
	}
}
