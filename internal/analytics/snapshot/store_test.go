package snapshot

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medir/amharic-medsearch/internal/analytics"
	"github.com/medir/amharic-medsearch/pkg/config"
	"github.com/medir/amharic-medsearch/pkg/postgres"
)

// Needs a reachable database; set MS_TEST_POSTGRES_HOST to run it.
func TestStoreRoundTrip(t *testing.T) {
	host := os.Getenv("MS_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("MS_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	table := fmt.Sprintf("analytics_snapshots_test_%d", time.Now().UnixNano())
	store := NewStore(client, table)
	require.NoError(t, store.EnsureSchema(ctx))
	defer client.DB.ExecContext(context.Background(), "DROP TABLE "+table)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	agg := analytics.NewAggregator()
	agg.RecordSearch(analytics.SearchEvent{Query: "ህመም", TotalHits: 2})
	require.NoError(t, store.Save(ctx, agg.Stats()))
	agg.RecordSearch(analytics.SearchEvent{Query: "ዝንጀሮ"})
	require.NoError(t, store.Save(ctx, agg.Stats()))

	list, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].Stats.TotalSearches)
	assert.Equal(t, int64(1), list[1].Stats.TotalSearches)

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(1), latest.Stats.ZeroResultCount)
}

func TestRunSavesFinalSnapshot(t *testing.T) {
	host := os.Getenv("MS_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("MS_TEST_POSTGRES_HOST not set")
	}
	cfg := config.Default().Postgres
	cfg.Host = host
	client, err := postgres.New(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	table := fmt.Sprintf("analytics_snapshots_run_%d", time.Now().UnixNano())
	store := NewStore(client, table)
	require.NoError(t, store.EnsureSchema(context.Background()))
	defer client.DB.ExecContext(context.Background(), "DROP TABLE "+table)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Run(ctx, analytics.NewAggregator(), time.Hour)
	}()
	cancel()
	<-done

	list, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
