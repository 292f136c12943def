package router

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/db"
	"github.com/slokhande/dataos/internal/engine"
)

type countingEngine struct {
	queries  []string
	explains int
	rows     []engine.Row
}

func (c *countingEngine) Query(_ context.Context, sql string) ([]engine.Row, error) {
	c.queries = append(c.queries, sql)
	return c.rows, nil
}

func (c *countingEngine) Describe(context.Context, string) ([]engine.Column, error) {
	return nil, nil
}

func (c *countingEngine) RegisterSource(string, string) {}

func (c *countingEngine) CreateTableFromSource(context.Context, string, string) error {
	return nil
}

func (c *countingEngine) Explain(context.Context, string) (string, error) {
	c.explains++
	return "SCAN sales", nil
}

func newTestRouter(t *testing.T) (*Router, *countingEngine) {
	t.Helper()
	handle, err := db.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	eng := &countingEngine{rows: []engine.Row{{"total": float64(425)}}}
	return New(eng, cache.NewStore(handle), 0), eng
}

func TestHash_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Hash("SELECT 1"), Hash("SELECT 1"))
	assert.NotEqual(t, Hash("SELECT 1"), Hash("SELECT 2"))
}

func TestExecute_CachesReads(t *testing.T) {
	t.Parallel()

	r, eng := newTestRouter(t)
	ctx := context.Background()

	first, err := r.Execute(ctx, "SELECT SUM(sales) AS total FROM sales")
	require.NoError(t, err)
	second, err := r.Execute(ctx, "SELECT SUM(sales) AS total FROM sales")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, eng.queries, 1, "second read must be served from cache")
}

func TestExecute_WritesBypassCache(t *testing.T) {
	t.Parallel()

	r, eng := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Execute(ctx, "CREATE TABLE t AS SELECT 1")
	require.NoError(t, err)
	_, err = r.Execute(ctx, "CREATE TABLE t AS SELECT 1")
	require.NoError(t, err)

	assert.Len(t, eng.queries, 2, "write-shaped statements are never cached")
}

func TestOptimize_CostClasses(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	ctx := context.Background()

	write, err := r.Optimize(ctx, "INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	assert.Equal(t, SourceCompute, write.Source)
	assert.Equal(t, costWrite, write.EstimatedCost)

	read, err := r.Optimize(ctx, "SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, SourceCompute, read.Source)
	assert.Equal(t, costRead, read.EstimatedCost)

	_, err = r.Execute(ctx, "SELECT * FROM t")
	require.NoError(t, err)

	hit, err := r.Optimize(ctx, "SELECT * FROM t")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, hit.Source)
	assert.Equal(t, costCacheHit, hit.EstimatedCost)
}

func TestExplain_BypassesCache(t *testing.T) {
	t.Parallel()

	r, eng := newTestRouter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		text, err := r.Explain(ctx, "SELECT * FROM sales")
		require.NoError(t, err)
		assert.Equal(t, "SCAN sales", text)
	}
	assert.Equal(t, 2, eng.explains)
}
