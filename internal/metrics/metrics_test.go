package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/db"
	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/router"
)

const mainCSV = `region,sales,satisfaction,units
north,100,8,10
south,250,6,25
east,75,9,5
`

func newTestService(t *testing.T, overridePath string) *Service {
	t.Helper()

	handle, err := db.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	eng, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	ctx := context.Background()
	eng.RegisterSource("main.csv", mainCSV)
	require.NoError(t, eng.CreateTableFromSource(ctx, "main", "main.csv"))

	r := router.New(eng, cache.NewStore(handle), 0)
	svc, err := NewService(r, overridePath)
	require.NoError(t, err)
	return svc
}

func TestDefaultsAreLoaded(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "")
	ids := make([]string, 0)
	for _, m := range svc.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"avg_satisfaction", "sales_volume", "total_revenue"}, ids)
}

func TestCalculate_TotalRevenue(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "")
	value, err := svc.Calculate(context.Background(), "total_revenue")
	require.NoError(t, err)
	assert.EqualValues(t, 425, value)
}

func TestCalculate_UnknownMetric(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "")
	_, err := svc.Calculate(context.Background(), "churn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTrend_SyntheticSeries(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, "")
	trend, err := svc.Trend(context.Background(), "total_revenue")
	require.NoError(t, err)

	assert.Len(t, trend.Data, 5)
	assert.Equal(t, "line", trend.ChartConfig.Type)
	assert.Contains(t, trend.Summary, "total_revenue")
}

func TestTrend_UsesTrendSQLWhenDefined(t *testing.T) {
	t.Parallel()

	override := filepath.Join(t.TempDir(), "metrics.yaml")
	content := `metrics:
  - id: regional_sales
    name: Regional Sales
    description: Sales per region
    sql: "SELECT SUM(sales) AS value FROM main"
    format: number
    trend_sql: "SELECT region AS name, SUM(sales) AS value FROM main GROUP BY region ORDER BY region"
`
	require.NoError(t, os.WriteFile(override, []byte(content), 0o644))

	svc := newTestService(t, override)
	trend, err := svc.Trend(context.Background(), "regional_sales")
	require.NoError(t, err)

	require.Len(t, trend.Data, 3)
	assert.Equal(t, "east", trend.Data[0].Name)
	assert.EqualValues(t, 75, trend.Data[0].Value)
}

func TestOverrideFileReplacesById(t *testing.T) {
	t.Parallel()

	override := filepath.Join(t.TempDir(), "metrics.yaml")
	content := `metrics:
  - id: total_revenue
    name: Net Revenue
    description: Overridden definition
    sql: "SELECT SUM(sales) - 25 AS value FROM main"
    format: currency
`
	require.NoError(t, os.WriteFile(override, []byte(content), 0o644))

	svc := newTestService(t, override)
	m, ok := svc.Get("total_revenue")
	require.True(t, ok)
	assert.Equal(t, "Net Revenue", m.Name)

	value, err := svc.Calculate(context.Background(), "total_revenue")
	require.NoError(t, err)
	assert.EqualValues(t, 400, value)
}
