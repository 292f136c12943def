package runtime

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/db"
	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/events"
	"github.com/slokhande/dataos/internal/metrics"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
	"github.com/slokhande/dataos/internal/router"
	"github.com/slokhande/dataos/internal/vfs"
)

const salesCSV = `region,sales,active
north,100,true
south,250,false
east,75,true
`

type fixture struct {
	runtime *Runtime
	bus     *events.Bus
	files   *vfs.Store
	engine  *engine.SQLite
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	handle, err := db.Open(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	eng, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	bus := events.NewBus()
	files := vfs.NewStore(handle, bus)
	require.NoError(t, files.Bootstrap(context.Background()))

	r := router.New(eng, cache.NewStore(handle), 0)
	svc, err := metrics.NewService(r, "")
	require.NoError(t, err)

	reg := registry.New()
	registry.Bootstrap(reg)

	return &fixture{
		runtime: New(reg, r, eng, files, svc, bus),
		bus:     bus,
		files:   files,
		engine:  eng,
	}
}

func (f *fixture) writeAndIngest(t *testing.T, path, content, table string) model.ExecutionResult {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.files.WriteFile(ctx, path, content, 0))
	return f.runtime.ExecuteIntent(ctx, model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentIngestFile,
		Params:  map[string]any{"path": path, "tableName": table},
	})
}

func TestExecuteIntent_UnknownAgent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{AgentID: "ghost", Intent: "run_sql"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown agent")
}

func TestExecuteIntent_MissingRequiredParam(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentRunSQL,
		Params:  map[string]any{},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "missing required parameter")
}

func TestIngestFile_SanitizesTableNameAndCountsRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.writeAndIngest(t, "/home/sales.csv", salesCSV, "sales data!")
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "Successfully executed ingest_file", result.Message)

	ingested, ok := result.Data.(IngestResult)
	require.True(t, ok)
	assert.Equal(t, "sales_data_", ingested.Table)
	assert.EqualValues(t, 3, ingested.Rows)
}

func TestIngestFile_ReplacesExistingTable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.writeAndIngest(t, "/home/sales.csv", salesCSV, "sales")
	require.True(t, first.Success, first.Message)

	ctx := context.Background()
	second := f.runtime.ExecuteIntent(ctx, model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentIngestFile,
		Params:  map[string]any{"path": "/home/sales.csv", "tableName": "sales"},
	})
	require.True(t, second.Success, second.Message)

	ingested, ok := second.Data.(IngestResult)
	require.True(t, ok)
	assert.EqualValues(t, 3, ingested.Rows)
}

func TestIngestFile_MissingFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentIngestFile,
		Params:  map[string]any{"path": "/home/ghost.csv", "tableName": "ghost"},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not found in VFS")
}

func TestRunSQL_AfterIngest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.True(t, f.writeAndIngest(t, "/home/sales.csv", salesCSV, "sales").Success)

	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentRunSQL,
		Params:  map[string]any{"query": "SELECT SUM(sales) AS total FROM sales"},
	})
	require.True(t, result.Success, result.Message)

	rows, ok := result.Data.([]engine.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 425, rows[0]["total"])
}

func TestGetSchema_MissingTableIsRewritten(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentGetSchema,
		Params:  map[string]any{"table": "ghost"},
	})
	assert.False(t, result.Success)
	assert.Equal(t, "The table 'ghost' doesn't exist. Try ingesting a file first?", result.Message)
}

func TestCleanData_Deduplicates(t *testing.T) {
	t.Parallel()

	dupCSV := "region,sales\nnorth,100\nnorth,100\nsouth,250\n"
	f := newFixture(t)
	require.True(t, f.writeAndIngest(t, "/home/dup.csv", dupCSV, "dup").Success)

	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentDataEngineer,
		Intent:  registry.IntentCleanData,
		Params:  map[string]any{"tableName": "dup"},
	})
	require.True(t, result.Success, result.Message)

	cleaned, ok := result.Data.(CleanResult)
	require.True(t, ok)
	assert.EqualValues(t, 2, cleaned.Rows)
}

func TestDetectSchema_InfersTypesFromFirstDataRow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.files.WriteFile(ctx, "/home/data.csv", salesCSV, 0))

	result := f.runtime.ExecuteIntent(ctx, model.Intent{
		AgentID: registry.AgentSchema,
		Intent:  registry.IntentDetectSchema,
		Params:  map[string]any{"path": "/home/data.csv"},
	})
	require.True(t, result.Success, result.Message)

	report, ok := result.Data.(SchemaReport)
	require.True(t, ok)
	assert.Equal(t, []string{"region", "sales", "active"}, report.Columns)
	require.Len(t, report.Schema, 3)
	assert.Equal(t, "STRING", report.Schema[0].Type)
	assert.Equal(t, "NUMBER", report.Schema[1].Type)
	assert.Equal(t, "BOOLEAN", report.Schema[2].Type)
	assert.Equal(t, 3, report.RowCount)
}

func TestDetectSchema_RejectsBinaryContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.files.WriteFile(ctx, "/home/blob.bin", "PK\x00\x01junk", 0))

	result := f.runtime.ExecuteIntent(ctx, model.Intent{
		AgentID: registry.AgentSchema,
		Intent:  registry.IntentDetectSchema,
		Params:  map[string]any{"path": "/home/blob.bin"},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "binary content")
}

func TestCalculateMetric_ThroughMetricsService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.True(t, f.writeAndIngest(t, "/home/main.csv", "region,sales\nnorth,100\nsouth,250\neast,75\n", "main").Success)

	result := f.runtime.ExecuteIntent(context.Background(), model.Intent{
		AgentID: registry.AgentAnalyst,
		Intent:  registry.IntentCalculateMetric,
		Params:  map[string]any{"metricId": "total_revenue"},
	})
	require.True(t, result.Success, result.Message)

	value, ok := result.Data.(MetricValue)
	require.True(t, ok)
	assert.EqualValues(t, 425, value.Value)
}

func TestExecutePlan_HaltsOnFirstFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	plan := model.NewPlan("break early", []model.Intent{
		{AgentID: "ghost", Intent: "run_sql", Params: map[string]any{"query": "SELECT 1"}},
		{AgentID: registry.AgentAnalyst, Intent: registry.IntentAnalyzeTrend, Params: map[string]any{"metricId": "total_revenue"}},
	})

	results := f.runtime.ExecutePlan(context.Background(), &plan)
	require.Len(t, results, 1)
	assert.False(t, results[0].Result.Success)
	assert.Equal(t, model.PlanFailed, plan.Status)
}

func TestExecutePlan_CompletesAllSteps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	plan := model.NewPlan("trend twice", []model.Intent{
		{AgentID: registry.AgentAnalyst, Intent: registry.IntentAnalyzeTrend, Params: map[string]any{"metricId": "total_revenue"}},
		{AgentID: registry.AgentAnalyst, Intent: registry.IntentAnalyzeTrend, Params: map[string]any{"metricId": "sales_volume"}},
	})

	results := f.runtime.ExecutePlan(context.Background(), &plan)
	require.Len(t, results, 2)
	assert.Equal(t, model.PlanCompleted, plan.Status)
	assert.Len(t, f.runtime.Log(), 2)
}

func TestFileCreatedReaction_AnnouncesSchema(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.files.WriteFile(ctx, "/home/report.csv", salesCSV, 0))

	var announcement string
	for _, ev := range f.bus.History(0) {
		if ev.Type != events.AgentMessage {
			continue
		}
		if msg, ok := ev.Payload.(events.AgentMessagePayload); ok {
			announcement = msg.Message
		}
	}
	require.NotEmpty(t, announcement)
	assert.Contains(t, announcement, "I've analyzed /home/report.csv")
	assert.Contains(t, announcement, "region, sales, active")
}

func TestFileCreatedReaction_IgnoresNonTabularFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.files.WriteFile(ctx, "/home/notes.txt", "hello", 0))

	for _, ev := range f.bus.History(0) {
		assert.NotEqual(t, events.AgentMessage, ev.Type)
	}
}
