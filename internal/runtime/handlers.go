package runtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/slokhande/dataos/internal/engine"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/vfs"
)

// SchemaReport is the outcome of detect_schema.
type SchemaReport struct {
	File     string          `json:"file"`
	Columns  []string        `json:"columns"`
	Schema   []engine.Column `json:"schema"`
	RowCount int             `json:"rowCount"`
}

// IngestResult is the outcome of ingest_file.
type IngestResult struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// CleanResult is the outcome of clean_data.
type CleanResult struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// MetricValue is the outcome of calculate_metric.
type MetricValue struct {
	MetricID string `json:"metricId"`
	Value    any    `json:"value"`
}

func decodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build param decoder: %w", err)
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

func (rt *Runtime) runSQL(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		Query string `mapstructure:"query"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}
	return rt.router.Execute(ctx, p.Query)
}

func (rt *Runtime) getSchema(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		Table string `mapstructure:"table"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}
	if p.Table == "" {
		p.Table = "main"
	}
	return rt.engine.Describe(ctx, p.Table)
}

var tableNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeTableName(name string) string {
	sanitized := tableNameSanitizer.ReplaceAllString(name, "_")
	if sanitized == "" {
		return "uploaded_data"
	}
	return sanitized
}

// ingestFile loads a VFS file into an engine table, replacing any previous
// table of the same name.
func (rt *Runtime) ingestFile(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		Path      string `mapstructure:"path"`
		TableName string `mapstructure:"tableName"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}

	content, err := rt.files.ReadFile(ctx, p.Path, 0)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			return nil, fmt.Errorf("File %s not found in VFS", p.Path)
		}
		return nil, err
	}

	table := sanitizeTableName(p.TableName)
	rt.engine.RegisterSource(p.Path, content)

	if _, err := rt.engine.Query(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", table)); err != nil {
		return nil, fmt.Errorf("drop previous table: %w", err)
	}
	if err := rt.engine.CreateTableFromSource(ctx, table, p.Path); err != nil {
		return nil, fmt.Errorf("ingest csv: %w", err)
	}

	rows, err := rt.engine.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %q", table))
	if err != nil {
		return nil, fmt.Errorf("verify ingestion: %w", err)
	}
	var count int64
	if len(rows) > 0 {
		if n, ok := rows[0]["n"].(int64); ok {
			count = n
		}
	}
	return IngestResult{Table: table, Rows: count}, nil
}

// cleanData deduplicates a table in place via a distinct-copy swap.
func (rt *Runtime) cleanData(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		TableName string `mapstructure:"tableName"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}

	table := sanitizeTableName(p.TableName)
	clean := table + "_clean"

	steps := []string{
		fmt.Sprintf("CREATE TABLE %q AS SELECT DISTINCT * FROM %q", clean, table),
		fmt.Sprintf("DROP TABLE %q", table),
		fmt.Sprintf("ALTER TABLE %q RENAME TO %q", clean, table),
	}
	for _, stmt := range steps {
		if _, err := rt.engine.Query(ctx, stmt); err != nil {
			return nil, fmt.Errorf("clean table %s: %w", table, err)
		}
	}

	rows, err := rt.engine.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %q", table))
	if err != nil {
		return nil, fmt.Errorf("verify clean: %w", err)
	}
	var count int64
	if len(rows) > 0 {
		if n, ok := rows[0]["n"].(int64); ok {
			count = n
		}
	}
	return CleanResult{Table: table, Rows: count}, nil
}

// detectSchema infers a lightweight schema from the file's header and first
// data row, without touching the engine.
func (rt *Runtime) detectSchema(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		Path string `mapstructure:"path"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}

	content, err := rt.files.ReadFile(ctx, p.Path, 0)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			return nil, fmt.Errorf("File %s not found in VFS", p.Path)
		}
		return nil, err
	}
	if strings.ContainsRune(content, '\x00') {
		return nil, fmt.Errorf("binary content in %s is not supported", p.Path)
	}

	lines := strings.Split(strings.TrimRight(content, "\r\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("file %s is empty", p.Path)
	}

	headers := splitCSVLine(lines[0])
	schema := make([]engine.Column, len(headers))
	var sample []string
	if len(lines) > 1 {
		sample = splitCSVLine(lines[1])
	}
	for i, h := range headers {
		colType := "STRING"
		if i < len(sample) {
			colType = inferCellType(sample[i])
		}
		schema[i] = engine.Column{Name: h, Type: colType}
	}

	return SchemaReport{
		File:     p.Path,
		Columns:  headers,
		Schema:   schema,
		RowCount: len(lines) - 1,
	}, nil
}

func splitCSVLine(line string) []string {
	parts := strings.Split(strings.TrimRight(line, "\r"), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func inferCellType(cell string) string {
	if _, err := strconv.ParseFloat(cell, 64); err == nil && cell != "" {
		return "NUMBER"
	}
	switch strings.ToLower(cell) {
	case "true", "false":
		return "BOOLEAN"
	}
	return "STRING"
}

func (rt *Runtime) calculateMetric(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		MetricID string `mapstructure:"metricId"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}
	value, err := rt.metrics.Calculate(ctx, p.MetricID)
	if err != nil {
		return nil, err
	}
	return MetricValue{MetricID: p.MetricID, Value: value}, nil
}

func (rt *Runtime) analyzeTrend(ctx context.Context, intent model.Intent) (any, error) {
	var p struct {
		MetricID string `mapstructure:"metricId"`
	}
	if err := decodeParams(intent.Params, &p); err != nil {
		return nil, err
	}
	return rt.metrics.Trend(ctx, p.MetricID)
}

// recoverTableError rewrites missing-table failures into actionable guidance.
func recoverTableError(intent model.Intent, err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "no such table") && !strings.Contains(msg, "does not exist") {
		return err
	}

	table := "unknown"
	for _, key := range []string{"tableName", "table"} {
		if v, ok := intent.Params[key].(string); ok && v != "" {
			table = v
			break
		}
	}
	if table == "unknown" {
		if m := regexp.MustCompile(`no such table: (\w+)`).FindStringSubmatch(msg); len(m) == 2 {
			table = m[1]
		}
	}
	return fmt.Errorf("The table '%s' doesn't exist. Try ingesting a file first?", table)
}
