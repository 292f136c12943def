package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"

	"github.com/slokhande/dataos/internal/metrics"
	"github.com/slokhande/dataos/internal/model"
	"github.com/slokhande/dataos/internal/registry"
)

const planSchema = `{
  "type": "object",
  "properties": {
    "goal": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "agentId": {"type": "string"},
          "intent": {"type": "string"},
          "params": {"type": "object"},
          "reasoning": {"type": "string"},
          "confidence": {"type": "number"}
        },
        "required": ["agentId", "intent", "params"],
        "additionalProperties": false
      }
    }
  },
  "required": ["goal", "steps"],
  "additionalProperties": false
}`

// Oracle plans by asking a generative model, constrained to JSON output
// validated against planSchema.
type Oracle struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	registry *registry.Registry
	metrics  *metrics.Service
}

// NewOracle builds a model-backed planner. The API key comes from the
// environment the client reads when apiKey is empty.
func NewOracle(ctx context.Context, apiKey, modelName string, timeout time.Duration, reg *registry.Registry, m *metrics.Service) (*Oracle, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Oracle{
		client:   client,
		model:    modelName,
		timeout:  timeout,
		registry: reg,
		metrics:  m,
	}, nil
}

// PlanRequest asks the model for a plan and validates it before returning.
func (o *Oracle) PlanRequest(ctx context.Context, goal string) (model.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt := o.buildPrompt(goal)
	resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return model.Plan{}, fmt.Errorf("oracle planning failed: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return model.Plan{}, fmt.Errorf("oracle produced empty output")
	}

	doc, err := parsePlanOutput(raw)
	if err != nil {
		return model.Plan{}, err
	}

	plan := model.NewPlan(doc.Goal, doc.Steps)
	log.Debug().Str("plan", plan.ID).Int("steps", len(plan.Steps)).Msg("planner: oracle plan accepted")
	return plan, nil
}

func (o *Oracle) buildPrompt(goal string) string {
	var agents strings.Builder
	for i, profile := range o.registry.List() {
		intents := make([]string, 0, len(profile.Capabilities))
		for _, c := range profile.Capabilities {
			intents = append(intents, "'"+c.Intent+"'")
		}
		fmt.Fprintf(&agents, "%d. %q: can %s.\n", i+1, profile.ID, strings.Join(intents, ", "))
	}

	metricIDs := make([]string, 0)
	for _, m := range o.metrics.List() {
		metricIDs = append(metricIDs, m.ID)
	}

	return fmt.Sprintf(`Act as the DataOS Kernel Scheduler.
User Input: %q

Available Agents:
%s
Available Metrics: [%s]

Goal: Convert user input into a deterministic execution plan.

Rules:
- If user asks for a specific metric, use 'analyst'.
- If user asks for raw data or custom grouping, use 'data_engineer' with SQL.
- SQL must be safe (SELECT only).
- Output ONLY valid JSON matching this schema, no markdown or prose:
{"goal": "...", "steps": [{"agentId": "...", "intent": "...", "params": {}, "reasoning": "...", "confidence": 0.9}]}
`, goal, agents.String(), strings.Join(metricIDs, ", "))
}

type planDocument struct {
	Goal  string         `json:"goal"`
	Steps []model.Intent `json:"steps"`
}

// parsePlanOutput extracts, validates, and decodes a plan from raw model
// output that may be wrapped in markdown fences or prose.
func parsePlanOutput(raw string) (planDocument, error) {
	extracted, ok := extractJSON(raw)
	if !ok {
		return planDocument{}, fmt.Errorf("oracle output is not valid JSON")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(planSchema),
		gojsonschema.NewStringLoader(extracted),
	)
	if err != nil {
		return planDocument{}, fmt.Errorf("validate plan output: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return planDocument{}, fmt.Errorf("invalid plan output: %s", strings.Join(details, "; "))
	}

	var doc planDocument
	if err := json.Unmarshal([]byte(extracted), &doc); err != nil {
		return planDocument{}, fmt.Errorf("parse plan output: %w", err)
	}
	return doc, nil
}

// extractJSON pulls the outermost JSON object out of model output, tolerating
// markdown fences and surrounding prose.
func extractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}
