package registry

// Built-in agent ids.
const (
	AgentDataEngineer = "data_engineer"
	AgentSchema       = "schema_agent"
	AgentAnalyst      = "analyst"
)

// Built-in intent names.
const (
	IntentRunSQL          = "run_sql"
	IntentIngestFile      = "ingest_file"
	IntentCleanData       = "clean_data"
	IntentGetSchema       = "get_schema"
	IntentDetectSchema    = "detect_schema"
	IntentCalculateMetric = "calculate_metric"
	IntentAnalyzeTrend    = "analyze_trend"
)

// Bootstrap registers the built-in agent set.
func Bootstrap(r *Registry) {
	r.Register(AgentProfile{
		ID:          AgentDataEngineer,
		Name:        "Data Engineer",
		Role:        "Data Engineering",
		Description: "Cleans, transforms, and ingests data.",
		Capabilities: []Capability{
			{
				Intent:      IntentRunSQL,
				Description: "Execute raw SQL",
				Parameters: []Parameter{
					{Name: "query", Type: ParamString, Description: "SQL query", Required: true},
				},
			},
			{
				Intent:      IntentIngestFile,
				Description: "Load file into table",
				Parameters: []Parameter{
					{Name: "path", Type: ParamString, Description: "File path", Required: true},
					{Name: "tableName", Type: ParamString, Description: "Target table name", Required: true},
				},
			},
			{
				Intent:      IntentCleanData,
				Description: "Clean nulls/duplicates",
				Parameters: []Parameter{
					{Name: "tableName", Type: ParamString, Description: "Table name", Required: true},
				},
			},
			{
				Intent:      IntentGetSchema,
				Description: "Get table schema",
				Parameters: []Parameter{
					{Name: "table", Type: ParamString, Description: "Table name", Required: true},
				},
			},
		},
	})

	r.Register(AgentProfile{
		ID:          AgentSchema,
		Name:        "Schema Detective",
		Role:        "Metadata Analyst",
		Description: "Analyzes file structure and types.",
		Capabilities: []Capability{
			{
				Intent:      IntentDetectSchema,
				Description: "Infer schema from CSV",
				Parameters: []Parameter{
					{Name: "path", Type: ParamString, Description: "File path", Required: true},
				},
			},
		},
	})

	r.Register(AgentProfile{
		ID:          AgentAnalyst,
		Name:        "Data Analyst",
		Role:        "Financial Analyst",
		Description: "Generates insights and answers questions.",
		Capabilities: []Capability{
			{
				Intent:      IntentCalculateMetric,
				Description: "Calculate a specific business metric",
				Parameters: []Parameter{
					{Name: "metricId", Type: ParamString, Description: "ID of the metric", Required: true},
				},
			},
			{
				Intent:      IntentAnalyzeTrend,
				Description: "Analyze trends over time and generate charts",
				Parameters: []Parameter{
					{Name: "metricId", Type: ParamString, Description: "Metric to analyze", Required: true},
				},
			},
		},
	})
}
