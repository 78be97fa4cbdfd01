package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/service"
)

// PredictFlareParams defines parameters for the predict_flare tool.
// Omitted fields take their initial form values.
type PredictFlareParams struct {
	SessionID        string   `json:"session_id" jsonschema:"session whose rolling log receives the record"`
	FoodTrigger      string   `json:"food_trigger,omitempty" jsonschema:"severity of food triggers today: None, Mild, Moderate, High or Severe/Extreme"`
	Stress           string   `json:"stress,omitempty" jsonschema:"stress severity"`
	PreviousSymptoms string   `json:"previous_symptoms,omitempty" jsonschema:"severity of symptoms on previous days"`
	AbdominalPain    string   `json:"abdominal_pain,omitempty" jsonschema:"abdominal pain severity"`
	Bloating         string   `json:"bloating,omitempty" jsonschema:"bloating severity"`
	SleepHours       *float64 `json:"sleep_hours,omitempty" jsonschema:"hours slept, 3 to 10"`
	WaterLiters      *float64 `json:"water_liters,omitempty" jsonschema:"liters of water, 0.5 to 5"`
	Exercised        bool     `json:"exercised,omitempty" jsonschema:"whether the user exercised today"`
	ManualTriggers   []string `json:"manual_triggers,omitempty" jsonschema:"trigger foods picked from the catalog"`
	FoodsEaten       string   `json:"foods_eaten,omitempty" jsonschema:"comma-separated foods eaten today"`
	RomeCriteriaMet  bool     `json:"rome_criteria_met,omitempty" jsonschema:"whether the Rome IV criteria are met"`
}

// PredictFlareResult defines the result structure for the predict_flare tool.
type PredictFlareResult struct {
	PredictionID     string                  `json:"prediction_id"`
	SessionID        string                  `json:"session_id"`
	FlareLikely      bool                    `json:"flare_likely"`
	Features         map[string]float64      `json:"features"`
	Triggers         []string                `json:"triggers"`
	DetectedTriggers []string                `json:"detected_triggers"`
	Record           domain.SymptomLogRecord `json:"record"`
	Advice           domain.Advice           `json:"advice"`
}

// DetectTriggersParams defines parameters for the detect_triggers tool.
type DetectTriggersParams struct {
	Text string `json:"text" jsonschema:"comma-separated foods eaten"`
}

// DetectTriggersResult defines the result structure for the detect_triggers tool.
type DetectTriggersResult struct {
	Triggers []string `json:"triggers"`
	Count    int      `json:"count"`
}

// ListSeveritiesParams takes no arguments.
type ListSeveritiesParams struct{}

// ListSeveritiesResult defines the result structure for the list_severities tool.
type ListSeveritiesResult struct {
	Severities     []domain.SeverityInfo `json:"severities"`
	TriggerChoices []string              `json:"trigger_choices"`
}

// SessionLogParams defines parameters for the session_log tool.
type SessionLogParams struct {
	SessionID string `json:"session_id" jsonschema:"session to read"`
}

// SessionLogResult defines the result structure for the session_log tool.
type SessionLogResult struct {
	SessionID string                    `json:"session_id"`
	Records   []domain.SymptomLogRecord `json:"records"`
	Trend     service.Trend             `json:"trend"`
}

// ExportLogParams takes no arguments.
type ExportLogParams struct{}

// ExportLogResult defines the result structure for the export_symptom_log tool.
type ExportLogResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *LiteServer) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "predict_flare",
		Description: "Score today's symptoms and lifestyle inputs for IBS flare-up risk and append the result to the session log",
	}, s.handlePredictFlare)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "detect_triggers",
		Description: "Find likely trigger foods in a comma-separated list of foods eaten",
	}, s.handleDetectTriggers)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_severities",
		Description: "List the severity scale with scores and descriptions, and the common trigger foods",
	}, s.handleListSeverities)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "session_log",
		Description: "Return a session's recent symptom log records and trend series",
	}, s.handleSessionLog)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_symptom_log",
		Description: "Write the durable symptom log to a versioned JSON file in the export directory",
	}, s.handleExportLog)

	s.logger.WithField("tool_count", 5).Info("Successfully registered all tools")
}

func (p PredictFlareParams) request() domain.PredictionRequest {
	req := domain.DefaultPredictionRequest()
	setLevel := func(dst *domain.SeverityLevel, v string) {
		if v != "" {
			*dst = domain.SeverityLevel(v)
		}
	}
	setLevel(&req.FoodTrigger, p.FoodTrigger)
	setLevel(&req.Stress, p.Stress)
	setLevel(&req.PreviousSymptoms, p.PreviousSymptoms)
	setLevel(&req.AbdominalPain, p.AbdominalPain)
	setLevel(&req.Bloating, p.Bloating)
	if p.SleepHours != nil {
		req.SleepHours = *p.SleepHours
	}
	if p.WaterLiters != nil {
		req.WaterLiters = *p.WaterLiters
	}
	req.Exercised = p.Exercised
	req.ManualTriggers = p.ManualTriggers
	req.FoodsEaten = p.FoodsEaten
	req.RomeCriteriaMet = p.RomeCriteriaMet
	return req
}

func (s *LiteServer) handlePredictFlare(ctx context.Context, req *mcp.CallToolRequest, params PredictFlareParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "predict_flare").Info("Tool invoked")

	if params.SessionID == "" {
		return createErrorResult("Missing required parameter", fmt.Errorf("session_id is required")), nil, nil
	}

	prediction, err := s.predictor.Predict(ctx, params.SessionID, params.request())
	if err != nil {
		return createErrorResult(domain.ErrorCode(err), err), nil, nil
	}

	result := PredictFlareResult{
		PredictionID:     prediction.ID,
		SessionID:        prediction.SessionID,
		FlareLikely:      prediction.FlareLikely,
		Features:         prediction.Vector.Named(),
		Triggers:         prediction.Triggers.Items(),
		DetectedTriggers: prediction.DetectedTriggers.Items(),
		Record:           prediction.Record,
		Advice:           prediction.Advice,
	}

	verdict := "Low chance of flare-up today"
	if result.FlareLikely {
		verdict = "High chance of flare-up today"
	}
	return textResult(fmt.Sprintf("%s. %s", verdict, result.Advice.Tip), result)
}

func (s *LiteServer) handleDetectTriggers(ctx context.Context, req *mcp.CallToolRequest, params DetectTriggersParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "detect_triggers").Info("Tool invoked")

	detected := s.predictor.Detector().Detect(params.Text)
	result := DetectTriggersResult{
		Triggers: detected.Items(),
		Count:    detected.Len(),
	}
	return textResult(fmt.Sprintf("Detected %d likely trigger(s)", result.Count), result)
}

func (s *LiteServer) handleListSeverities(ctx context.Context, req *mcp.CallToolRequest, params ListSeveritiesParams) (*mcp.CallToolResult, any, error) {
	result := ListSeveritiesResult{
		Severities:     domain.SeverityCatalog(),
		TriggerChoices: domain.CommonTriggerChoices,
	}
	return textResult(fmt.Sprintf("%d severity levels", len(result.Severities)), result)
}

func (s *LiteServer) handleSessionLog(ctx context.Context, req *mcp.CallToolRequest, params SessionLogParams) (*mcp.CallToolResult, any, error) {
	log, ok := s.predictor.Sessions().Lookup(params.SessionID)
	if !ok {
		return createErrorResult("Unknown session", fmt.Errorf("session %q: %w", params.SessionID, domain.ErrNotFound)), nil, nil
	}

	records := log.Records()
	result := SessionLogResult{
		SessionID: params.SessionID,
		Records:   records,
		Trend:     service.TrendOf(records),
	}
	return textResult(fmt.Sprintf("%d record(s) in session %s", len(records), params.SessionID), result)
}

func (s *LiteServer) handleExportLog(ctx context.Context, req *mcp.CallToolRequest, params ExportLogParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "export_symptom_log").Info("Tool invoked")

	// Pending background appends belong in the export.
	s.recorder.Wait()

	count, err := s.store.Count(ctx)
	if err != nil {
		return createErrorResult("Failed to count symptom log", err), nil, nil
	}

	path := filepath.Join(s.config.ExportDir(), fmt.Sprintf("symptom_log_%s.json", time.Now().UTC().Format("20060102T150405Z")))
	file, err := os.Create(path)
	if err != nil {
		return createErrorResult("Failed to create export file", err), nil, nil
	}
	defer file.Close()

	if err := s.store.ExportJSON(ctx, file); err != nil {
		return createErrorResult("Failed to export symptom log", err), nil, nil
	}

	result := ExportLogResult{Path: path, Count: count}
	return textResult(fmt.Sprintf("Exported %d record(s) to %s", count, path), result)
}

func textResult(summary string, result any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(data)},
		},
	}, result, nil
}

// createErrorResult creates a standardized error result for tool calls
func createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
