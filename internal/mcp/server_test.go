package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-risk-server/internal/config"
	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/symptomlog"
)

func newTestLiteServer(t *testing.T, opts ...LiteServerOption) *LiteServer {
	t.Helper()

	cfg := config.DefaultLiteConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "flare")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	server, err := NewLiteServer(cfg, append([]LiteServerOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func floatPtr(v float64) *float64 { return &v }

func TestNewLiteServer(t *testing.T) {
	server := newTestLiteServer(t)

	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.Predictor())
	assert.NotNil(t, server.SymptomStore())
	_, err := os.Stat(server.config.SymptomLogDBPath())
	assert.NoError(t, err)
}

func TestWithScorer_Nil(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()

	_, err := NewLiteServer(cfg, WithScorer(nil))
	assert.Error(t, err)
}

func TestPredictFlareTool(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	result, out, err := server.handlePredictFlare(ctx, nil, PredictFlareParams{
		SessionID:        "mcp-session",
		FoodTrigger:      "High",
		Stress:           "Severe/Extreme",
		PreviousSymptoms: "High",
		AbdominalPain:    "High",
		Bloating:         "Mild",
		SleepHours:       floatPtr(4),
		WaterLiters:      floatPtr(1),
		ManualTriggers:   []string{"Pickles"},
		FoodsEaten:       "coffee",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "High chance of flare-up today")

	prediction, ok := out.(PredictFlareResult)
	require.True(t, ok)
	assert.True(t, prediction.FlareLikely)
	assert.Equal(t, 2.0, prediction.Features["trigger_count"])
	assert.Equal(t, 4.0, prediction.Features["sleep_hours"])
	assert.Equal(t, []string{"Pickles", "coffee"}, prediction.Triggers)
	assert.Equal(t, 7, prediction.Record.AbdominalPain)

	result, out, err = server.handleSessionLog(ctx, nil, SessionLogParams{SessionID: "mcp-session"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	log := out.(SessionLogResult)
	require.Len(t, log.Records, 1)
	assert.Equal(t, []int{1}, log.Trend.Flare)
}

func TestPredictFlareTool_Defaults(t *testing.T) {
	var seen domain.FeatureVector
	server := newTestLiteServer(t, WithScorer(domain.RiskScorerFunc(func(_ context.Context, v domain.FeatureVector) (bool, error) {
		seen = v
		return false, nil
	})))

	result, out, err := server.handlePredictFlare(context.Background(), nil, PredictFlareParams{SessionID: "s"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.False(t, out.(PredictFlareResult).FlareLikely)
	assert.Equal(t, domain.FeatureVector{0, 0, 6, 2.5, 0, 0, 0}, seen)
	assert.Contains(t, resultText(t, result), "Low chance of flare-up today")
}

func TestPredictFlareTool_Errors(t *testing.T) {
	server := newTestLiteServer(t, WithScorer(domain.RiskScorerFunc(func(context.Context, domain.FeatureVector) (bool, error) {
		return false, errors.New("offline")
	})))
	ctx := context.Background()

	result, _, err := server.handlePredictFlare(ctx, nil, PredictFlareParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "session_id is required")

	result, _, err = server.handlePredictFlare(ctx, nil, PredictFlareParams{SessionID: "s", Stress: "Extreme"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), domain.ErrCodeUnknownSeverity)

	result, _, err = server.handlePredictFlare(ctx, nil, PredictFlareParams{SessionID: "s", SleepHours: floatPtr(11)})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), domain.ErrCodeRangeViolation)

	result, _, err = server.handlePredictFlare(ctx, nil, PredictFlareParams{SessionID: "s"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), domain.ErrCodeScorerUnavailable)

	result, _, err = server.handleSessionLog(ctx, nil, SessionLogParams{SessionID: "s"})
	require.NoError(t, err)
	assert.True(t, result.IsError, "failed predictions leave no session behind")
}

func TestDetectTriggersTool(t *testing.T) {
	server := newTestLiteServer(t)

	result, out, err := server.handleDetectTriggers(context.Background(), nil, DetectTriggersParams{
		Text: "Veg Noodles, salad, Pickle",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	detected := out.(DetectTriggersResult)
	assert.Equal(t, []string{"veg noodles", "pickle"}, detected.Triggers)
	assert.Equal(t, 2, detected.Count)
}

func TestListSeveritiesTool(t *testing.T) {
	server := newTestLiteServer(t)

	result, out, err := server.handleListSeverities(context.Background(), nil, ListSeveritiesParams{})
	require.NoError(t, err)

	list := out.(ListSeveritiesResult)
	require.Len(t, list.Severities, 5)
	assert.Equal(t, domain.SeverityModerate, list.Severities[2].Name)
	assert.Equal(t, 5, list.Severities[2].Score)
	assert.Len(t, list.TriggerChoices, 6)

	// The second content block carries the JSON payload.
	require.Len(t, result.Content, 2)
	payload := result.Content[1].(*mcp.TextContent).Text
	var decoded ListSeveritiesResult
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, list.Severities, decoded.Severities)
}

func TestExportSymptomLogTool(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, _, err := server.handlePredictFlare(ctx, nil, PredictFlareParams{SessionID: "export", AbdominalPain: "Mild"})
		require.NoError(t, err)
		require.False(t, result.IsError)
	}

	result, out, err := server.handleExportLog(ctx, nil, ExportLogParams{})
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	exported := out.(ExportLogResult)
	assert.Equal(t, int64(2), exported.Count)
	assert.Equal(t, server.config.ExportDir(), filepath.Dir(exported.Path))

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	var export symptomlog.LogExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, 2, export.Count)
	assert.Equal(t, 2, export.Entries[0].AbdominalPain)
}

func TestCatalogResource(t *testing.T) {
	server := newTestLiteServer(t)

	result, err := server.readCatalog(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, catalogURI, result.Contents[0].URI)

	var catalog CatalogResource
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &catalog))
	assert.Len(t, catalog.Severities, 5)
	assert.Contains(t, catalog.Keywords, "coffee")
}

func TestRecentLogResource(t *testing.T) {
	server := newTestLiteServer(t)
	ctx := context.Background()

	_, _, err := server.handlePredictFlare(ctx, nil, PredictFlareParams{SessionID: "r", Bloating: "High"})
	require.NoError(t, err)

	result, err := server.readRecentLog(ctx, nil)
	require.NoError(t, err)

	var entries []symptomlog.Entry
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].Bloating)
}

func TestDailyCheckinPrompt(t *testing.T) {
	server := newTestLiteServer(t)

	_, err := server.getDailyCheckin(context.Background(), nil)
	assert.Error(t, err)

	result, err := server.getDailyCheckin(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Arguments: map[string]string{"session_id": "morning", "foods": "coffee, toast"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text := result.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, `session_id "morning"`)
	assert.Contains(t, text, "coffee, toast")
	assert.Contains(t, text, "Severe/Extreme")
}
