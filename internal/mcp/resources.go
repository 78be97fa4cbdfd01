package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flare-risk-server/internal/domain"
)

const (
	catalogURI   = "flare://catalog"
	recentLogURI = "flare://symptom-log/recent"

	recentLogLimit = 30
)

func (s *LiteServer) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         catalogURI,
		Name:        "catalog",
		Description: "Severity scale, common trigger foods and detection keywords",
		MIMEType:    "application/json",
	}, s.readCatalog)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         recentLogURI,
		Name:        "recent_symptom_log",
		Description: "The most recent entries of the durable symptom log",
		MIMEType:    "application/json",
	}, s.readRecentLog)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "daily_checkin",
		Description: "Walk through today's symptom form and score the flare-up risk",
		Arguments: []*mcp.PromptArgument{
			{Name: "session_id", Description: "session to log under", Required: true},
			{Name: "foods", Description: "foods eaten today, if already known"},
		},
	}, s.getDailyCheckin)
}

// CatalogResource is the body of the catalog resource.
type CatalogResource struct {
	Severities     []domain.SeverityInfo `json:"severities"`
	TriggerChoices []string              `json:"trigger_choices"`
	Keywords       []string              `json:"keywords"`
}

func (s *LiteServer) readCatalog(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(catalogURI, CatalogResource{
		Severities:     domain.SeverityCatalog(),
		TriggerChoices: domain.CommonTriggerChoices,
		Keywords:       s.predictor.Detector().Keywords(),
	})
}

func (s *LiteServer) readRecentLog(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.recorder.Wait()

	entries, err := s.store.List(ctx, recentLogLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing symptom log: %w", err)
	}
	return jsonResource(recentLogURI, entries)
}

func jsonResource(uri string, body any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

func (s *LiteServer) getDailyCheckin(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var args map[string]string
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}
	sessionID := args["session_id"]
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	return &mcp.GetPromptResult{
		Description: "Daily IBS flare-up check-in",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: dailyCheckinText(sessionID, args["foods"])}},
		},
	}, nil
}

func dailyCheckinText(sessionID, foods string) string {
	levels := make([]string, 0, 5)
	for _, level := range domain.SeverityLevels() {
		levels = append(levels, string(level))
	}

	var b strings.Builder
	b.WriteString("Help me log today's IBS check-in.\n\n")
	fmt.Fprintf(&b, "Ask me to rate food triggers, stress, symptoms on previous days, abdominal pain and bloating, each as one of: %s.\n", strings.Join(levels, ", "))
	fmt.Fprintf(&b, "Ask how many hours I slept (%g to %g) and how many liters of water I drank (%g to %g), and whether I exercised.\n",
		domain.SleepHoursMin, domain.SleepHoursMax, domain.WaterLitersMin, domain.WaterLitersMax)
	fmt.Fprintf(&b, "Offer these common trigger foods to pick from: %s.\n", strings.Join(domain.CommonTriggerChoices, ", "))
	if foods != "" {
		fmt.Fprintf(&b, "I already told you what I ate today: %s.\n", foods)
	} else {
		b.WriteString("Ask what I ate today as a comma-separated list.\n")
	}
	fmt.Fprintf(&b, "Then call predict_flare with session_id %q and summarise the verdict and tip.", sessionID)
	return b.String()
}
