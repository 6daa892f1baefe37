package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// VertexConfig configures the Vertex AI Gemini adapter.
type VertexConfig struct {
	Project  string
	Location string
	Model    string
	Limits   Limits
}

// VertexAdapter extracts fields with a Gemini model on Vertex AI, forcing a
// submit_extraction function call.
type VertexAdapter struct {
	models *genai.Models
	model  string
	limits Limits
	logger *slog.Logger
}

// NewVertexAdapter creates the adapter. The client is built once here and
// reused for every call.
func NewVertexAdapter(ctx context.Context, cfg VertexConfig, logger *slog.Logger) (*VertexAdapter, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex adapter: project is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &VertexAdapter{
		models: client.Models,
		model:  cfg.Model,
		limits: cfg.Limits.withDefaults(),
		logger: logger.With("system", "extract", "provider", "vertex"),
	}, nil
}

// Extract implements Adapter.
func (a *VertexAdapter) Extract(ctx context.Context, req Request) (*Result, error) {
	parts := []*genai.Part{genai.NewPartFromText(SystemPrompt())}
	if req.DocumentURI != "" {
		parts = append(parts, genai.NewPartFromURI(req.DocumentURI, req.MIMEType))
	}
	if s := ContextText(req.Text, a.limits); s != "" {
		parts = append(parts, genai.NewPartFromText(s))
	}
	if s := ContextTables(req.Tables, a.limits); s != "" {
		parts = append(parts, genai.NewPartFromText(s))
	}

	resp, err := a.models.GenerateContent(ctx, a.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
			Tools:       []*genai.Tool{extractionTool()},
			ToolConfig: &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingConfigModeAny,
					AllowedFunctionNames: []string{FunctionName},
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	for _, call := range resp.FunctionCalls() {
		if call.Name != FunctionName {
			continue
		}
		raw, err := json.Marshal(call.Args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		return DecodeResult(raw)
	}

	a.logger.WarnContext(ctx, "model returned no function call, trying text payload")
	return DecodeResult([]byte(resp.Text()))
}

// extractionTool declares submit_extraction for the model.
func extractionTool() *genai.Tool {
	nullable := genai.Ptr(true)
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        FunctionName,
			Description: "Report values extracted from financial statements, each with a confidence between 0 and 1",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"period": {
						Type:        genai.TypeString,
						Description: "Reported period, e.g. 2024Q4 or 2024-12-31",
					},
					"currency":   {Type: genai.TypeString},
					"scale_hint": {Type: genai.TypeString, Enum: []string{"UNIDAD", "MILES", "MILLONES"}},
					"fields": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"path":       {Type: genai.TypeString, Description: "e.g. balance.total_assets"},
								"value":      {Type: genai.TypeNumber, Nullable: nullable},
								"unit":       {Type: genai.TypeString, Nullable: nullable},
								"confidence": {Type: genai.TypeNumber},
							},
							Required: []string{"path", "confidence"},
						},
					},
				},
				Required: []string{"fields"},
			},
		}},
	}
}
