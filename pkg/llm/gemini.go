package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient talks to the Google Generative Language API over plain
// HTTP. Generation requests carry a permissive safety configuration and a
// JSON response schema so the model's output is machine-parseable.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

// NewGeminiClient creates a client for the given model. An empty baseURL
// selects the public API endpoint.
func NewGeminiClient(apiKey, modelName, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: time.Minute * 2,
		},
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	SafetySettings    []safetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// permissiveSafetySettings disables blocking for all four harm
// categories, matching the service's generation configuration.
var permissiveSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// RewriteDescription sends the enhancement prompt and the current
// description, requiring a {"description": string} JSON object back.
func (c *GeminiClient) RewriteDescription(ctx context.Context, description string) (string, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: EnhanceDescriptionPrompt}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: fmt.Sprintf("Here's the data: %s.", description)}},
			},
		},
		SafetySettings: permissiveSafetySettings,
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
			ResponseSchema: map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"description": map[string]any{"type": "STRING"},
				},
				"required": []string{"description"},
			},
		},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", err
	}

	var parsed descriptionResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return "", fmt.Errorf("parse rewrite response: %w", err)
	}
	if parsed.Description == "" {
		return "", fmt.Errorf("rewrite response missing description field")
	}

	return parsed.Description, nil
}

// PlanQuery asks the model to split a question into a semantic search
// string plus metadata filters, constrained to the QueryPlan schema.
func (c *GeminiClient) PlanQuery(ctx context.Context, question string) (QueryPlan, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: QueryPlanPrompt}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: question}},
			},
		},
		SafetySettings: permissiveSafetySettings,
		GenerationConfig: generationConfig{
			Temperature:      0.1,
			ResponseMimeType: "application/json",
			ResponseSchema: map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"search":     map[string]any{"type": "STRING"},
					"language":   map[string]any{"type": "STRING"},
					"created_by": map[string]any{"type": "STRING"},
					"categories": map[string]any{
						"type":  "ARRAY",
						"items": map[string]any{"type": "STRING"},
					},
					"min_stars": map[string]any{"type": "INTEGER"},
				},
				"required": []string{"search"},
			},
		},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return QueryPlan{}, err
	}

	var plan QueryPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return QueryPlan{}, fmt.Errorf("parse query plan: %w", err)
	}
	if strings.TrimSpace(plan.Search) == "" {
		return QueryPlan{}, fmt.Errorf("query plan missing search field")
	}

	return plan, nil
}

// generate posts a generateContent request and returns the first
// candidate's text.
func (c *GeminiClient) generate(ctx context.Context, req geminiRequest) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.modelName, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, body)
	}

	var genResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini response contained no candidates")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}
