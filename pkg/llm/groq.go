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

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient is the alternate generation provider, speaking the
// OpenAI-compatible chat completions API with JSON-object response mode.
type GroqClient struct {
	baseURL    string
	apiKey     string
	modelName  string
	httpClient *http.Client
}

// NewGroqClient creates a client for the given model. An empty baseURL
// selects the public API endpoint.
func NewGroqClient(apiKey, modelName, baseURL string) *GroqClient {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}

	return &GroqClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: time.Minute * 2,
		},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqRequest struct {
	Model               string              `json:"model"`
	Messages            []groqMessage       `json:"messages"`
	Temperature         float32             `json:"temperature"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	TopP                float32             `json:"top_p,omitempty"`
	ResponseFormat      *groqResponseFormat `json:"response_format,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
}

// RewriteDescription sends the enhancement prompt and the current
// description, requiring a {"description": string} JSON object back.
func (c *GroqClient) RewriteDescription(ctx context.Context, description string) (string, error) {
	system := EnhanceDescriptionPrompt +
		` YOU MUST RESPOND WITH A JSON OBJECT {"description": string}.`

	text, err := c.complete(ctx, system, description, 300)
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
// string plus metadata filters.
func (c *GroqClient) PlanQuery(ctx context.Context, question string) (QueryPlan, error) {
	text, err := c.complete(ctx, QueryPlanPrompt, question, 300)
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

// complete posts a chat completion and returns the first choice's content.
func (c *GroqClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	req := groqRequest{
		Model: c.modelName,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:         0.1,
		MaxCompletionTokens: maxTokens,
		TopP:                1,
		ResponseFormat:      &groqResponseFormat{Type: "json_object"},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Groq API error (status %d): %s", resp.StatusCode, body)
	}

	var chatResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to parse Groq response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("Groq response contained no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
