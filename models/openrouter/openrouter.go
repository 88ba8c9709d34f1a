package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	models "github.com/Desarso/ideassist/models"
	"github.com/joho/godotenv"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	OpenAIBaseURL     = "https://api.openai.com/v1/chat/completions"
	GroqBaseURL       = "https://api.groq.com/openai/v1/chat/completions"
	CerebrasBaseURL   = "https://api.cerebras.ai/v1/chat/completions"
	DefaultModel      = "openai/gpt-4o-mini"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// OpenRouter_Model implements the Model interface for OpenRouter API
// Also supports any OpenAI-compatible API endpoint
type OpenRouter_Model struct {
	Model        string // Model identifier (e.g., "openai/gpt-4o", "anthropic/claude-3-opus")
	Temperature  *float64
	MaxTokens    *int
	SiteURL      string // Optional: Your site URL for OpenRouter rankings
	SiteName     string // Optional: Your site name for OpenRouter rankings
	SystemPrompt string // Optional: System prompt for the AI
	BaseURL      string // Optional: Custom API base URL (defaults to OpenRouter)
	APIKey       string // Optional: API key; read from APIKeyEnv when empty
	APIKeyEnv    string // Optional: Environment variable name for API key (defaults to OPENROUTER_API_KEY)
	HTTPClient   *http.Client
}

// NewOpenAI returns a model talking to the OpenAI chat completions endpoint.
func NewOpenAI(model string) *OpenRouter_Model {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenRouter_Model{Model: model, BaseURL: OpenAIBaseURL, APIKeyEnv: "OPENAI_API_KEY"}
}

// NewGroq returns a model talking to Groq's OpenAI-compatible endpoint.
func NewGroq(model string) *OpenRouter_Model {
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	return &OpenRouter_Model{Model: model, BaseURL: GroqBaseURL, APIKeyEnv: "GROQ_API_KEY"}
}

// NewCerebras returns a model talking to Cerebras' OpenAI-compatible endpoint.
func NewCerebras(model string) *OpenRouter_Model {
	if model == "" {
		model = "llama-3.3-70b"
	}
	return &OpenRouter_Model{Model: model, BaseURL: CerebrasBaseURL, APIKeyEnv: "CEREBRAS_API_KEY"}
}

// Model_Request implements the Model interface
func (o *OpenRouter_Model) Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error) {
	if len(request.Messages) == 0 {
		return models.Model_Response{}, fmt.Errorf("request must contain at least one message")
	}

	response, err := o.makeRequest(ctx, o.createOpenRouterRequest(request))
	if err != nil {
		return models.Model_Response{}, err
	}
	return o.openRouterResponseToModelResponse(response)
}

func (o *OpenRouter_Model) createOpenRouterRequest(request models.Model_Request) OpenRouterRequest {
	modelToUse := request.Model
	if modelToUse == "" {
		modelToUse = o.Model
	}
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	systemPrompt := request.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = o.SystemPrompt
	}

	messages := make([]ChatMessage, 0, len(request.Messages)+1)
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range request.Messages {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	body := OpenRouterRequest{
		Model:       modelToUse,
		Messages:    messages,
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	}
	if request.Temperature != nil {
		body.Temperature = request.Temperature
	}
	if request.MaxTokens != nil {
		body.MaxTokens = request.MaxTokens
	}
	return body
}

// openRouterResponseToModelResponse keeps one part per content chunk, so a
// string reply becomes a single part.
func (o *OpenRouter_Model) openRouterResponseToModelResponse(response OpenRouterResponse) (models.Model_Response, error) {
	modelResponse := models.Model_Response{}
	for _, choice := range response.Choices {
		for _, chunk := range choice.Message.Chunks {
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Type: "text", Text: chunk})
		}
	}
	if len(modelResponse.Parts) == 0 {
		return models.Model_Response{}, models.ErrEmptyResponse
	}
	return modelResponse, nil
}

// makeRequest sends a non-streaming request to OpenRouter
func (o *OpenRouter_Model) makeRequest(ctx context.Context, requestBody OpenRouterRequest) (OpenRouterResponse, error) {
	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return OpenRouterResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	// Use custom base URL if provided, otherwise use OpenRouter
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return OpenRouterResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	o.setHeaders(req)

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return OpenRouterResponse{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OpenRouterResponse{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return OpenRouterResponse{}, fmt.Errorf("OpenRouter API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return OpenRouterResponse{}, fmt.Errorf("OpenRouter API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var response OpenRouterResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return OpenRouterResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return response, nil
}

// setHeaders sets the required headers for OpenRouter API requests
func (o *OpenRouter_Model) setHeaders(req *http.Request) {
	apiKey := o.APIKey
	if apiKey == "" {
		// Use custom API key environment variable if provided, otherwise use OPENROUTER_API_KEY
		apiKeyEnv := o.APIKeyEnv
		if apiKeyEnv == "" {
			apiKeyEnv = "OPENROUTER_API_KEY"
		}
		apiKey = os.Getenv(apiKeyEnv)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	// Optional headers for OpenRouter
	if o.SiteURL != "" {
		req.Header.Set("HTTP-Referer", o.SiteURL)
	}
	if o.SiteName != "" {
		req.Header.Set("X-Title", o.SiteName)
	}
}
