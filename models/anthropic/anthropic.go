package anthropic

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
	DefaultBaseURL    = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion = "2023-06-01"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 4096
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Anthropic_Model implements the Model interface for the Anthropic Messages API.
type Anthropic_Model struct {
	Model        string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
	BaseURL      string // Optional: custom API endpoint
	APIKey       string
	APIKeyEnv    string // Optional: env var name for API key (defaults to ANTHROPIC_API_KEY)
	HTTPClient   *http.Client
}

// Model_Request implements the Model interface for non-streaming requests.
func (a *Anthropic_Model) Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error) {
	if len(request.Messages) == 0 {
		return models.Model_Response{}, fmt.Errorf("request must contain at least one message")
	}

	jsonBytes, err := json.Marshal(a.buildRequest(request))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := a.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	a.setHeaders(req)

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return models.Model_Response{}, fmt.Errorf("Anthropic API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return models.Model_Response{}, fmt.Errorf("Anthropic API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var anthropicResp messagesResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return toModelResponse(anthropicResp)
}

// buildRequest converts chat turns to the Messages API shape. The API wants
// alternating roles starting with user, so adjacent turns of one role are merged.
func (a *Anthropic_Model) buildRequest(request models.Model_Request) messagesRequest {
	modelToUse := request.Model
	if modelToUse == "" {
		modelToUse = a.Model
	}
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	system := request.SystemPrompt
	if system == "" {
		system = a.SystemPrompt
	}

	var msgs []turn
	for _, m := range request.Messages {
		role := "user"
		switch m.Role {
		case models.RoleSystem:
			if system == "" {
				system = m.Content
			}
			continue
		case models.RoleAssistant:
			role = "assistant"
		}
		if len(msgs) == 0 && role == "assistant" {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + m.Content
			continue
		}
		msgs = append(msgs, turn{Role: role, Content: m.Content})
	}

	maxTokens := DefaultMaxTokens
	if a.MaxTokens != nil {
		maxTokens = *a.MaxTokens
	}
	if request.MaxTokens != nil {
		maxTokens = *request.MaxTokens
	}
	temperature := a.Temperature
	if request.Temperature != nil {
		temperature = request.Temperature
	}

	return messagesRequest{
		Model:       modelToUse,
		MaxTokens:   maxTokens,
		Messages:    msgs,
		System:      system,
		Temperature: temperature,
	}
}

func (a *Anthropic_Model) setHeaders(req *http.Request) {
	apiKey := a.APIKey
	if apiKey == "" {
		envName := a.APIKeyEnv
		if envName == "" {
			envName = "ANTHROPIC_API_KEY"
		}
		apiKey = os.Getenv(envName)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", DefaultAPIVersion)
	req.Header.Set("content-type", "application/json")
}

func toModelResponse(resp messagesResponse) (models.Model_Response, error) {
	var out models.Model_Response
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			out.Parts = append(out.Parts, models.Model_Part{Type: "text", Text: block.Text})
		}
	}
	if len(out.Parts) == 0 {
		return out, models.ErrEmptyResponse
	}
	return out, nil
}
