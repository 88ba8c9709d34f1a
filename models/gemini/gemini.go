package gemini

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	models "github.com/Desarso/ideassist/models"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

type Gemini_Model struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	// APIKey falls back to GEMINI_API_KEY, then GOOGLE_API_KEY.
	APIKey string `json:"-"`

	mu     sync.Mutex
	client *genai.Client
}

func (g *Gemini_Model) Model_Request(ctx context.Context, request models.Model_Request) (models.Model_Response, error) {
	if len(request.Messages) == 0 {
		return models.Model_Response{}, fmt.Errorf("request must contain at least one message")
	}

	client, err := g.getClient(ctx)
	if err != nil {
		return models.Model_Response{}, err
	}

	modelToUse := request.Model
	if modelToUse == "" {
		modelToUse = g.Model
	}
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	contents, config := g.create_gemini_request(request)
	result, err := client.Models.GenerateContent(ctx, modelToUse, contents, config)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	return gemini_response_to_model_response(result)
}

func (g *Gemini_Model) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}

	apiKey := g.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

// create_gemini_request maps chat turns onto Gemini contents. Gemini names the
// assistant role "model" and carries the system prompt out of band.
func (g *Gemini_Model) create_gemini_request(request models.Model_Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(request.Messages))
	systemPrompt := request.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = g.SystemPrompt
	}

	for _, m := range request.Messages {
		switch m.Role {
		case models.RoleSystem:
			if systemPrompt == "" {
				systemPrompt = m.Content
			}
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if request.Temperature != nil {
		config.Temperature = ptr(float32(*request.Temperature))
	}
	if request.MaxTokens != nil {
		config.MaxOutputTokens = int32(*request.MaxTokens)
	}
	return contents, config
}

func gemini_response_to_model_response(response *genai.GenerateContentResponse) (models.Model_Response, error) {
	modelResponse := models.Model_Response{}
	if response == nil {
		return modelResponse, models.ErrEmptyResponse
	}
	for _, candidate := range response.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			modelResponse.Parts = append(modelResponse.Parts, models.Model_Part{Type: "text", Text: part.Text})
		}
	}
	if len(modelResponse.Parts) == 0 {
		return modelResponse, models.ErrEmptyResponse
	}
	return modelResponse, nil
}

func ptr[T any](v T) *T { return &v }
