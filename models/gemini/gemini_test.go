package gemini

import (
	"errors"
	"testing"

	models "github.com/Desarso/ideassist/models"
	"google.golang.org/genai"
)

func TestCreateGeminiRequestRoles(t *testing.T) {
	g := &Gemini_Model{SystemPrompt: "default system"}
	req := models.Model_Request{
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "first"},
			{Role: models.RoleAssistant, Content: "reply"},
			{Role: models.RoleUser, Content: "second"},
		},
		Temperature: models.Float64(0.5),
		MaxTokens:   models.Int(150),
	}

	contents, config := g.create_gemini_request(req)
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("expected assistant turn mapped to model, got %q", contents[1].Role)
	}
	if contents[2].Parts[0].Text != "second" {
		t.Errorf("unexpected text %q", contents[2].Parts[0].Text)
	}
	if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "default system" {
		t.Errorf("expected default system instruction, got %+v", config.SystemInstruction)
	}
	if config.Temperature == nil || *config.Temperature != 0.5 {
		t.Errorf("unexpected temperature %v", config.Temperature)
	}
	if config.MaxOutputTokens != 150 {
		t.Errorf("unexpected max tokens %d", config.MaxOutputTokens)
	}
}

func TestCreateGeminiRequestRequestSystemPromptWins(t *testing.T) {
	g := &Gemini_Model{SystemPrompt: "default"}
	req := models.UserText("hi")
	req.SystemPrompt = "override"

	_, config := g.create_gemini_request(req)
	if config.SystemInstruction.Parts[0].Text != "override" {
		t.Errorf("expected override, got %q", config.SystemInstruction.Parts[0].Text)
	}
}

func TestResponseConversionChunks(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "Hello"},
				{Text: "world"},
			}},
		}},
	}

	got, err := gemini_response_to_model_response(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text() != "Hello\nworld" {
		t.Errorf("unexpected text %q", got.Text())
	}
}

func TestResponseConversionEmpty(t *testing.T) {
	_, err := gemini_response_to_model_response(&genai.GenerateContentResponse{})
	if !errors.Is(err, models.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := gemini_response_to_model_response(nil); !errors.Is(err, models.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse for nil, got %v", err)
	}
}
