package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiConfig selects the backend. Vertex requires Project and Location; the Gemini API
// requires APIKey.
type GeminiConfig struct {
	Vertex   bool
	APIKey   string
	Project  string
	Location string
	Model    string
}

// GeminiClient implements Client on top of google.golang.org/genai.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a client for the Gemini API or Vertex AI.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{}
	if cfg.Vertex {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex backend needs GCP project and location")
		}
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini backend needs an API key")
		}
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClient{client: client, modelName: model}, nil
}

// Converse sends the system instruction and the conversation and returns the text reply.
func (g *GeminiClient) Converse(ctx context.Context, req Request) (Reply, error) {
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(req.MaxTokens),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, toContents(req.Messages), cfg)
	if err != nil {
		return Reply{}, fmt.Errorf("generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return Reply{}, ErrEmptyReply
	}

	reply := Reply{Text: text, Model: g.modelName}
	if res.UsageMetadata != nil {
		reply.Usage = Usage{
			PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
		}
	}
	return reply, nil
}

func toContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return contents
}
