package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const systemPrompt = `Tu es un expert en tarification dentaire française. Analyse cette image de devis.
Extrais chaque acte médical identifié.
Pour chaque acte, retourne un objet JSON avec :
- code (ex: HBLD038, si visible, sinon null)
- description (le libellé patient simplifié)
- price (le montant total de l'acte, en nombre)
- type (Soin, Prothèse, Implant, etc.)

Retourne UNIQUEMENT un JSON valide sous la forme : { "acts": [...] }. Pas de markdown.`

const userPrompt = "Analyse ce devis dentaire."

// contentGenerator is the slice of *genai.Models the analyzer calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIAnalyzer sends the quote image to a Gemini model.
type GenAIAnalyzer struct {
	models    contentGenerator
	model     string
	maxTokens int32
}

type GenAIConfig struct {
	APIKey    string
	Model     string
	MaxTokens int32
}

// NewGenAIAnalyzer creates a Gemini API client.
func NewGenAIAnalyzer(ctx context.Context, cfg GenAIConfig) (*GenAIAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("vision: genai api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("vision: genai model is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: failed to create genai client: %w", err)
	}
	return newGenAIAnalyzer(client.Models, cfg), nil
}

func newGenAIAnalyzer(models contentGenerator, cfg GenAIConfig) *GenAIAnalyzer {
	return &GenAIAnalyzer{
		models:    models,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (g *GenAIAnalyzer) Provider() string { return "genai" }

func (g *GenAIAnalyzer) Analyze(ctx context.Context, img Image) ([]AnalyzedAct, error) {
	if len(img.Data) == 0 {
		return nil, ErrImageRequired
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(userPrompt),
			genai.NewPartFromBytes(img.Data, img.MIMEType),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("vision: generate content failed: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyReply
	}
	return ParseReply(resp.Text())
}
