package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// IntentClient is the optional upstream conversational model. An empty
// reply or an error sends the turn to the local rule engine instead.
type IntentClient interface {
	DetectIntent(ctx context.Context, sessionID, message string) (string, error)
	Close() error
}

const assistantInstruction = "Eres el Asistente de SISARM Search, un buscador de partidas arancelarias de Bolivia. " +
	"Responde en español, en máximo tres frases, solo sobre: búsqueda de partidas, capítulos arancelarios, " +
	"documentos requeridos, manuales, licencias de acceso y soporte. " +
	"Si la pregunta no trata de esos temas, responde exactamente con una cadena vacía."

// GeminiIntentClient implements IntentClient using Google's Gemini API.
type GeminiIntentClient struct {
	client  *genai.Client
	modelID string
}

func NewGeminiIntentClient(ctx context.Context, apiKey, modelID string) (*GeminiIntentClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chat: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("chat: failed to create gemini client: %w", err)
	}
	return &GeminiIntentClient{client: client, modelID: modelID}, nil
}

// DetectIntent asks the model for a short topical reply. The instruction
// forces an empty string for off-topic input, which the controller treats
// as "fall back to rules".
func (c *GeminiIntentClient) DetectIntent(ctx context.Context, sessionID, message string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(256)
	model.SystemInstruction = genai.NewUserContent(genai.Text(assistantInstruction))

	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("chat: gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", nil
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

func (c *GeminiIntentClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
