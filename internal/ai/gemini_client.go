package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"multimodal-rag-platform/internal/logger"
)

// GeminiClient wraps the Gemini generation API behind a circuit breaker.
// Answer synthesis is fail-soft: every failure degrades to a human-readable
// answer string so a query always returns something.
type GeminiClient struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

func NewGeminiClient(apiKey string, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for generation")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &GeminiClient{
		client:  client,
		model:   model,
		breaker: breaker,
	}, nil
}

// AnswerFromText synthesizes an answer to the question using only the
// supplied text excerpt.
func (g *GeminiClient) AnswerFromText(ctx context.Context, question, content string) string {
	prompt := fmt.Sprintf(`Answer the question based on the following information.
Don't use markdown.
Please provide enough context for your answer.

Information: %s

Question: %s`, content, question)

	return g.generate(ctx, genai.Text(prompt))
}

// AnswerFromImage synthesizes an answer to the question using only the
// supplied PNG page image.
func (g *GeminiClient) AnswerFromImage(ctx context.Context, question string, pngData []byte) string {
	prompt := fmt.Sprintf(`Answer the question based on the following image.
Don't use markdown.
Please provide enough context for your answer.

Question: %s`, question)

	return g.generate(ctx, genai.Text(prompt), genai.ImageData("png", pngData))
}

func (g *GeminiClient) generate(ctx context.Context, parts ...genai.Part) string {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.model)
		return model.GenerateContent(ctx, parts...)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			logger.Warn("Gemini circuit breaker open, answering with fallback")
			return "The answer service is experiencing high demand right now. Please try again in a moment."
		}
		logger.Error("Gemini generation failed", "error", err)
		return fmt.Sprintf("Gemini error: %v", err)
	}

	answer := extractResponseText(result.(*genai.GenerateContentResponse))
	if answer == "" {
		return "Gemini returned no answer."
	}
	return answer
}

func extractResponseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
