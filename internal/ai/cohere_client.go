package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"multimodal-rag-platform/utils"
)

// Input types for the asymmetric embedding model. Document and query vectors
// only live in a comparable metric space when the matching type is used.
const (
	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

const defaultEmbedTimeout = 60 * time.Second

// CohereClient wraps the Cohere v2 embed API. All calls go through a rate
// limiter sized from the configured requests-per-minute budget.
type CohereClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	rateLimiter *rate.Limiter
}

// NewCohereClient creates an embedding client for the Cohere v2 API.
func NewCohereClient(apiKey, baseURL, model string, rpm int) (*CohereClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("cohere: API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.cohere.com/v2"
	}
	if model == "" {
		model = "embed-v4.0"
	}
	if rpm <= 0 {
		rpm = 100
	}

	// RPM limit with some buffer
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), rpm/10+1)

	return &CohereClient{
		httpClient:  &http.Client{Timeout: defaultEmbedTimeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		rateLimiter: limiter,
	}, nil
}

// embedRequest is the Cohere v2 embed request format. Texts and Inputs are
// mutually exclusive: plain text uses Texts, multimodal content uses Inputs.
type embedRequest struct {
	Model          string       `json:"model"`
	InputType      string       `json:"input_type"`
	EmbeddingTypes []string     `json:"embedding_types"`
	Texts          []string     `json:"texts,omitempty"`
	Inputs         []embedInput `json:"inputs,omitempty"`
}

type embedInput struct {
	Content []embedContent `json:"content"`
}

type embedContent struct {
	Type     string         `json:"type"`
	ImageURL *embedImageURL `json:"image_url,omitempty"`
}

type embedImageURL struct {
	URL string `json:"url"`
}

// embedResponse is the Cohere v2 embed response format.
type embedResponse struct {
	ID         string `json:"id"`
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
	Message string `json:"message,omitempty"`
}

// EmbedText embeds document text for indexing.
func (c *CohereClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, embedRequest{
		Model:          c.model,
		InputType:      inputTypeDocument,
		EmbeddingTypes: []string{"float"},
		Texts:          []string{text},
	})
}

// EmbedImage embeds a page image for indexing. The image is scaled to the
// API pixel budget and submitted as a base64 data URL.
func (c *CohereClient) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	dataURL, err := utils.DataURLFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("cohere: failed to encode image: %w", err)
	}

	return c.embed(ctx, embedRequest{
		Model:          c.model,
		InputType:      inputTypeDocument,
		EmbeddingTypes: []string{"float"},
		Inputs: []embedInput{
			{Content: []embedContent{
				{Type: "image_url", ImageURL: &embedImageURL{URL: dataURL}},
			}},
		},
	})
}

// EmbedQuery embeds a search query. The query input type must be used so the
// vector is comparable with document embeddings.
func (c *CohereClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.embed(ctx, embedRequest{
		Model:          c.model,
		InputType:      inputTypeQuery,
		EmbeddingTypes: []string{"float"},
		Texts:          []string{query},
	})
}

func (c *CohereClient) embed(ctx context.Context, reqBody embedRequest) ([]float32, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("cohere: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("cohere: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cohere: read response: %w", err)
	}

	var embedResp embedResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("cohere: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if embedResp.Message != "" {
			return nil, fmt.Errorf("cohere: API error (status %d): %s", resp.StatusCode, embedResp.Message)
		}
		return nil, fmt.Errorf("cohere: API error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(embedResp.Embeddings.Float) == 0 {
		return nil, fmt.Errorf("cohere: no embedding returned")
	}

	return embedResp.Embeddings.Float[0], nil
}
