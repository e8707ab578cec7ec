package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"multimodal-rag-platform/models"
)

// APIClient talks to a running multimodal RAG server over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Query sends a question to POST /query.
func (c *APIClient) Query(query string, topK int) (*models.QueryResponse, error) {
	body, err := json.Marshal(models.QueryRequest{Query: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("server error: %s", apiErr.Message)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var queryResp models.QueryResponse
	if err := json.Unmarshal(data, &queryResp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	return &queryResp, nil
}

// Status fetches GET /status.
func (c *APIClient) Status() (*models.SystemStatus, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var status models.SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &status, nil
}
