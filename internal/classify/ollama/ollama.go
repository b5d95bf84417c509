package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/propertypassport/internal/classify"
)

type Classifier struct {
	host   string
	model  string
	client *http.Client
}

func New(host, model string) *Classifier {
	return &Classifier{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

func (c *Classifier) Classify(ctx context.Context, r io.Reader, mimeType string) (*classify.Suggestion, error) {
	if !classify.Supports(mimeType) {
		return nil, fmt.Errorf("ollama cannot classify %s", mimeType)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: classify.Prompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	s := classify.ParseResponse(body.Response)
	if s == nil {
		return nil, fmt.Errorf("ollama returned no classification: %q", body.Response)
	}
	return s, nil
}
