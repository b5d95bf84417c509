package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/propertypassport/internal/classify"
)

// maxTokens leaves room for a single "type | title" line plus preamble.
const maxTokens = 256

type Classifier struct {
	client *anthropic.Client
	model  string
}

// New builds a Claude classifier. A non-empty baseURL overrides the API
// endpoint, which tests point at an httptest server.
func New(apiKey, model, baseURL string) *Classifier {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Classifier{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *Classifier) Classify(ctx context.Context, r io.Reader, mimeType string) (*classify.Suggestion, error) {
	if !classify.Supports(mimeType) {
		return nil, fmt.Errorf("claude cannot classify %s", mimeType)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.MessageContentSource{
					Type:      anthropic.MessagesContentSourceTypeBase64,
					MediaType: mimeType,
					Data:      base64.StdEncoding.EncodeToString(data),
				}),
				anthropic.NewTextMessageContent(classify.Prompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	text := resp.GetFirstContentText()
	s := classify.ParseResponse(text)
	if s == nil {
		return nil, fmt.Errorf("claude returned no classification: %q", text)
	}
	return s, nil
}
