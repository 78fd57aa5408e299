package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const defaultOpenAIBase = "https://api.openai.com/v1"

// OpenAIClient implements Client using the OpenAI Chat Completions API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a client for the OpenAI API.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBase,
		client:  http.DefaultClient,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]any{
		"model":      req.Model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.UserPrompt()},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: ProviderOpenAI,
			Status:   resp.StatusCode,
			Message:  string(respBody),
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "parsing response: " + err.Error()}
	}

	if len(result.Choices) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "no choices in response"}
	}
	return result.Choices[0].Message.Content, nil
}
