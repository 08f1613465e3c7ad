package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// extractPrompt instructs the model to answer with the one JSON shape
// RawGuess.Parse accepts.
const extractPrompt = `Extract the expense from the user message. Respond with a single JSON object:
{"amount": <number>, "currency": "<ISO code if stated>", "category": "<category>", "description": "<short description>", "merchant": "<merchant if stated>", "confidence": <0-100>}
If the message is not an expense, respond with {}.`

// HTTPClient talks to an OpenAI-compatible chat completion endpoint. The
// response body is decoded into a RawGuess without interpretation; all
// validation happens in RawGuess.Parse.
type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey, model string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	// Constrain the completion to a JSON object.
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Extract(ctx context.Context, text string) (RawGuess, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractPrompt},
			{Role: "user", Content: text},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction endpoint returned %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, &ParseError{Field: "choices", Reason: "is empty"}
	}

	var guess RawGuess
	decoder := json.NewDecoder(bytes.NewReader([]byte(chat.Choices[0].Message.Content)))
	decoder.UseNumber()
	if err := decoder.Decode(&guess); err != nil {
		return nil, &ParseError{Field: "content", Reason: "is not a JSON object"}
	}
	return guess, nil
}
