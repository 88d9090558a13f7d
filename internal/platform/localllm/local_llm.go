package localllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"pantrypal/internal/grocery"
)

const systemPrompt = `You are a smart grocery assistant.
Rules:
- If the input is about grocery or food ingredients:
    - Respond ONLY in valid JSON array.
    - Each item must have: name, quantity, unit, category.
    - Guess the category automatically (e.g., rice -> Grains, milk -> Dairy).
- If the input is NOT related to food ingredients, respond with ONLY "no".`

// Client represents a client for a local OpenAI-compatible LLM server.
type Client struct {
	httpClient *http.Client
	apiURL     string
}

// NewClient creates a new client for the local LLM. An empty apiURL falls
// back to the default LM Studio endpoint.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = "http://localhost:1234/v1/chat/completions"
	}
	return &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
	}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends a chat completion request to the local LLM and
// returns the response text. imageData is an optional base64-encoded image.
func (c *Client) GenerateContent(ctx context.Context, text string, imageData string) (string, error) {
	content := []Content{
		{
			Type: "text",
			Text: text,
		},
	}
	if imageData != "" {
		content = append(content, Content{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/jpeg;base64," + imageData,
			},
		})
	}

	reqBody := Request{
		Model: "gemma-3-12b-it:2",
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		Temperature: 0,
		MaxTokens:   1024,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) > 0 {
		return llmResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("no content found in response")
}

// ExtractItems parses free text into grocery items.
func (c *Client) ExtractItems(ctx context.Context, text string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error) {
	raw, err := c.GenerateContent(ctx, systemPrompt+"\nNow parse: "+text, "")
	if err != nil {
		return nil, grocery.ExtractionMalformed, fmt.Errorf("failed to generate content: %w", err)
	}

	items, outcome := grocery.DecodeExtraction(raw)
	return items, outcome, nil
}

// ExtractItemsFromImage parses a photo of a grocery list into grocery items.
func (c *Client) ExtractItemsFromImage(ctx context.Context, imageData []byte, format string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error) {
	prompt := systemPrompt + "\nThis is a photo of a grocery list. Extract all items."
	encodedImage := base64.StdEncoding.EncodeToString(imageData)
	raw, err := c.GenerateContent(ctx, prompt, encodedImage)
	if err != nil {
		return nil, grocery.ExtractionMalformed, fmt.Errorf("failed to generate content: %w", err)
	}

	items, outcome := grocery.DecodeExtraction(raw)
	return items, outcome, nil
}
