package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"pantrypal/internal/grocery"
)

const extractionPrompt = `You are a smart grocery assistant.
Rules:
- If the input is about grocery or food ingredients:
    - Respond ONLY in valid JSON array.
    - Each item must have: name, quantity, unit, category.
    - Guess the category automatically (e.g., rice -> Grains, milk -> Dairy).
- If the input is NOT related to food ingredients, respond with ONLY "no".
Example:
Input: "Add 2 packets of Maggi, 1 kg rice, 5 eggs"
Output:
[
  { "name": "Maggi", "quantity": 2, "unit": "packets", "category": "Instant Food" },
  { "name": "rice", "quantity": 1, "unit": "kg", "category": "Grains" },
  { "name": "eggs", "quantity": 5, "unit": "pieces", "category": "Protein" }
]`

const recipePrompt = `You are a strict cooking assistant.
Rules:
- If the query is about cooking, recipes, or food preparation, respond ONLY in valid JSON with this structure:
{
  "ingredients": [
    { "name": "ingredient1", "product": "Top product name for this ingredient", "image": "URL of product image", "rating": "Rating of the product" }
  ],
  "recipe": "Step by step instructions"
}
- If the query is NOT related to cooking/recipes/food, respond with ONLY the string: "no".
- Do not add extra text or explanation. Only return valid JSON.`

// Client is a client for the Gemini API.
type Client struct {
	model *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Client{model: client.GenerativeModel("gemini-1.5-flash")}, nil
}

func (c *Client) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return string(text), nil
}

// ExtractItems parses free text into grocery items.
func (c *Client) ExtractItems(ctx context.Context, text string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error) {
	raw, err := c.generate(ctx,
		genai.Text(extractionPrompt),
		genai.Text("Now parse: "+text),
	)
	if err != nil {
		return nil, grocery.ExtractionMalformed, err
	}

	items, outcome := grocery.DecodeExtraction(raw)
	return items, outcome, nil
}

// ExtractItemsFromImage parses a photo of a grocery list into grocery items.
func (c *Client) ExtractItemsFromImage(ctx context.Context, imageData []byte, format string) ([]grocery.ParsedItem, grocery.ExtractionOutcome, error) {
	raw, err := c.generate(ctx,
		genai.ImageData(format, imageData),
		genai.Text(extractionPrompt),
		genai.Text("This is a photo of a grocery list. Extract all items."),
	)
	if err != nil {
		return nil, grocery.ExtractionMalformed, err
	}

	items, outcome := grocery.DecodeExtraction(raw)
	return items, outcome, nil
}

// Transcribe converts recorded speech into text.
func (c *Client) Transcribe(ctx context.Context, audioData []byte, mimeType string) (string, error) {
	raw, err := c.generate(ctx,
		genai.Blob{MIMEType: mimeType, Data: audioData},
		genai.Text("Transcribe this audio verbatim. Return only the transcript text, nothing else."),
	)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// GenerateRecipe generates a recipe with shoppable ingredient links for a
// cooking query. Returns (nil, nil) when the query is not about food.
func (c *Client) GenerateRecipe(ctx context.Context, query string) (*grocery.Recipe, error) {
	raw, err := c.generate(ctx,
		genai.Text(recipePrompt),
		genai.Text("Query: "+query),
	)
	if err != nil {
		return nil, err
	}

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if strings.EqualFold(cleaned, "no") || strings.EqualFold(cleaned, `"no"`) {
		return nil, nil
	}

	// Extract the JSON from the response, which might be wrapped in markdown
	startIndex := strings.Index(cleaned, "{")
	endIndex := strings.LastIndex(cleaned, "}")
	if startIndex == -1 || endIndex == -1 || startIndex > endIndex {
		return nil, fmt.Errorf("could not find JSON object in response: %s", raw)
	}

	var r grocery.Recipe
	if err := json.Unmarshal([]byte(cleaned[startIndex:endIndex+1]), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}

	return &r, nil
}
