package vision

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"impact-agent/models"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

const analysisPrompt = `Analyze this image of a potential community issue and return a single valid JSON object, no markdown wrapping, with exactly these fields:
{
  "description": "<detailed description of the scene>",
  "objects": ["<object>", ...],
  "landmarks": ["<landmark>", ...],
  "categories": ["<category>", ...],
  "tags": ["<tag>", ...],
  "confidence": <0-100>,
  "impact_score": <0-100 community impact score>,
  "impact_category": "<Environmental | Infrastructure | Healthcare | Education | Humanitarian | Economic | Social>",
  "urgency": "<low | medium | high | critical>",
  "estimated_impact": "<1-2 sentences on who is affected and how>",
  "recommended_actions": ["<action 1>", "<action 2>", ...]
}
Empty lists are allowed. Never omit a field.`

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client calls the Anthropic messages API with an image payload.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient creates a new vision client. A zero timeout defaults to 30s.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicEndpoint,
		client:  &http.Client{Timeout: timeout},
	}
}

// SourceName identifies this provider in saved analyses.
func (c *Client) SourceName() string {
	return "Claude"
}

// Analyze sends the normalized JPEG bytes to the vision model and
// returns the structured analysis. Errors propagate to the caller; the
// pipeline converts them to a nil analysis rather than aborting.
func (c *Client) Analyze(imageData []byte) (*models.VisionAnalysis, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: "image/jpeg",
						Data:      base64.StdEncoding.EncodeToString(imageData),
					},
				},
				{Type: "text", Text: analysisPrompt},
			},
		}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	text := ""
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	return ParseAnalysis(text)
}

// Prompt exposes the fixed instruction for callers that construct
// their own requests (the metadata enhancement step reuses the client
// plumbing with a different prompt).
func (c *Client) Prompt(prompt string, maxTokens int) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: prompt}},
		}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
