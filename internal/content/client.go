// Package content talks to the external narrative generator: an
// OpenAI-compatible chat-completions endpoint that invents gadget recipes,
// market events, and world events. Every call is time-bounded and reports
// ok=false instead of an error on any failure or malformed response; the
// game engine owns the fallback content.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/example/recipe-for-chaos/internal/game"
)

const (
	defaultBaseURL = "https://router.huggingface.co/v1/chat/completions"
	defaultModel   = "meta-llama/Meta-Llama-3-8B-Instruct"
)

// Client is an LLM-backed game.Generator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// NewClient builds a generator client. The API key comes from the caller
// (typically LLM_API_KEY); it is sent only as an Authorization header and
// never appears in logs or outbound game events.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      defaultModel,
	}
	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		c.baseURL = url
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.model = model
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat posts one user prompt and returns the raw completion text.
func (c *Client) chat(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("chat request status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload chatResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	content := strings.TrimSpace(payload.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat response missing content")
	}
	return content, nil
}

// InitialRecipes asks for playerCount gadget recipes, each pairing two
// components. Absent or undersized responses report ok=false.
func (c *Client) InitialRecipes(ctx context.Context, playerCount int, components []string) (map[string][]string, bool) {
	raw, err := c.chat(ctx, recipesPrompt(playerCount, components), 700)
	if err != nil {
		log.Printf("content: recipe generation failed: %v", err)
		return nil, false
	}
	var recipes map[string][]string
	if err := decodeJSON(raw, &recipes); err != nil {
		log.Printf("content: recipe response unusable: %v", err)
		return nil, false
	}
	if len(recipes) < playerCount {
		return nil, false
	}
	return recipes, true
}

// PriceChangeEvent asks for one market event. Structural validation stays
// with the engine; only decode failures report absent here.
func (c *Client) PriceChangeEvent(ctx context.Context, basePrices map[string]int, active []game.PriceModifier) (game.PriceEvent, bool) {
	raw, err := c.chat(ctx, priceEventPrompt(basePrices, active), 350)
	if err != nil {
		log.Printf("content: price event generation failed: %v", err)
		return game.PriceEvent{}, false
	}
	var event game.PriceEvent
	if err := decodeJSON(raw, &event); err != nil {
		log.Printf("content: price event response unusable: %v", err)
		return game.PriceEvent{}, false
	}
	return event, true
}

// ExpirationReason asks for a one-sentence reason a market condition ended.
func (c *Client) ExpirationReason(ctx context.Context, modifierTitle string) (string, bool) {
	raw, err := c.chat(ctx, expirationPrompt(modifierTitle), 200)
	if err != nil {
		log.Printf("content: expiration reason generation failed: %v", err)
		return "", false
	}
	var out struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(raw, &out); err != nil || strings.TrimSpace(out.Description) == "" {
		return "", false
	}
	return strings.TrimSpace(out.Description), true
}

// WorldEvent asks for a major world event given the turn and the most
// hoarded resource.
func (c *Client) WorldEvent(ctx context.Context, wctx game.WorldEventContext) (game.WorldEvent, bool) {
	raw, err := c.chat(ctx, worldEventPrompt(wctx), 500)
	if err != nil {
		log.Printf("content: world event generation failed: %v", err)
		return game.WorldEvent{}, false
	}
	var event game.WorldEvent
	if err := decodeJSON(raw, &event); err != nil {
		log.Printf("content: world event response unusable: %v", err)
		return game.WorldEvent{}, false
	}
	if event.Title == "" || event.Effect.Type == "" {
		return game.WorldEvent{}, false
	}
	return event, true
}

var _ game.Generator = (*Client)(nil)
