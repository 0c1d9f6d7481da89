package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/pipeline"
)

// The similarity prompt compares whole articles; anything past this
// length adds cost without changing the embedding meaningfully.
const maxEmbeddingInput = 8000

// Client talks to an OpenAI-compatible API for article rewriting,
// embedding similarity and cover image generation.
type Client struct {
	endpoint       string
	apiKey         string
	chatModel      string
	embeddingModel string
	imageModel     string
	httpClient     *http.Client
}

var _ pipeline.Analyzer = (*Client)(nil)
var _ pipeline.SimilarityScorer = (*Client)(nil)
var _ pipeline.ImageGenerator = (*Client)(nil)

func NewClient(endpoint, apiKey, chatModel, embeddingModel, imageModel string) *Client {
	return &Client{
		endpoint:       strings.TrimSuffix(endpoint, "/"),
		apiKey:         apiKey,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		imageModel:     imageModel,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Rewrite asks the chat model to rewrite an extracted article in the
// bot's voice. The model is instructed to answer with a JSON object so
// the title/body split survives the round trip.
func (c *Client) Rewrite(ctx context.Context, title, body string, profile *bot.Profile) (string, string, error) {
	systemPrompt := buildRewritePrompt(profile)

	payload := map[string]any{
		"model": c.chatModel,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": fmt.Sprintf("Title: %s\n\n%s", title, body)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := c.post(ctx, "/chat/completions", payload, &resp); err != nil {
		return "", "", fmt.Errorf("rewrite request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("rewrite returned no choices")
	}

	var rewritten struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &rewritten); err != nil {
		return "", "", fmt.Errorf("decode rewrite result: %w", err)
	}

	if rewritten.Title == "" || rewritten.Body == "" {
		return "", "", fmt.Errorf("rewrite returned empty title or body")
	}

	return rewritten.Title, rewritten.Body, nil
}

// Similarity embeds both texts and returns their cosine similarity.
func (c *Client) Similarity(ctx context.Context, textA, textB string) (float64, error) {
	embeddings, err := c.embed(ctx, []string{truncate(textA), truncate(textB)})
	if err != nil {
		return 0, fmt.Errorf("embed texts: %w", err)
	}

	if len(embeddings) != 2 {
		return 0, fmt.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}

	return cosineSimilarity(embeddings[0], embeddings[1])
}

// Generate asks the image model for a cover illustration and returns
// the provider-hosted image URL as the image reference.
func (c *Client) Generate(ctx context.Context, body string, profile *bot.Profile) (string, error) {
	prompt := buildImagePrompt(body, profile)

	payload := map[string]any{
		"model":  c.imageModel,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	}

	var resp struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/images/generations", payload, &resp); err != nil {
		return "", fmt.Errorf("image generation request: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image generation returned no image")
	}

	return resp.Data[0].URL, nil
}

func (c *Client) embed(ctx context.Context, inputs []string) ([][]float64, error) {
	payload := map[string]any{
		"model": c.embeddingModel,
		"input": inputs,
	}

	var resp struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/embeddings", payload, &resp); err != nil {
		return nil, err
	}

	embeddings := make([][]float64, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}

	return embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if v == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func cosineSimilarity(a, b []float64) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-length embedding vector")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

func truncate(text string) string {
	if len(text) <= maxEmbeddingInput {
		return text
	}
	return text[:maxEmbeddingInput]
}

func buildRewritePrompt(profile *bot.Profile) string {
	var sb strings.Builder
	sb.WriteString("You rewrite news articles for the topic channel \"")
	sb.WriteString(profile.Name)
	sb.WriteString("\". Respond with a JSON object {\"title\": ..., \"body\": ...}.")

	if profile.Style.Tone != "" {
		sb.WriteString(" Tone: ")
		sb.WriteString(profile.Style.Tone)
		sb.WriteString(".")
	}
	if profile.Style.Language != "" {
		sb.WriteString(" Write in ")
		sb.WriteString(profile.Style.Language)
		sb.WriteString(".")
	}

	return sb.String()
}

func buildImagePrompt(body string, profile *bot.Profile) string {
	excerpt := truncate(body)
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}

	if profile.Style.ImagePrompt != "" {
		return fmt.Sprintf("%s\n\nArticle: %s", profile.Style.ImagePrompt, excerpt)
	}
	return fmt.Sprintf("An editorial illustration for a news article: %s", excerpt)
}
