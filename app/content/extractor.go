package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/avlasov/newsgate/app/pipeline"
)

// Extractor fetches a canonical article URL and extracts its title and
// readable body text.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

var _ pipeline.ContentExtractor = (*Extractor)(nil)

func NewExtractor(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Extract downloads the page and runs readability over it. An empty
// extracted body is a failure: the pipeline must never filter or
// deduplicate against nothing.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, string, error) {
	data, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", "", fmt.Errorf("parse page URL %s: %w", pageURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content: %w", err)
	}

	body := strings.TrimSpace(article.TextContent)
	if body == "" {
		return "", "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(body))

	return article.Title, body, nil
}

func (e *Extractor) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
