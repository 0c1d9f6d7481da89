package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/avlasov/newsgate/app/bot"
	"github.com/avlasov/newsgate/app/pipeline"
)

// Reader fetches a bot's RSS/Atom source and turns its entries into
// pipeline candidates.
type Reader struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

var _ pipeline.SourceReader = (*Reader)(nil)

func NewReader(httpClient *http.Client, userAgent string) *Reader {
	return &Reader{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

// Fetch downloads and parses the bot's source feed. The published date
// is carried as the raw string from the feed; the recency gate owns
// parsing it.
func (r *Reader) Fetch(ctx context.Context, profile *bot.Profile) ([]pipeline.Candidate, error) {
	data, err := r.fetchFeed(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("fetch source for bot %s: %w", profile.ID, err)
	}

	feed, err := r.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse source for bot %s: %w", profile.ID, err)
	}

	candidates := make([]pipeline.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, pipeline.Candidate{
			RawLink:   item.Link,
			Published: item.Published,
			BotID:     profile.ID,
		})
	}

	slog.Debug("Source fetched", "bot", profile.ID, "items", len(feed.Items), "candidates", len(candidates))

	return candidates, nil
}

func (r *Reader) fetchFeed(ctx context.Context, profile *bot.Profile) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, profile.Settings.TimeoutDuration())
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", profile.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
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
