package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avlasov/newsgate/app/bot"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<item>
  <title>First Story</title>
  <link>https://example.com/articles/first</link>
  <pubDate>Sun, 15 Jun 2025 10:00:00 GMT</pubDate>
</item>
<item>
  <title>No Link Story</title>
  <pubDate>Sun, 15 Jun 2025 11:00:00 GMT</pubDate>
</item>
<item>
  <title>Second Story</title>
  <link>https://example.com/articles/second</link>
  <pubDate>Sun, 15 Jun 2025 12:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func readerProfile(sourceURL string) *bot.Profile {
	return &bot.Profile{
		ID:        "tech",
		Name:      "Tech News",
		SourceURL: sourceURL,
		Settings:  bot.ProfileSettings{Timeout: 5},
	}
}

func TestReader_Fetch_ParsesCandidates(t *testing.T) {
	var receivedUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	reader := NewReader(server.Client(), "NewsGate/1.0")
	candidates, err := reader.Fetch(context.Background(), readerProfile(server.URL))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates (item without link skipped), got %d", len(candidates))
	}
	if candidates[0].RawLink != "https://example.com/articles/first" {
		t.Errorf("Unexpected first link: %s", candidates[0].RawLink)
	}
	if candidates[0].Published != "Sun, 15 Jun 2025 10:00:00 GMT" {
		t.Errorf("Published date must be carried raw, got: %s", candidates[0].Published)
	}
	if candidates[0].BotID != "tech" {
		t.Errorf("Expected bot ID 'tech', got: %s", candidates[0].BotID)
	}
	if receivedUserAgent != "NewsGate/1.0" {
		t.Errorf("Expected User-Agent header, got: %s", receivedUserAgent)
	}
}

func TestReader_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	reader := NewReader(server.Client(), "NewsGate/1.0")
	_, err := reader.Fetch(context.Background(), readerProfile(server.URL))

	if err == nil {
		t.Fatal("Expected error for HTTP 500 response")
	}
}

func TestReader_Fetch_InvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	reader := NewReader(server.Client(), "NewsGate/1.0")
	_, err := reader.Fetch(context.Background(), readerProfile(server.URL))

	if err == nil {
		t.Fatal("Expected error for unparsable feed body")
	}
}

func TestReader_Fetch_EmptyFeed(t *testing.T) {
	emptyFeed := `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyFeed))
	}))
	defer server.Close()

	reader := NewReader(server.Client(), "NewsGate/1.0")
	candidates, err := reader.Fetch(context.Background(), readerProfile(server.URL))

	if err != nil {
		t.Fatalf("Expected no error for an empty feed, got: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected 0 candidates, got %d", len(candidates))
	}
}
