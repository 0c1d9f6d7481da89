package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avlasov/newsgate/app/pipeline"
)

const maxNotificationBody = 700

const defaultAPIBase = "https://api.telegram.org"

// TelegramNotifier announces published articles to a Telegram chat via
// the bot API.
type TelegramNotifier struct {
	apiBase    string
	botToken   string
	chatID     string
	httpClient *http.Client
}

var _ pipeline.Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		apiBase:    defaultAPIBase,
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the article announcement. With an image URL the message
// goes out as a photo with caption; otherwise as a plain message.
func (n *TelegramNotifier) Notify(ctx context.Context, title, url, body, imageURL string) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	text := formatAnnouncement(title, url, body)

	if imageURL != "" {
		return n.call(ctx, "sendPhoto", map[string]string{
			"chat_id": n.chatID,
			"photo":   imageURL,
			"caption": text,
		})
	}

	return n.call(ctx, "sendMessage", map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
}

func (n *TelegramNotifier) call(ctx context.Context, method string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return nil
}

func formatAnnouncement(title, url, body string) string {
	excerpt := strings.TrimSpace(body)
	if len(excerpt) > maxNotificationBody {
		excerpt = excerpt[:maxNotificationBody] + "…"
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, excerpt, url)
}
