package content

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avlasov/newsgate/app/pipeline"
)

// Resolver follows redirect chains to the final article location.
type Resolver struct {
	httpClient *http.Client
	userAgent  string
}

var _ pipeline.LinkResolver = (*Resolver)(nil)

func NewResolver(timeout time.Duration, userAgent string) *Resolver {
	return &Resolver{
		// The default client follows up to 10 redirects, which is what
		// resolution means here; only the timeout is ours.
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Resolve returns the final URL after all redirects. The body is
// discarded; only the landing location matters.
func (r *Resolver) Resolve(ctx context.Context, rawLink string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawLink, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to resolve link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if resp.Request == nil || resp.Request.URL == nil {
		return "", fmt.Errorf("no final URL after redirects")
	}

	return resp.Request.URL.String(), nil
}
