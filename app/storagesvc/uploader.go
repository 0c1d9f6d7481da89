package storagesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/avlasov/newsgate/app/pipeline"
)

// Uploader copies generated images from their provider-hosted URL into
// object storage, returning a stable public URL. Provider URLs expire;
// published articles need one that does not.
type Uploader struct {
	endpoint   string
	accessKey  string
	bucket     string
	httpClient *http.Client
}

var _ pipeline.Uploader = (*Uploader)(nil)

func NewUploader(endpoint, accessKey, bucket string) *Uploader {
	return &Uploader{
		endpoint:   endpoint,
		accessKey:  accessKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload downloads the image reference and PUTs it into the bucket
// under a fresh object name.
func (u *Uploader) Upload(ctx context.Context, imageRef string) (string, error) {
	if u.endpoint == "" {
		// Storage not configured: keep the provider URL. Usable for
		// local runs, expires in production.
		return imageRef, nil
	}

	data, contentType, err := u.download(ctx, imageRef)
	if err != nil {
		return "", fmt.Errorf("download image %s: %w", imageRef, err)
	}

	objectName := uuid.NewString() + ".png"
	publicURL, err := u.put(ctx, objectName, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", objectName, err)
	}

	return publicURL, nil
}

func (u *Uploader) download(ctx context.Context, imageRef string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageRef, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	return data, contentType, nil
}

func (u *Uploader) put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	uploadURL, err := url.JoinPath(u.endpoint, u.bucket, objectName)
	if err != nil {
		return "", fmt.Errorf("build upload URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if u.accessKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.accessKey)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("HTTP error: %d %s: %s", resp.StatusCode, resp.Status, string(detail))
	}

	// Some storage services answer with the public URL; fall back to
	// the deterministic object URL when they do not.
	var uploadResp struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err == nil && uploadResp.URL != "" {
		return uploadResp.URL, nil
	}

	return uploadURL, nil
}
