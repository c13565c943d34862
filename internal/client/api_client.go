package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-live/viewer-client/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/viewer-client/pkg/log"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrStreamProbe   = errors.New("stream probe failed")
)

// Config configures the platform API client.
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// APIClient wraps the video platform's REST API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a new platform API client.
func NewAPIClient(cfg Config) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: pkglog.NewTransport(cfg.Transport, pkglog.L()),
		},
	}
}

// FetchStreamingInfo asks the server where playback of a video should be right now.
// Every call is a fresh round trip.
func (c *APIClient) FetchStreamingInfo(ctx context.Context, videoID string) (*domain.StreamingInfo, error) {
	var info domain.StreamingInfo
	if err := c.getJSON(ctx, c.videoURL(videoID, "streaming-info"), &info); err != nil {
		return nil, fmt.Errorf("failed to fetch streaming info: %w", err)
	}
	return &info, nil
}

// FetchViewerCount returns the current number of viewers of a video.
// A body without viewerCount counts as zero.
func (c *APIClient) FetchViewerCount(ctx context.Context, videoID string) (int, error) {
	var count domain.ViewerCount
	if err := c.getJSON(ctx, c.videoURL(videoID, "viewers"), &count); err != nil {
		return 0, fmt.Errorf("failed to fetch viewer count: %w", err)
	}
	return count.ViewerCount, nil
}

// StreamURL returns the media URL of a video.
func (c *APIClient) StreamURL(videoID string) string {
	return c.videoURL(videoID, "stream")
}

// ProbeStream checks that the media endpoint answers, the way a player loads metadata.
// Servers that reject HEAD are probed with a one-byte ranged GET.
func (c *APIClient) ProbeStream(ctx context.Context, videoID string) error {
	resp, err := c.do(ctx, http.MethodHead, c.StreamURL(videoID), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamProbe, err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = c.do(ctx, http.MethodGet, c.StreamURL(videoID), map[string]string{"Range": "bytes=0-0"})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStreamProbe, err)
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1))
		resp.Body.Close()
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrVideoNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("%w: status %d", ErrStreamProbe, resp.StatusCode)
	}
}

func (c *APIClient) videoURL(videoID, resource string) string {
	return fmt.Sprintf("%s/api/videos/%s/%s", c.baseURL, url.PathEscape(videoID), resource)
}

func (c *APIClient) getJSON(ctx context.Context, u string, v interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrVideoNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("platform returned status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *APIClient) do(ctx context.Context, method, u string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}
