package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Custom Error Types
var (
	ErrHttpRequest = errors.New("HTTP request creation/execution error")
	ErrHttpStatus  = errors.New("unexpected HTTP status code")
)

const DefaultBaseURL = "https://kemono.su/api/v1"

// Client fetches metadata from the kemono API. It returns raw JSON
// payloads; decoding lives in the models package so that transient
// transport failures and deterministic decode failures stay separate
// concerns for the retry policy.
type Client struct {
	BaseURL    string
	HttpClient *http.Client
}

// NewClient creates a new API client. A nil httpClient gets a default
// with a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		BaseURL:    baseURL,
		HttpClient: httpClient,
	}
}

// GetProfile fetches the raw profile payload for a creator.
func (c *Client) GetProfile(service, creatorID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s/user/%s/profile", c.BaseURL, service, creatorID)
	return c.get(reqURL)
}

// GetPost fetches the raw post payload for one post.
func (c *Client) GetPost(service, creatorID, postID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s/user/%s/post/%s", c.BaseURL, service, creatorID, postID)
	return c.get(reqURL)
}

func (c *Client) get(reqURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		log.WithError(err).Errorf("Error creating request for %s", reqURL)
		return nil, fmt.Errorf("%w: creating request for %s: %v", ErrHttpRequest, reqURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		log.WithError(err).Errorf("Error performing request for %s", reqURL)
		return nil, fmt.Errorf("%w: performing request for %s: %v", ErrHttpRequest, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused by a retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Errorf("Received status %d from %s", resp.StatusCode, reqURL)
		return nil, fmt.Errorf("%w: received status %d from %s", ErrHttpStatus, resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Errorf("Error reading response body from %s", reqURL)
		return nil, fmt.Errorf("%w: reading response body from %s: %v", ErrHttpRequest, reqURL, err)
	}
	return body, nil
}
