package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the WiGLE file upload API.
	DefaultEndpoint = "https://api.wigle.net/api/v2/file/upload"

	// DefaultTimeout tolerates slow mobile uplinks.
	DefaultTimeout = 5 * time.Minute

	maxErrorBody = 4 << 10
)

// Uploader sends one encoded session to the mapping service.
type Uploader interface {
	Upload(ctx context.Context, sessionID int64, filename string, data []byte) error
}

// Client is an Uploader for the WiGLE file upload API.
type Client struct {
	endpoint   string
	apiKey     string
	donate     bool
	httpClient *http.Client
}

// NewClient creates a Client. apiKey is the pre-encoded token sent in the
// Basic authorization header.
func NewClient(endpoint, apiKey string, donate bool, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		donate:     donate,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload posts data as a multipart file. Any 2xx status is a success; every
// other outcome is a *TransportError.
func (c *Client) Upload(ctx context.Context, sessionID int64, filename string, data []byte) error {
	body, contentType, err := c.multipartBody(filename, data)
	if err != nil {
		return &TransportError{SessionID: sessionID, Err: fmt.Errorf("building request body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return &TransportError{SessionID: sessionID, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{SessionID: sessionID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransportError{
			SessionID:  sessionID,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(msg))),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) multipartBody(filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err = part.Write(data); err != nil {
		return nil, "", err
	}

	donate := "false"
	if c.donate {
		donate = "on"
	}
	if err = mw.WriteField("donate", donate); err != nil {
		return nil, "", err
	}

	if err = mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
