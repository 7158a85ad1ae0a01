package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamPath is the interpretation endpoint relative to the server base URL.
const StreamPath = "/api/v1/interpret/stream"

// Transport opens the frame stream for one dream. The returned body is read
// until EOF or until ctx is cancelled.
type Transport interface {
	Open(ctx context.Context, dream string) (io.ReadCloser, error)
}

// HTTPTransport posts dreams to the interpretation endpoint.
type HTTPTransport struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPTransport constructs an HTTPTransport using http.DefaultClient.
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{BaseURL: baseURL}
}

func (t *HTTPTransport) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}

// Open sends the request and returns the event-stream body. Non-2xx answers
// are returned as *Error carrying the server's code, or HTTP_<status> when the
// body has none.
func (t *HTTPTransport) Open(ctx context.Context, dream string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]string{"dream": dream})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := strings.TrimRight(t.BaseURL, "/") + StreamPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("post dream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeErrorBody(resp)
	}
	return resp.Body, nil
}

func decodeErrorBody(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(body, &payload)
	e := &Error{Message: strings.TrimSpace(payload.Error), Code: payload.Code}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	if e.Code == "" {
		e.Code = httpStatusCode(resp.StatusCode)
	}
	return e
}

var _ Transport = (*HTTPTransport)(nil)
