package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/runinator/runinator/pkg/types"
)

// HTTPClient issues JSON requests against whatever base URL its Locator
// currently resolves to. One instance is safe for concurrent use and is
// typically shared by every call a component makes to one remote peer.
type HTTPClient struct {
	locator Locator
	client  *http.Client
}

// NewHTTPClient builds an HTTPClient bounded by timeout per request.
func NewHTTPClient(loc Locator, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		locator: loc,
		client:  &http.Client{Timeout: timeout},
	}
}

// DoJSON resolves the current base URL, joins it with path, marshals
// body (if non-nil) as the request payload, issues method, and — on a
// 2xx response with a non-nil out — decodes the response body into out.
// Non-2xx responses are returned as a types.Error of kind ErrHTTP
// carrying the status, URL, and response body text.
func (c *HTTPClient) DoJSON(ctx context.Context, method, path string, body, out any) error {
	base, err := c.locator.BaseURL(ctx)
	if err != nil {
		return err
	}

	fullURL, err := joinURL(base, path)
	if err != nil {
		return types.NewInvalidPathError(path)
	}

	var reader io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return types.NewInternalError(merr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return types.NewRequestError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.NewRequestError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewHTTPError(resp.StatusCode, fullURL, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return types.NewInternalError(fmt.Errorf("decode response from %s: %w", fullURL, err))
		}
	}
	return nil
}

// StatusJSON is like DoJSON but also returns the HTTP status code, for
// callers (broker client) that need to branch on 204/404/409 rather than
// treat every non-2xx as an error.
func (c *HTTPClient) StatusJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	base, err := c.locator.BaseURL(ctx)
	if err != nil {
		return 0, err
	}

	fullURL, err := joinURL(base, path)
	if err != nil {
		return 0, types.NewInvalidPathError(path)
	}

	var reader io.Reader
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return 0, types.NewInternalError(merr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, types.NewRequestError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, types.NewRequestError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if out != nil && len(respBody) > 0 {
		_ = json.Unmarshal(respBody, out)
	}
	return resp.StatusCode, nil
}

func joinURL(base, p string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(p, "/")
	return u.String(), nil
}
