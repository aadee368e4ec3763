package utils

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client
type DefaultHTTPClient struct{ Timeout time.Duration }

func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	// 0 means no timeout
	client := &http.Client{Timeout: c.Timeout}
	return client.Do(req)
}

var httpClient HTTPClient

const maxLogSize = 1024

// LogBodyContent logs a body and returns an equivalent unread copy.
func LogBodyContent(body io.ReadCloser, label string) io.ReadCloser {
	if body == nil {
		LogDebug(fmt.Sprintf("  -> %s: <nil>", label))
		return nil
	}

	bodyBytes, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		LogDebug(fmt.Sprintf("  -> %s: <error reading: %v>", label, err))
		return io.NopCloser(bytes.NewReader(nil))
	}
	if len(bodyBytes) == 0 {
		LogDebug(fmt.Sprintf("  -> %s: <empty>", label))
		return io.NopCloser(bytes.NewReader(bodyBytes))
	}

	bodyStr := string(bodyBytes)
	if len(bodyStr) > maxLogSize {
		bodyStr = bodyStr[:maxLogSize] + "... (truncated)"
	}
	LogDebug(fmt.Sprintf("  -> %s: %s", label, bodyStr))
	return io.NopCloser(bytes.NewReader(bodyBytes))
}

// VerboseHTTPClient wraps another HTTPClient and logs requests, responses
// and headers to the debug log.
type VerboseHTTPClient struct{ Inner HTTPClient }

func (v *VerboseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	inner := v.Inner
	if inner == nil {
		inner = &DefaultHTTPClient{}
	}
	LogDebug(fmt.Sprintf("HTTP %s %s", req.Method, req.URL.String()))
	LogHeaders("request", req.Header)

	// attachments are binary, log only their size
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		LogDebug(fmt.Sprintf("  -> request body: <multipart, %d bytes>", req.ContentLength))
	} else {
		req.Body = LogBodyContent(req.Body, "request body")
	}

	start := time.Now()
	resp, err := inner.Do(req)
	if err != nil {
		LogDebug(fmt.Sprintf("  -> error: %v", err))
		return nil, err
	}
	LogDebug(fmt.Sprintf("  -> %d %s (%s)", resp.StatusCode, http.StatusText(resp.StatusCode), time.Since(start).Round(time.Millisecond)))
	LogHeaders("response", resp.Header)
	resp.Body = LogBodyContent(resp.Body, "response body")
	return resp, nil
}

// GetHTTPClientWithTimeout returns the logging client every command uses.
func GetHTTPClientWithTimeout(timeout time.Duration) HTTPClient {
	if httpClient != nil {
		return &VerboseHTTPClient{Inner: httpClient}
	}
	return &VerboseHTTPClient{Inner: &DefaultHTTPClient{Timeout: timeout}}
}

// SetHTTPClientForTest replaces the transport under the logging wrapper.
// Pass nil to restore the default.
func SetHTTPClientForTest(client HTTPClient) {
	httpClient = client
}

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-auth-token":        {},
	"x-access-token":      {},
	"x-api-key":           {},
	"www-authenticate":    {},
	"x-forwarded-for":     {},
	"x-real-ip":           {},
}

// LogHeaders logs hdr sorted by name with credential headers redacted.
func LogHeaders(kind string, hdr http.Header) {
	if len(hdr) == 0 {
		return
	}
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, isSensitive := sensitiveHeaders[strings.ToLower(k)]
		for _, v := range hdr.Values(k) {
			if isSensitive {
				LogDebug(fmt.Sprintf("  %s header: %s: [REDACTED]", kind, k))
			} else {
				LogDebug(fmt.Sprintf("  %s header: %s: %s", kind, k, v))
			}
		}
	}
}
