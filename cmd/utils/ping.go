package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PingURL reports whether base answers at all. Any HTTP status below 500
// counts as reachable: the API root may well answer 404.
func PingURL(ctx context.Context, client HTTPClient, base string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	return time.Since(start), nil
}
