package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WaitForHealthy polls baseURL/health until the server answers 200 or ctx
// ends. The error names the last failure seen.
func WaitForHealthy(ctx context.Context, baseURL string, interval time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("health status %d", resp.StatusCode)
		}
		last = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("server not healthy: %w", last)
		case <-ticker.C:
		}
	}
}
