package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// GetHealth fetches GET /health.
//
// An unhealthy relay answers 503 with a full body. Once retries are spent,
// GetHealth returns that decoded body together with an error wrapping ErrUnhealthy.
func (c *Client) GetHealth(ctx context.Context) (*Health, error) {
	var health Health
	err := c.get(ctx, "/health", &health)
	if err == nil {
		return &health, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		if jsonErr := json.Unmarshal(apiErr.Body, &health); jsonErr == nil {
			return &health, fmt.Errorf("%w: %v", ErrUnhealthy, err)
		}
	}

	return nil, err
}
