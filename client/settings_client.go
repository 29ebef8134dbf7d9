package client

import (
	"context"
	"fmt"
	"net/http"
)

const (
	routeAPIKey       = "/api/v1/settings/api-key"
	routeAPIKeyStatus = "/api/v1/settings/api-key/status"
)

// SaveAPIKey stores the AI provider key on the backend. The key is sent once
// and never logged.
func (c *Client) SaveAPIKey(ctx context.Context, apiKey string) (*APIKeyStatusResponse, error) {
	req := &APIKeyRequest{APIKey: apiKey}
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("api key request: %w", err)
	}

	var resp APIKeyStatusResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeAPIKey,
		path:   routeAPIKey,
		body:   req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("saving api key: %w", err)
	}
	return &resp, nil
}

// GetAPIKeyStatus reports whether the backend has an AI provider key.
func (c *Client) GetAPIKeyStatus(ctx context.Context) (*APIKeyStatusResponse, error) {
	var resp APIKeyStatusResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeAPIKeyStatus,
		path:   routeAPIKeyStatus,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("getting api key status: %w", err)
	}
	return &resp, nil
}

// DeleteAPIKey removes the AI provider key from the backend.
func (c *Client) DeleteAPIKey(ctx context.Context) (*APIKeyStatusResponse, error) {
	var resp APIKeyStatusResponse
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  routeAPIKey,
		path:   routeAPIKey,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("deleting api key: %w", err)
	}
	return &resp, nil
}
