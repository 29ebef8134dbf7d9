package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	rcerrors "github.com/recallcontext/recall-cli/pkg/errors"
)

const (
	routeActions      = "/api/v1/actions"
	routeAction       = "/api/v1/actions/{id}"
	routeActionStatus = "/api/v1/actions/{id}/status"
)

// ListActions returns one page of action items across all meetings.
func (c *Client) ListActions(ctx context.Context, page, size int) (*PageResponse[ActionItemDetail], error) {
	var resp PageResponse[ActionItemDetail]
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeActions,
		path:   routeActions,
		query:  pageQuery(page, size),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return &resp, nil
}

// GetAction returns a single action item.
func (c *Client) GetAction(ctx context.Context, id int64) (*ActionItemDetail, error) {
	var action ActionItemDetail
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeAction,
		path:   actionPath(id),
	}, &action)
	if err != nil {
		return nil, fmt.Errorf("getting action %d: %w", id, err)
	}
	return &action, nil
}

// UpdateAction changes the non-empty fields of req on an action item.
func (c *Client) UpdateAction(ctx context.Context, id int64, req *ActionUpdateRequest) (*ActionItemDetail, error) {
	if req == nil || req.IsEmpty() {
		return nil, fmt.Errorf("action update: nothing to change")
	}
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("action update: %w", err)
	}

	var action ActionItemDetail
	err := c.do(ctx, request{
		method: http.MethodPut,
		route:  routeAction,
		path:   actionPath(id),
		body:   req,
	}, &action)
	if err != nil {
		return nil, fmt.Errorf("updating action %d: %w", id, err)
	}
	return &action, nil
}

// UpdateActionStatus changes only the status of an action item.
func (c *Client) UpdateActionStatus(ctx context.Context, id int64, status ActionStatus) (*ActionItemDetail, error) {
	if status == "" {
		return nil, fmt.Errorf("action status: %w: status is required", rcerrors.ErrValidation)
	}
	req := &ActionUpdateRequest{Status: status}
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("action status: %w", err)
	}

	var action ActionItemDetail
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  routeActionStatus,
		path:   actionPath(id) + "/status",
		body:   req,
	}, &action)
	if err != nil {
		return nil, fmt.Errorf("updating status of action %d: %w", id, err)
	}
	return &action, nil
}

func actionPath(id int64) string {
	return routeActions + "/" + strconv.FormatInt(id, 10)
}
