package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Meeting routes.
const (
	routeMeetings         = "/api/v1/meetings"
	routeMeeting          = "/api/v1/meetings/{id}"
	routeProcessingStatus = "/api/v1/meetings/{id}/processing-status"
)

// Pagination defaults shared by the list endpoints.
const (
	DefaultPage     = 0
	DefaultPageSize = 20
)

// UploadTranscript submits a transcript and returns the meeting the backend
// created. The backend processes the transcript before responding, so this
// call can take as long as the AI analysis.
func (c *Client) UploadTranscript(ctx context.Context, req *UploadRequest) (*Meeting, error) {
	if req == nil {
		req = &UploadRequest{}
	}
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}

	var meeting Meeting
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  routeMeetings,
		path:   routeMeetings,
		body:   req,
	}, &meeting)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", req.Filename, err)
	}
	return &meeting, nil
}

// ListMeetings returns one page of meetings. Pages are zero-based.
func (c *Client) ListMeetings(ctx context.Context, page, size int) (*PageResponse[Meeting], error) {
	var resp PageResponse[Meeting]
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeMeetings,
		path:   routeMeetings,
		query:  pageQuery(page, size),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	return &resp, nil
}

// GetMeeting returns a meeting with its summary, participants, action items
// and transcript.
func (c *Client) GetMeeting(ctx context.Context, id int64) (*Meeting, error) {
	var meeting Meeting
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeMeeting,
		path:   meetingPath(id),
	}, &meeting)
	if err != nil {
		return nil, fmt.Errorf("getting meeting %d: %w", id, err)
	}
	return &meeting, nil
}

// GetProcessingStatus returns the processing status projection of a meeting.
func (c *Client) GetProcessingStatus(ctx context.Context, id int64) (*ProcessingStatus, error) {
	var status ProcessingStatus
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  routeProcessingStatus,
		path:   meetingPath(id) + "/processing-status",
	}, &status)
	if err != nil {
		return nil, fmt.Errorf("getting processing status of meeting %d: %w", id, err)
	}
	return &status, nil
}

// DeleteMeeting removes a meeting and everything derived from it.
func (c *Client) DeleteMeeting(ctx context.Context, id int64) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  routeMeeting,
		path:   meetingPath(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("deleting meeting %d: %w", id, err)
	}
	return nil
}

func meetingPath(id int64) string {
	return routeMeetings + "/" + strconv.FormatInt(id, 10)
}

// pageQuery builds page/size parameters, applying the backend defaults to
// out-of-range values.
func pageQuery(page, size int) url.Values {
	if page < 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}
