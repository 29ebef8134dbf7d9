package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Wait defaults.
const (
	DefaultWaitTimeout     = 10 * time.Minute
	DefaultWaitInitial     = 2 * time.Second
	DefaultWaitMaxInterval = 15 * time.Second
)

// ErrWaitTimeout is returned when processing has not finished within the wait bound.
var ErrWaitTimeout = errors.New("timed out waiting for processing to finish")

var errStillProcessing = errors.New("meeting still processing")

// WaitOptions configures WaitForProcessing.
type WaitOptions struct {
	// Timeout bounds the whole wait. Zero uses DefaultWaitTimeout.
	Timeout time.Duration
	// InitialInterval is the first delay between polls.
	InitialInterval time.Duration
	// MaxInterval caps the delay between polls.
	MaxInterval time.Duration
	// OnPoll is called with every status received, terminal or not.
	OnPoll func(*ProcessingStatus)
}

// WaitForProcessing polls the processing status of a meeting until it is
// COMPLETED or FAILED. A failed poll ends the wait immediately. The returned
// status is the terminal one; a FAILED meeting is not an error here.
func (c *Client) WaitForProcessing(ctx context.Context, id int64, opts WaitOptions) (*ProcessingStatus, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = orDefault(opts.InitialInterval, DefaultWaitInitial)
	bo.MaxInterval = orDefault(opts.MaxInterval, DefaultWaitMaxInterval)
	bo.MaxElapsedTime = orDefault(opts.Timeout, DefaultWaitTimeout)

	var last *ProcessingStatus
	poll := func() error {
		status, err := c.GetProcessingStatus(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = status
		if opts.OnPoll != nil {
			opts.OnPoll(status)
		}
		if !status.Status.IsTerminal() {
			return errStillProcessing
		}
		return nil
	}

	err := backoff.Retry(poll, backoff.WithContext(bo, ctx))
	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errStillProcessing):
		return last, fmt.Errorf("meeting %d: %w", id, ErrWaitTimeout)
	default:
		return last, err
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
