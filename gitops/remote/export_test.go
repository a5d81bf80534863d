package remote

import "time"

// BackoffForTest exposes Client.backoff.
func (c *Client) BackoffForTest(attempt int) time.Duration {
	return c.backoff(attempt)
}

// ParseRetryAfterForTest exposes parseRetryAfter.
var ParseRetryAfterForTest = parseRetryAfter
