// Package httpx holds the retrying HTTP POST shared by the speech and
// search clients.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds retries of a single call.
type Policy struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// StatusError is a non-2xx response that was not retried or ran out of
// attempts. Body holds at most the first 512 bytes of the response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Request describes one POST.
type Request struct {
	URL         string
	ContentType string
	Body        []byte
	Header      http.Header
}

// Post sends req, retrying transport errors and 5xx answers with exponential
// backoff. 4xx answers fail immediately. On success the caller must close the
// response body.
func Post(ctx context.Context, hc *http.Client, req Request, p Policy) (*http.Response, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if p.Attempts == 0 {
		p.Attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialDelay > 0 {
		b.InitialInterval = p.InitialDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}

	op := func() (*http.Response, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
		if req.ContentType != "" {
			r.Header.Set("Content-Type", req.ContentType)
		}

		resp, err := hc.Do(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if resp.StatusCode >= 300 {
			se := drain(resp)
			if resp.StatusCode >= 500 {
				return nil, se
			}
			return nil, backoff.Permanent(se)
		}
		return resp, nil
	}

	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(p.Attempts))
}

func drain(resp *http.Response) *StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}
