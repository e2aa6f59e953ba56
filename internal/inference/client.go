package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/backoff"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 2

	contentTypeCSV  = "text/csv"
	contentTypeJSON = "application/json"
	headerRequestID = "X-Request-ID"
)

// JobStatus is the lifecycle state of an inference job.
type JobStatus string

const (
	StatusNotStarted JobStatus = "NotStarted"
	StatusRunning    JobStatus = "Running"
	StatusFailed     JobStatus = "Failed"
	StatusCancelled  JobStatus = "Cancelled"
	StatusFinished   JobStatus = "Finished"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusFinished
}

// Job is the state reported by a status poll.
type Job struct {
	ID      string    `json:"id"`
	Status  JobStatus `json:"status"`
	Details string    `json:"details,omitempty"`
	// Result is the blob holding the output CSV, set once Finished.
	Result string `json:"result,omitempty"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL     string
	HTTPTimeout time.Duration
	// RPS limits outgoing requests; 0 means defaultRPS.
	RPS        float64
	Retry      backoff.Policy
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the inference service: blob upload and download, job
// submission, and status polling. Requests are rate limited and transient
// failures are retried.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	retry   backoff.Policy
	logger  *slog.Logger
}

// NewClient creates a client for the service at opts.BaseURL.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse inference url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("inference url %q must be absolute", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := opts.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:    base,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), defaultBurst),
		retry:   opts.Retry,
		logger:  logger,
	}, nil
}

// UploadBlob stores data under name and returns the location to reference
// it by in a job submission.
func (c *Client) UploadBlob(ctx context.Context, name string, data []byte) (string, error) {
	var resp struct {
		Location string `json:"location"`
	}
	err := c.call(ctx, http.MethodPut, "blobs/"+url.PathEscape(name), contentTypeCSV, data, &resp)
	if err != nil {
		return "", err
	}
	if resp.Location == "" {
		return "", errors.New("upload response has no location")
	}
	return resp.Location, nil
}

// SubmitJob starts an inference job over the blob at location.
func (c *Client) SubmitJob(ctx context.Context, location string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"input":      location,
		"parameters": map[string]string{},
	})
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "jobs", contentTypeJSON, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("submit response has no job id")
	}
	return resp.ID, nil
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.call(ctx, http.MethodGet, "jobs/"+url.PathEscape(id), "", nil, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = id
	}
	return &job, nil
}

// DownloadBlob returns the content of the blob at location. location may be
// a blob name, a "blobs/..." path, or an absolute URL under the base URL.
func (c *Client) DownloadBlob(ctx context.Context, location string) ([]byte, error) {
	var data []byte
	err := c.call(ctx, http.MethodGet, c.blobPath(location), "", nil, &data)
	return data, err
}

// blobPath maps a result location to a path relative to the base URL.
func (c *Client) blobPath(location string) string {
	if u, err := url.Parse(location); err == nil && u.IsAbs() {
		location = strings.TrimPrefix(u.EscapedPath(), c.base.EscapedPath())
	}
	location = strings.TrimPrefix(location, "/")
	if strings.HasPrefix(location, "blobs/") {
		return location
	}
	return "blobs/" + url.PathEscape(location)
}

// call performs one logical request with rate limiting and retries. A *[]byte
// out receives the raw body; anything else is decoded as JSON.
func (c *Client) call(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	requestID := uuid.NewString()

	return c.retry.Do(ctx, c.logger, method+" "+path, retryable, func() error {
		raw, err := c.doRequest(ctx, method, path, contentType, requestID, body)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if b, ok := out.(*[]byte); ok {
			*b = raw
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// doRequest executes a single HTTP request.
func (c *Client) doRequest(ctx context.Context, method, path, contentType, requestID string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, ok := ctx.Deadline(); ok {
			return nil, errWaitDeadline
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.base.JoinPath(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("User-Agent", "ttb-reconcile/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("inference request",
		"method", method,
		"path", path,
		"request_id", requestID,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, strings.TrimSpace(string(data)))
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
}
