package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/allot/internal/domain/model"
)

// ErrUnexpectedStatus is returned when the service answers with a status the
// client does not expect for the call.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Outcome classifies a ticket submission.
type Outcome int

// Submission outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeAccepted
	OutcomeDuplicate
)

// AllocationResponse mirrors the body of POST /allocate.
type AllocationResponse struct {
	Allocation  map[string]*string `json:"allocation"`
	Assignments []struct {
		RequestID string  `json:"request_id"`
		WorkerID  *string `json:"worker_id"`
	} `json:"assignments"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// Client talks to the allocation service over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient returns a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health checks GET /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: healthz answered %d", ErrUnexpectedStatus, status)
	}
	return nil
}

// RegisterWorker posts one worker record.
func (c *Client) RegisterWorker(ctx context.Context, rec model.WorkerRecord) error {
	status, body, err := c.do(ctx, http.MethodPost, "/workers", rec)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%w: register %s answered %d: %s", ErrUnexpectedStatus, rec.EmployeeNumber, status, body)
	}
	return nil
}

// SubmitTicket posts one request record.
func (c *Client) SubmitTicket(ctx context.Context, rec model.RequestRecord) (Outcome, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/requests", rec)
	if err != nil {
		return OutcomeFailed, err
	}
	switch status {
	case http.StatusAccepted:
		return OutcomeAccepted, nil
	case http.StatusOK:
		return OutcomeDuplicate, nil
	default:
		return OutcomeFailed, fmt.Errorf("%w: submit %s answered %d: %s", ErrUnexpectedStatus, rec.ID, status, body)
	}
}

// Allocate triggers an allocation pass.
func (c *Client) Allocate(ctx context.Context) (*AllocationResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/allocate", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: allocate answered %d: %s", ErrUnexpectedStatus, status, body)
	}
	var resp AllocationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode allocation: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
