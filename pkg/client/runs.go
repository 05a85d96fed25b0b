package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Run is a single execution of an application over a set of slide
// inputs.
type Run struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"applicationId"`
	State         string     `json:"state"`
	ItemCount     int        `json:"itemCount,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	Error         string     `json:"error,omitempty"`
}

type RunService struct {
	client *Client
}

func (c *Client) Runs() *RunService {
	return &RunService{client: c}
}

type RunListOptions struct {
	ApplicationID string
	State         []string
}

type RunRequest struct {
	ApplicationID string   `json:"applicationId"`
	SlideIDs      []string `json:"slideIds"`
}

func (s *RunService) List(ctx context.Context, opts RunListOptions) ([]Run, error) {
	endpoint := "api/v1/runs"
	params := url.Values{}
	if opts.ApplicationID != "" {
		params.Set("applicationId", opts.ApplicationID)
	}
	if len(opts.State) > 0 {
		params.Set("state", strings.Join(opts.State, ","))
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint = fmt.Sprintf("%s?%s", endpoint, encoded)
	}
	var runs []Run
	if err := s.client.do(ctx, http.MethodGet, endpoint, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *RunService) Get(ctx context.Context, id string) (*Run, error) {
	endpoint := fmt.Sprintf("api/v1/runs/%s", url.PathEscape(id))
	var run Run
	if err := s.client.do(ctx, http.MethodGet, endpoint, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *RunService) Create(ctx context.Context, req RunRequest) (*Run, error) {
	var run Run
	if err := s.client.do(ctx, http.MethodPost, "api/v1/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *RunService) Cancel(ctx context.Context, id string) (*Run, error) {
	endpoint := fmt.Sprintf("api/v1/runs/%s/cancel", url.PathEscape(id))
	var run Run
	if err := s.client.do(ctx, http.MethodPost, endpoint, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
