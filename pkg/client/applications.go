package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Application is a computational pathology application published on the
// platform, e.g. a tissue segmentation or biomarker scoring model.
type Application struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version"`
	Modality    string    `json:"modality,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type ApplicationService struct {
	client *Client
}

func (c *Client) Applications() *ApplicationService {
	return &ApplicationService{client: c}
}

type ApplicationListOptions struct {
	Name     string
	Modality string
}

func (s *ApplicationService) List(ctx context.Context, opts ApplicationListOptions) ([]Application, error) {
	endpoint := "api/v1/applications"
	params := url.Values{}
	if opts.Name != "" {
		params.Set("name", opts.Name)
	}
	if opts.Modality != "" {
		params.Set("modality", opts.Modality)
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint = fmt.Sprintf("%s?%s", endpoint, encoded)
	}
	var apps []Application
	if err := s.client.do(ctx, http.MethodGet, endpoint, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*Application, error) {
	endpoint := fmt.Sprintf("api/v1/applications/%s", url.PathEscape(id))
	var app Application
	if err := s.client.do(ctx, http.MethodGet, endpoint, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}
