package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cadencehq/cadence/pkg/schema"
)

// Submitter hands a compiled step list to the step-execution backend. The
// backend owns the durable CampaignStep records from that point on.
type Submitter interface {
	SubmitSteps(ctx context.Context, campaignID string, steps []schema.CampaignStep) error
}

// HTTPSubmitter posts compiled steps to the backend collaborator over HTTP.
type HTTPSubmitter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSubmitter creates a submitter targeting the backend at baseURL.
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitSteps replaces the campaign's step list on the backend.
func (s *HTTPSubmitter) SubmitSteps(ctx context.Context, campaignID string, steps []schema.CampaignStep) error {
	body, err := json.Marshal(steps)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "marshal steps").WithCause(err)
	}

	url := fmt.Sprintf("%s/campaigns/%s/steps", s.baseURL, campaignID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "build submit request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "submit steps").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return schema.NewErrorf(schema.ErrCodeStore, "backend rejected steps: %s: %s", resp.Status, snippet)
	}
	return nil
}
