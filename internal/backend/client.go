// internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agency-workspace/internal/common/errors"
	"agency-workspace/internal/common/metrics"
	"agency-workspace/internal/models"
)

// Client talks to the agency backend's shared leads surface. Every record
// kind (lead, loan, task) lives behind the same endpoints; classification
// happens on our side.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FollowUpRequest appends one history entry to a record.
type FollowUpRequest struct {
	Lead             string `json:"lead"`
	FollowupDate     string `json:"followup_date"`
	ContactedVia     string `json:"contacted_via"`
	Remarks          string `json:"remarks"`
	NextFollowupDate string `json:"next_followup_date,omitempty"`
	NextFollowupTime string `json:"next_followup_time,omitempty"`
	FollowupResult   string `json:"followup_result,omitempty"`
	Organization     string `json:"organization"`
	Branch           string `json:"branch"`
}

// ListRecords fetches the flat, untagged record collection for an
// organization. The payload is schema-checked before ingestion.
func (c *Client) ListRecords(ctx context.Context, rc RequestContext) ([]models.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/leads/list/?organization=%s", c.baseURL, url.QueryEscape(rc.Organization))

	body, err := c.do(ctx, rc, http.MethodGet, endpoint, nil, "list")
	if err != nil {
		return nil, err
	}

	if err := ValidateListPayload(body); err != nil {
		return nil, err
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NewPayloadInvalidError(err.Error())
	}

	out := make([]models.RawRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.RawRecord(r))
	}
	return out, nil
}

// GetRecord fetches a single record including its nested followups. A 404 is
// the recoverable missing-record case.
func (c *Client) GetRecord(ctx context.Context, rc RequestContext, id string) (models.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/leads/%s/", c.baseURL, url.PathEscape(id))

	body, err := c.do(ctx, rc, http.MethodGet, endpoint, nil, "get")
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NewPayloadInvalidError(err.Error())
	}
	return models.RawRecord(raw), nil
}

// CreateRecord creates a record (leads by default; loan and task fields ride
// along when present). Returns the created record with its server id.
func (c *Client) CreateRecord(ctx context.Context, rc RequestContext, fields models.RawRecord) (models.RawRecord, error) {
	if err := rc.RequireToken(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/leads/create/", c.baseURL)

	body, err := c.do(ctx, rc, http.MethodPost, endpoint, fields, "create")
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NewPayloadInvalidError(err.Error())
	}
	return models.RawRecord(raw), nil
}

// UpdateRecord patches a record with partial fields.
func (c *Client) UpdateRecord(ctx context.Context, rc RequestContext, id string, fields models.RawRecord) (models.RawRecord, error) {
	if err := rc.RequireToken(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/leads/update/%s/", c.baseURL, url.PathEscape(id))

	body, err := c.do(ctx, rc, http.MethodPatch, endpoint, fields, "update")
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		// Some update routes answer with an empty body; the caller keeps
		// its optimistic copy in that case.
		return nil, nil
	}
	return models.RawRecord(raw), nil
}

// AddFollowUp appends a follow-up history entry to a record.
func (c *Client) AddFollowUp(ctx context.Context, rc RequestContext, req FollowUpRequest) error {
	if err := rc.RequireToken(); err != nil {
		return err
	}

	req.Organization = rc.Organization
	req.Branch = rc.Branch

	endpoint := fmt.Sprintf("%s/leads/followup/", c.baseURL)
	_, err := c.do(ctx, rc, http.MethodPost, endpoint, req, "followup")
	return err
}

// DeleteRecord removes a lead or task record. Loans have no delete route.
func (c *Client) DeleteRecord(ctx context.Context, rc RequestContext, id string) error {
	if err := rc.RequireToken(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/leads/%s/", c.baseURL, url.PathEscape(id))
	_, err := c.do(ctx, rc, http.MethodDelete, endpoint, nil, "delete")
	return err
}

func (c *Client) do(ctx context.Context, rc RequestContext, method, endpoint string, payload interface{}, operation string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkFailureError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkFailureError(err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewRecordNotFoundError(endpoint)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewBackendRejectedError(resp.StatusCode, string(body))
	}

	return body, nil
}
