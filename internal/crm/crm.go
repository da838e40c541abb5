// Package crm pushes finished results into the downstream CRM as a contact
// upsert with custom fields. Notification is fire-and-forget from the
// pipeline's point of view: a failure is logged and the response to the
// applicant is unaffected.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/fault"
)

// apiVersion is the CRM's required versioning header.
const apiVersion = "2021-07-28"

// Contact is the applicant identity pushed to the CRM.
type Contact struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// Notification is the result set attached to the contact.
type Notification struct {
	Path          string            // repair or fundable
	RefID         string
	ResultURL     string
	BannerFunding int
	TotalFunding  int
	LetterURLs    map[string]string // CRM field key -> uploaded URL
	EmailSummary  string
}

// Client talks to the CRM upsert API.
type Client struct {
	apiBase    string
	privateKey string
	locationID string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a CRM client. Missing credentials leave it unconfigured;
// Notify then becomes a no-op.
func New(apiBase, privateKey, locationID string, logger *zap.Logger) *Client {
	return &Client{
		apiBase:    apiBase,
		privateKey: privateKey,
		locationID: locationID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("crm"),
	}
}

// Available reports whether credentials are configured.
func (c *Client) Available() bool {
	return c.privateKey != "" && c.locationID != ""
}

type customField struct {
	Key   string `json:"key"`
	Value string `json:"field_value"`
}

type upsertRequest struct {
	LocationID   string        `json:"locationId"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	CustomFields []customField `json:"customFields"`
}

// Notify upserts the contact with the result fields. Letter URL fields are
// only included when the upload produced a URL, so the CRM never carries
// empty links.
func (c *Client) Notify(ctx context.Context, contact Contact, n Notification) error {
	if !c.Available() {
		c.logger.Debug("crm not configured, skipping notification")
		return nil
	}

	fields := []customField{
		{Key: "analyzer_path", Value: n.Path},
		{Key: "analyzer_status", Value: "complete"},
		{Key: "analyzer_ref_id", Value: n.RefID},
		{Key: "letters_ready", Value: "true"},
		{Key: "banner_funding", Value: fmt.Sprintf("%d", n.BannerFunding)},
		{Key: "total_combined_funding", Value: fmt.Sprintf("%d", n.TotalFunding)},
	}
	if n.ResultURL != "" {
		fields = append(fields, customField{Key: "analyzer_result_url", Value: n.ResultURL})
	}
	if n.EmailSummary != "" {
		fields = append(fields, customField{Key: "analyzer_email_summary", Value: n.EmailSummary})
	}
	for key, url := range n.LetterURLs {
		if key == "" || url == "" {
			continue
		}
		fields = append(fields, customField{Key: key, Value: url})
	}

	req := upsertRequest{
		LocationID:   c.locationID,
		Email:        contact.Email,
		Phone:        contact.Phone,
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
		CustomFields: fields,
	}

	if err := c.upsert(ctx, req); err != nil {
		return fault.Wrap(fault.CRMUnreachable, err)
	}
	return nil
}

func (c *Client) upsert(ctx context.Context, body upsertRequest) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode upsert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/contacts/upsert", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.privateKey)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("crm returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
