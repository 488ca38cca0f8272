// Package notify sends templated WhatsApp messages to customers when their
// order reaches certain statuses. Everything here is best-effort: failures
// are logged and counted, never surfaced to the request that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com/v17.0"

// templateLanguage is the fixed locale every template is registered under.
const templateLanguage = "pt_BR"

// countryCode is prepended to bare national numbers.
const countryCode = "55"

// Client calls the WhatsApp Cloud API messages endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	phoneID    string
}

// NewClient builds a Client for the given sender phone id and bearer token.
func NewClient(token, phoneID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		phoneID:    phoneID,
	}
}

type templatePayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTemplate sends one pre-approved template to a recipient. params fill
// the template body placeholders in order.
func (c *Client) SendTemplate(ctx context.Context, to, templateName string, params []string) error {
	payload := templatePayload{
		MessagingProduct: "whatsapp",
		To:               NormalizePhone(to),
		Type:             "template",
		Template: template{
			Name:     templateName,
			Language: language{Code: templateLanguage},
		},
	}
	if len(params) > 0 {
		comp := component{Type: "body"}
		for _, p := range params {
			comp.Parameters = append(comp.Parameters, parameter{Type: "text", Text: p})
		}
		payload.Template.Components = []component{comp}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp api status %d: %s", resp.StatusCode, detail)
	}
	return nil
}

// NormalizePhone strips everything but digits and prepends the country
// code to bare 11-digit national numbers (DDD + 9-digit mobile).
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && !strings.HasPrefix(digits, countryCode) {
		return countryCode + digits
	}
	return digits
}
