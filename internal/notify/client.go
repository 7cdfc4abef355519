package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SendResult is the provider's answer for one recipient.
type SendResult struct {
	Number     string `json:"number"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	MessageID  string `json:"messageId"`
	Cost       string `json:"cost"`
}

// Client sends SMS through an Africa's Talking compatible HTTP API.
type Client struct {
	BaseURL  string
	Username string
	APIKey   string
	Sender   string
	HTTP     *http.Client
	Skip     bool
}

// New creates a client. With skip set no request is made.
func New(baseURL, username, apiKey, sender string, skip bool) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Username: username,
		APIKey:   apiKey,
		Sender:   sender,
		Skip:     skip,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers message to a single 256XXXXXXXXX number.
func (c *Client) Send(ctx context.Context, to, message string) (*SendResult, error) {
	if c.Skip {
		return &SendResult{Number: "+" + to, Status: "Skipped"}, nil
	}
	if to == "" {
		return nil, fmt.Errorf("recipient required")
	}

	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("to", "+"+to)
	form.Set("message", message)
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sms provider error %s: %s", resp.Status, string(body))
	}

	var out struct {
		SMSMessageData struct {
			Message    string       `json:"Message"`
			Recipients []SendResult `json:"Recipients"`
		} `json:"SMSMessageData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.SMSMessageData.Recipients) == 0 {
		return nil, fmt.Errorf("sms not accepted: %s", out.SMSMessageData.Message)
	}
	r := out.SMSMessageData.Recipients[0]
	// 100 processed, 101 sent, 102 queued
	if r.StatusCode < 100 || r.StatusCode > 102 {
		return &r, fmt.Errorf("sms rejected for %s: %s", r.Number, r.Status)
	}
	return &r, nil
}
