// Package telegram delivers result messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mock-test-service/internal/app"
	"mock-test-service/internal/domain"
)

const defaultBaseURL = "https://api.telegram.org"

// Client implements app.Messenger on top of the sendMessage method.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

func (c *Client) SendPersonal(ctx context.Context, recipientID int64, text string) error {
	return c.sendMessage(ctx, map[string]any{
		"chat_id": recipientID,
		"text":    text,
	})
}

func (c *Client) SendChannel(ctx context.Context, channelID string, text string, format app.Format) error {
	body := map[string]any{
		"chat_id": channelID,
		"text":    text,
	}
	if format != app.FormatPlain {
		body["parse_mode"] = string(format)
	}
	return c.sendMessage(ctx, body)
}

func (c *Client) sendMessage(ctx context.Context, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrDelivery, err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrDelivery, err)
	}
	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("%w: status %d", domain.ErrDelivery, resp.StatusCode)
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: telegram error %d: %s", domain.ErrDelivery, apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}
