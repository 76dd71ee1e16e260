package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendPayload struct {
	Sender   string `json:"sender"`
	Phone    string `json:"phone"`
	Text     string `json:"text"`
	Datetime string `json:"datetime,omitempty"`
	Lifetime int    `json:"sms_lifetime,omitempty"`
}

func (c *HTTPClient) SendSMS(ctx context.Context, attrs SendAttrs) (*Result, error) {
	p := sendPayload{
		Sender:   attrs.Sender,
		Phone:    attrs.Phone,
		Text:     attrs.Body,
		Lifetime: attrs.Lifetime,
	}
	if attrs.Schedule != nil {
		p.Datetime = attrs.Schedule.UTC().Format("2006-01-02 15:04:05")
	}

	reqBody, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendSMS", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	return c.do(req)
}

func (c *HTTPClient) GetCampaignInfo(ctx context.Context, externalID string) (*Result, error) {
	u := c.baseURL + "/getCampaignInfo?id=" + url.QueryEscape(externalID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (*Result, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}

	return &res, nil
}
