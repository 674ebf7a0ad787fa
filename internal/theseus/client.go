package theseus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mailcannon/internal/config"
)

const (
	OrdersPath = "/api/v1/warehouse_orders"
	UserAgent  = "mail-cannon/1.0"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

type OrderResponse struct {
	StatusCode int
	OrderID    string
	Body       json.RawMessage
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return newClient(cfg, http.DefaultTransport, log)
}

func newClient(cfg config.Config, base http.RoundTripper, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	token := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
	return &Client{
		baseURL: strings.TrimRight(cfg.TheseusBaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
			Transport: &oauth2.Transport{Source: token, Base: base},
		},
		log: log,
	}
}

// CreateWarehouseOrder posts one order. There is no retry: a failed call is
// final for that row.
func (c *Client) CreateWarehouseOrder(ctx context.Context, payload Payload) (*OrderResponse, error) {
	url := c.baseURL + OrdersPath
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	c.log.Debug("POST", zap.String("url", url))
	c.log.Debug("request body", zap.ByteString("body", body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post warehouse order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("response", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        raw,
		}
	}

	out := &OrderResponse{StatusCode: resp.StatusCode, Body: json.RawMessage("{}")}
	if len(bytes.TrimSpace(raw)) == 0 {
		out.OrderID = "unknown"
		return out, nil
	}

	// A 2xx means the order exists, whatever the body looks like.
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.log.Warn("order accepted but response is not a JSON object", zap.Int("status", resp.StatusCode))
		out.OrderID = "unknown"
		out.Body = bodyJSON(resp.Header.Get("Content-Type"), raw)
		return out, nil
	}
	out.Body = json.RawMessage(raw)
	out.OrderID = orderID(decoded)
	return out, nil
}

func orderID(body map[string]any) string {
	for _, key := range []string{"id", "hc_id"} {
		switch v := body[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return "unknown"
}
