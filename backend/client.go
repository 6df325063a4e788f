package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"food-delivery/panel/models"
)

// Client talks to the remote delivery backend. It satisfies orders.Service
// and chat.Service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches orders, optionally filtered by status ("" means all).
func (c *Client) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	path := "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var orders []models.Order
	if err := c.getJSON(ctx, path, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus issues a status-transition command for an order.
func (c *Client) UpdateStatus(ctx context.Context, orderID int, status models.OrderStatus) (models.Order, error) {
	body := map[string]string{"status": string(status)}
	var order models.Order
	if err := c.putJSON(ctx, fmt.Sprintf("/orders/%d/status", orderID), body, &order); err != nil {
		return models.Order{}, fmt.Errorf("update order %d: %w", orderID, err)
	}
	return order, nil
}

// ListChats fetches the conversation list for the current party.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.getJSON(ctx, "/chats", &chats); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// History returns the raw history payload for a chat. The shape varies
// between backend versions, so normalization is left to the caller.
func (c *Client) History(ctx context.Context, chatID int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/chats/%d/messages", chatID), &raw); err != nil {
		return nil, fmt.Errorf("chat %d history: %w", chatID, err)
	}
	return raw, nil
}

// Send posts a message to a chat and returns the server-confirmed message.
func (c *Client) Send(ctx context.Context, chatID int, text string) (models.Message, error) {
	body := map[string]string{"text": text}
	var msg models.Message
	if err := c.postJSON(ctx, fmt.Sprintf("/chats/%d/messages", chatID), body, &msg); err != nil {
		return models.Message{}, fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return msg, nil
}

// DashboardStats is the admin/business dashboard summary.
type DashboardStats struct {
	TotalOrders    int                `json:"totalOrders"`
	OrderRequests  int                `json:"orderRequests"`
	TotalRevenue   float64            `json:"totalRevenue"`
	DailyRevenue   map[string]float64 `json:"dailyRevenue"`
	MonthlyRevenue map[string]float64 `json:"monthlyRevenue"`
	YearlyRevenue  map[string]float64 `json:"yearlyRevenue"`
}

// Dashboard fetches the dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	if err := c.getJSON(ctx, "/dashboard", &stats); err != nil {
		return DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	return stats, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.writeJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) putJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.writeJSON(ctx, http.MethodPut, path, body, out)
}

func (c *Client) writeJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
