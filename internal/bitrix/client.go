// Package bitrix is a client for the Bitrix24 calendar REST API, reached
// through an inbound webhook URL.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 15 * time.Second

	eventTimeLayout = "2006-01-02T15:04:05-07:00"
)

type Client struct {
	webhookURL string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(webhookURL string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		webhookURL: strings.TrimRight(webhookURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With(slog.String("component", "bitrix")),
	}
}

type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	fields := map[string]any{
		"type":          "user",
		"ownerId":       "1",
		"name":          in.Title,
		"description":   in.Description,
		"from":          in.Start.Format(eventTimeLayout),
		"to":            in.End.Format(eventTimeLayout),
		"skipTime":      "N",
		"attendees":     in.Attendees,
		"color":         "#9dcf00",
		"accessibility": "busy",
		"importance":    "normal",
		"private_event": "N",
		"remind": []map[string]string{
			{"type": "min", "count": "15"},
		},
	}

	raw, err := c.call(ctx, "calendar.event.add", map[string]any{"fields": fields})
	if err != nil {
		return "", err
	}
	id, err := parseEventID(raw)
	if err != nil {
		return "", fmt.Errorf("calendar.event.add: %w", err)
	}
	return id, nil
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, in EventInput) error {
	fields := map[string]any{}
	if in.Title != "" {
		fields["name"] = in.Title
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if !in.Start.IsZero() {
		fields["from"] = in.Start.Format(eventTimeLayout)
	}
	if !in.End.IsZero() {
		fields["to"] = in.End.Format(eventTimeLayout)
	}
	if len(in.Attendees) > 0 {
		fields["attendees"] = in.Attendees
	}

	_, err := c.call(ctx, "calendar.event.update", map[string]any{"id": eventID, "fields": fields})
	return err
}

func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := c.call(ctx, "calendar.event.delete", map[string]any{"id": eventID})
	return err
}

func (c *Client) call(ctx context.Context, method string, body map[string]any) (json.RawMessage, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL+"/"+method, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitrix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("bitrix request failed",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("bitrix %s: status %d: %s", method, resp.StatusCode, snippet)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode bitrix response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("bitrix %s: %s", method, out.Error)
	}
	return out.Result, nil
}

// parseEventID accepts both response shapes Bitrix portals produce: a bare
// numeric id and an object carrying an id field.
func parseEventID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("empty result")
	}

	var numeric int64
	if err := json.Unmarshal(raw, &numeric); err == nil {
		return strconv.FormatInt(numeric, 10), nil
	}

	var wrapped struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.ID != "" {
		return wrapped.ID.String(), nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil && str != "" {
		return str, nil
	}

	return "", fmt.Errorf("unrecognized result shape: %s", raw)
}
