// Package zoom is a client for the Zoom meetings API, scoped to the
// scheduled-meeting operations the booking flow needs.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultBaseURL = "https://api.zoom.us/v2"
	defaultTimeout = 15 * time.Second

	// Zoom meeting type 2 is a scheduled meeting.
	meetingTypeScheduled = 2
)

type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	BaseURL      string
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	accountID    string
	clientID     string
	clientSecret string
	log          *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		accountID:    cfg.AccountID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		log:          log.With(slog.String("component", "zoom")),
	}
}

type MeetingInput struct {
	Topic           string
	StartTime       time.Time
	DurationMinutes int
	Timezone        string
}

type Meeting struct {
	ID       int64  `json:"id"`
	JoinURL  string `json:"join_url"`
	Password string `json:"password"`
	StartURL string `json:"start_url"`
}

// signToken builds a short-lived server-to-server token. Tokens are
// regenerated per call and never cached.
func (c *Client) signToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": c.clientID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(c.clientSecret))
}

func (c *Client) CreateMeeting(ctx context.Context, in MeetingInput) (Meeting, error) {
	body := map[string]any{
		"topic":      in.Topic,
		"type":       meetingTypeScheduled,
		"start_time": in.StartTime.Format("2006-01-02T15:04:05"),
		"duration":   in.DurationMinutes,
		"timezone":   in.Timezone,
		"settings": map[string]any{
			"host_video":        true,
			"participant_video": true,
			"join_before_host":  true,
			"waiting_room":      false,
			"use_pmi":           false,
			"approval_type":     0,
			"audio":             "both",
		},
	}

	var out Meeting
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", body, http.StatusCreated, &out); err != nil {
		return Meeting{}, err
	}
	return out, nil
}

func (c *Client) UpdateMeeting(ctx context.Context, meetingID int64, in MeetingInput) error {
	body := map[string]any{}
	if in.Topic != "" {
		body["topic"] = in.Topic
	}
	if !in.StartTime.IsZero() {
		body["start_time"] = in.StartTime.Format("2006-01-02T15:04:05")
	}
	if in.DurationMinutes > 0 {
		body["duration"] = in.DurationMinutes
	}
	if in.Timezone != "" {
		body["timezone"] = in.Timezone
	}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/meetings/%d", meetingID), body, http.StatusNoContent, nil)
}

func (c *Client) DeleteMeeting(ctx context.Context, meetingID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/meetings/%d", meetingID), nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	token, err := c.signToken()
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zoom request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("zoom request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("zoom %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode zoom response: %w", err)
		}
	}
	return nil
}
