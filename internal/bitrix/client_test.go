package bitrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/rest/1/token", nil)
}

func TestCreateEvent(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"result": 321}`))
	})

	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.FixedZone("UZT", 5*3600))
	id, err := c.CreateEvent(context.Background(), EventInput{
		Title:       "Session with Alice",
		Description: "Zoom meeting: https://zoom.us/j/1",
		Start:       start,
		End:         start.Add(time.Hour),
		Attendees:   []string{"alice"},
	})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	if id != "321" {
		t.Fatalf("id = %q, want 321", id)
	}
	if gotPath != "/rest/1/token/calendar.event.add" {
		t.Fatalf("path = %q", gotPath)
	}

	fields, ok := gotBody["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields missing from body: %v", gotBody)
	}
	if fields["name"] != "Session with Alice" {
		t.Fatalf("name = %v", fields["name"])
	}
	if fields["from"] != "2024-06-10T09:00:00+05:00" {
		t.Fatalf("from = %v", fields["from"])
	}
}

func TestCreateEvent_ObjectResult(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": {"id": 55}}`))
	})

	id, err := c.CreateEvent(context.Background(), EventInput{
		Title: "t", Start: time.Now(), End: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	if id != "55" {
		t.Fatalf("id = %q, want 55", id)
	}
}

func TestCreateEvent_PortalError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "invalid_token", "error_description": "expired"}`))
	})

	_, err := c.CreateEvent(context.Background(), EventInput{
		Title: "t", Start: time.Now(), End: time.Now().Add(time.Hour),
	})
	if err == nil || !strings.Contains(err.Error(), "invalid_token") {
		t.Fatalf("err = %v, want portal error", err)
	}
}

func TestCreateEvent_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateEvent(context.Background(), EventInput{
		Title: "t", Start: time.Now(), End: time.Now().Add(time.Hour),
	})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("err = %v, want status error", err)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	var paths []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"result": true}`))
	})

	if err := c.UpdateEvent(context.Background(), "321", EventInput{Title: "moved"}); err != nil {
		t.Fatalf("UpdateEvent error: %v", err)
	}
	if err := c.DeleteEvent(context.Background(), "321"); err != nil {
		t.Fatalf("DeleteEvent error: %v", err)
	}

	want := []string{"/rest/1/token/calendar.event.update", "/rest/1/token/calendar.event.delete"}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("paths[%d] = %q, want %q", i, paths[i], p)
		}
	}
}

func TestParseEventID_Shapes(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`321`, "321"},
		{`{"id": 55}`, "55"},
		{`"77"`, "77"},
	}
	for _, c := range cases {
		got, err := parseEventID(json.RawMessage(c.raw))
		if err != nil {
			t.Fatalf("parseEventID(%s) error: %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("parseEventID(%s) = %q, want %q", c.raw, got, c.want)
		}
	}

	if _, err := parseEventID(json.RawMessage(`[]`)); err == nil {
		t.Fatalf("expected error for unrecognized shape")
	}
}
