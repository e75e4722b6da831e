package forms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wb-go/wbf/retry"
)

var testStrategy = retry.Strategy{Attempts: 1, Delay: time.Millisecond, Backoff: 1}

func TestSubmit_StringPayload(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotValue       string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotValue = r.PostFormValue("entry.123000")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "entry.123000", testStrategy)

	if err := c.Submit(context.Background(), "hello log line"); err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("expected urlencoded content type, got %q", gotContentType)
	}
	if gotValue != "hello log line" {
		t.Errorf("expected the payload in the entry field, got %q", gotValue)
	}
}

func TestSubmit_StructPayloadIsJSONEncoded(t *testing.T) {
	var gotValue string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotValue = r.PostFormValue("entry.123000")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "entry.123000", testStrategy)

	payload := struct {
		UserID string `json:"user_id"`
		URL    string `json:"url"`
	}{UserID: "U1", URL: "https://cdn.example.com/a.png"}

	if err := c.Submit(context.Background(), payload); err != nil {
		t.Fatal(err)
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(gotValue), &decoded); err != nil {
		t.Fatalf("entry field is not valid JSON: %v", err)
	}
	if decoded["user_id"] != "U1" {
		t.Errorf("expected user_id U1 in the payload, got %q", decoded["user_id"])
	}
}

func TestSubmit_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "entry.123000", testStrategy)

	if err := c.Submit(context.Background(), "payload"); err == nil {
		t.Error("expected an error for a 5xx response")
	}
}
