package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ericogr/greenhouse-node/pkg/output"
)

func TestSubmitPostsJSON(t *testing.T) {
	var gotBody, gotType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL+"/api/sensors/esp32", time.Second)
	defer h.Close()
	payload := `{"temperature":98.6,"humidity":70,"soil_moisture":100,"light_level":600,"co2_ppm":700}`
	resp, err := h.Submit(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.StatusCode != http.StatusCreated || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("response: %d %q", resp.StatusCode, resp.Body)
	}
	if gotMethod != http.MethodPost || gotType != "application/json" || gotBody != payload {
		t.Fatalf("request: method=%s type=%s body=%s", gotMethod, gotType, gotBody)
	}
}

func TestSubmitNon2xxStillCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := NewHTTP(srv.URL, time.Second).Submit(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Completed() || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("response: %+v", resp)
	}
}

func TestSubmitConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	resp, err := NewHTTP(url, time.Second).Submit(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatalf("expected error for closed server")
	}
	if resp.StatusCode != output.StatusConnectionFailed || resp.Completed() {
		t.Fatalf("response: %+v", resp)
	}
}
